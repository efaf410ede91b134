package station

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/heatwave-etl/internal/domain"
)

// eventDateLayout matches the dd/mm/YYYY dates of the exported event tables.
const eventDateLayout = "02/01/2006"

// MetricsHeader is the column layout of exported annual metrics.
var MetricsHeader = []string{"year", "hwn", "hwf", "hwd", "hwdm", "hwm", "hwma", "hwa", "hwaa"}

// EventsHeader is the column layout of exported events for variable.
func EventsHeader(variable domain.Variable) []string {
	v := string(variable)
	return []string{"begin_date", "end_date", "duration", "avg_" + v, "std_" + v, "max_" + v}
}

// EventsPath names the events file exported for a station file and index:
// /data/athens.csv + tx90p → /data/athens_tx90p_heatwaves_events.csv.
func EventsPath(stationPath, indexName string) string {
	return outputPath(stationPath, indexName, "events")
}

// MetricsPath names the annual metrics file exported for a station file and index.
func MetricsPath(stationPath, indexName string) string {
	return outputPath(stationPath, indexName, "metrics")
}

func outputPath(stationPath, indexName, table string) string {
	base := strings.TrimSuffix(stationPath, filepath.Ext(stationPath))
	return fmt.Sprintf("%s_%s_heatwaves_%s.csv", base, indexName, table)
}

// Export writes the events table and, when computed, the metrics table next
// to the station file. It returns the paths written.
func Export(stationPath string, idx domain.Index, result domain.Result) ([]string, error) {
	eventsPath := EventsPath(stationPath, idx.Name)
	if err := writeFile(eventsPath, func(w io.Writer) error {
		return WriteEvents(w, idx.Variable, result.Events)
	}); err != nil {
		return nil, err
	}
	written := []string{eventsPath}

	if !result.MetricsComputed {
		return written, nil
	}
	metricsPath := MetricsPath(stationPath, idx.Name)
	if err := writeFile(metricsPath, func(w io.Writer) error {
		return WriteMetrics(w, result.Metrics)
	}); err != nil {
		return written, err
	}
	return append(written, metricsPath), nil
}

// WriteEvents writes events as CSV.
func WriteEvents(w io.Writer, variable domain.Variable, events []domain.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(EventsHeader(variable)); err != nil {
		return fmt.Errorf("write events header: %w", err)
	}
	for _, e := range events {
		row := []string{
			e.Start.Format(eventDateLayout),
			e.End.Format(eventDateLayout),
			strconv.Itoa(e.Duration),
			formatFloat(e.Mean),
			formatFloat(e.Std),
			formatFloat(e.Max),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write event row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMetrics writes annual metrics as CSV with empty cells for absent values.
func WriteMetrics(w io.Writer, metrics []domain.AnnualMetrics) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(MetricsHeader); err != nil {
		return fmt.Errorf("write metrics header: %w", err)
	}
	for _, m := range metrics {
		row := []string{
			strconv.Itoa(m.Year),
			strconv.Itoa(m.HWN),
			strconv.Itoa(m.HWF),
			formatFloat(m.HWD),
			formatFloat(m.HWDM),
			formatFloat(m.HWM),
			formatFloat(m.HWMA),
			formatFloat(m.HWA),
			formatFloat(m.HWAA),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write metrics row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadEvents parses an exported events table.
func ReadEvents(r io.Reader) ([]domain.Event, error) {
	records, err := readTable(r, 6)
	if err != nil {
		return nil, err
	}
	events := make([]domain.Event, 0, len(records))
	for i, rec := range records {
		line := i + 2
		start, err := time.Parse(eventDateLayout, rec[0])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, line, err)
		}
		end, err := time.Parse(eventDateLayout, rec[1])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, line, err)
		}
		duration, err := strconv.Atoi(rec[2])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, line, err)
		}
		stats, err := parseValues(rec[3:])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, line, err)
		}
		events = append(events, domain.Event{
			Start: start, End: end, Duration: duration,
			Mean: stats[0], Std: stats[1], Max: stats[2],
		})
	}
	return events, nil
}

// ReadMetrics parses an exported annual metrics table.
func ReadMetrics(r io.Reader) ([]domain.AnnualMetrics, error) {
	records, err := readTable(r, len(MetricsHeader))
	if err != nil {
		return nil, err
	}
	rows := make([]domain.AnnualMetrics, 0, len(records))
	for i, rec := range records {
		line := i + 2
		var ints [3]int
		for j := range ints {
			if ints[j], err = strconv.Atoi(rec[j]); err != nil {
				return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, line, err)
			}
		}
		v, err := parseValues(rec[3:])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, line, err)
		}
		rows = append(rows, domain.AnnualMetrics{
			Year: ints[0], HWN: ints[1], HWF: ints[2],
			HWD: v[0], HWDM: v[1], HWM: v[2], HWMA: v[3], HWA: v[4], HWAA: v[5],
		})
	}
	return rows, nil
}

func readTable(r io.Reader, columns int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = columns
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRow, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedRow)
	}
	return records[1:], nil
}

func parseValues(cells []string) ([]float64, error) {
	out := make([]float64, len(cells))
	for i, c := range cells {
		v, err := parseValue(c)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("export %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
