// Package station reads daily station series from CSV files and exports
// detection results next to them.
//
// Input files have no header and five columns: year, month, day, tmin, tmax.
// Empty, "NA" and "NaN" temperature cells are missing values.
package station

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/heatwave-etl/internal/domain"
)

var (
	// ErrMalformedRow is returned for rows that cannot be parsed.
	ErrMalformedRow = errors.New("malformed station row")

	// ErrUnordered is returned when dates are not strictly increasing.
	ErrUnordered = errors.New("station dates not strictly increasing")
)

const (
	colYear = iota
	colMonth
	colDay
	colTmin
	colTmax
	columnCount
)

// Load reads the variable column of a station file.
func Load(path string, variable domain.Variable) (domain.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open station file: %w", err)
	}
	defer f.Close()

	series, err := Read(f, variable)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return series, nil
}

// Read parses station rows from r.
func Read(r io.Reader, variable domain.Variable) (domain.Series, error) {
	col := colTmax
	switch variable {
	case domain.Tmax:
	case domain.Tmin:
		col = colTmin
	default:
		return nil, fmt.Errorf("unsupported variable %q", variable)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = columnCount
	reader.TrimLeadingSpace = true

	var (
		series domain.Series
		line   int
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, line, err)
		}

		date, err := parseDate(record)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, line, err)
		}
		value, err := parseValue(record[col])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, line, err)
		}
		if n := len(series); n > 0 && !date.After(series[n-1].Date) {
			return nil, fmt.Errorf("%w: line %d: %s after %s", ErrUnordered, line,
				date.Format(time.DateOnly), series[n-1].Date.Format(time.DateOnly))
		}
		series = append(series, domain.Observation{Date: date, Value: value})
	}
	return series, nil
}

func parseDate(record []string) (time.Time, error) {
	var parts [3]int
	for i := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(record[colYear+i]))
		if err != nil {
			return time.Time{}, fmt.Errorf("date field %d: %w", i+1, err)
		}
		parts[i] = n
	}
	year, month, day := parts[0], parts[1], parts[2]
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 02-30 into March; reject instead.
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return time.Time{}, fmt.Errorf("invalid date %d-%02d-%02d", year, month, day)
	}
	return date, nil
}

func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "nan":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("temperature %q: %w", s, err)
	}
	return v, nil
}
