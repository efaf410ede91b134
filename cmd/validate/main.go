// Command validate checks exported heat wave tables against the station file
// they were computed from. It recomputes detection with the same settings and
// verifies table invariants, threshold exceedance, events/metrics consistency
// and agreement with the recomputation.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -station data/mock/athens.csv \
//	  -index tx90p \
//	  -season 6,7,8
package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/heatwave-etl/internal/adapter/station"
	"github.com/couchcryptid/heatwave-etl/internal/domain"
)

// tolerance absorbs the one-decimal rounding of exported statistics.
const tolerance = 0.051

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	defaults := domain.DefaultOptions()
	stationPath := flag.String("station", "", "station CSV file the tables were exported from")
	indexName := flag.String("index", "tx90p", "predefined index the tables were computed with")
	refStart := flag.String("ref-start", defaults.ReferenceStart.Format(time.DateOnly), "reference period start")
	refEnd := flag.String("ref-end", defaults.ReferenceEnd.Format(time.DateOnly), "reference period end")
	season := flag.String("season", defaults.Season.String(), `season months, e.g. "6,7,8" or "none"`)
	maxMissing := flag.Float64("max-missing-pct", defaults.MaxMissingDaysPct, "missing season days tolerated per year, in percent")
	flag.Parse()

	if *stationPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	opts, err := buildOptions(*refStart, *refEnd, *season, *maxMissing)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	if code := run(*stationPath, *indexName, opts); code != 0 {
		os.Exit(code)
	}
}

func buildOptions(refStart, refEnd, season string, maxMissing float64) (domain.Options, error) {
	opts := domain.DefaultOptions()
	var err error
	if opts.ReferenceStart, err = time.Parse(time.DateOnly, refStart); err != nil {
		return opts, fmt.Errorf("ref-start: %w", err)
	}
	if opts.ReferenceEnd, err = time.Parse(time.DateOnly, refEnd); err != nil {
		return opts, fmt.Errorf("ref-end: %w", err)
	}
	if opts.Season, err = domain.ParseSeason(season); err != nil {
		return opts, err
	}
	opts.MaxMissingDaysPct = maxMissing
	return opts, opts.Validate()
}

func run(stationPath, indexName string, opts domain.Options) int {
	fmt.Println("=== Heat Wave Table Validation ===")
	fmt.Println()

	idx, err := domain.LookupIndex(indexName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	series, err := station.Load(stationPath, idx.Variable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load station: %v\n", err)
		return 1
	}

	events, err := readTable(station.EventsPath(stationPath, idx.Name), station.ReadEvents)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load events: %v\n", err)
		return 1
	}

	metrics, err := readTable(station.MetricsPath(stationPath, idx.Name), station.ReadMetrics)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load metrics: %v\n", err)
		return 1
	}

	result, err := domain.Detect(series, idx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: recompute: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateEventTable(events, idx, opts.Season),
		validateExceedance(events, series, result.Thresholds),
		validateMetricsTable(metrics, result.ReferenceMean),
		validateConsistency(events, metrics),
		validateRecomputation(events, metrics, result),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Station: %d days, %d events, %d metric years (index %s)\n",
		len(series), len(events), len(metrics), idx)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func readTable[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(f)
}

// ── Phases ──

func validateEventTable(events []domain.Event, idx domain.Index, season domain.Season) *phase {
	p := &phase{name: "Event table integrity"}
	for i, e := range events {
		days := int(e.End.Sub(e.Start).Hours()/24) + 1
		if e.Duration != days {
			p.errorf("event %d: duration %d, dates span %d days", i, e.Duration, days)
		}
		if e.Duration < idx.MinDuration {
			p.errorf("event %d: duration %d below minimum %d", i, e.Duration, idx.MinDuration)
		}
		if season.IsSet() && (!season.Contains(e.Start.Month()) || !season.Contains(e.End.Month())) {
			p.errorf("event %d: %s..%s outside season %s", i, fmtDate(e.Start), fmtDate(e.End), season)
		}
		if e.Max+tolerance < e.Mean {
			p.errorf("event %d: max %g below mean %g", i, e.Max, e.Mean)
		}
		if e.Duration == 1 && !math.IsNaN(e.Std) {
			p.errorf("event %d: single-day event has std %g", i, e.Std)
		}
		if i > 0 && !e.Start.After(events[i-1].End) {
			p.errorf("event %d: starts %s before previous event ends %s", i, fmtDate(e.Start), fmtDate(events[i-1].End))
		}
	}
	return p
}

func validateExceedance(events []domain.Event, series domain.Series, thresholds domain.ThresholdTable) *phase {
	p := &phase{name: "Event days exceed thresholds"}
	values := make(map[time.Time]float64, len(series))
	for _, o := range series {
		values[o.Date] = o.Value
	}
	for i, e := range events {
		for d := e.Start; !d.After(e.End); d = d.AddDate(0, 0, 1) {
			v, ok := values[d]
			th := thresholds.Lookup(domain.MonthDayOf(d))
			if !ok || math.IsNaN(v) || math.IsNaN(th) || v <= th {
				p.errorf("event %d: %s value %g does not exceed threshold %g", i, fmtDate(d), v, th)
			}
		}
	}
	return p
}

func validateMetricsTable(metrics []domain.AnnualMetrics, refMean float64) *phase {
	p := &phase{name: "Metrics table integrity"}
	for i, m := range metrics {
		if i > 0 && m.Year <= metrics[i-1].Year {
			p.errorf("year %d: not after %d", m.Year, metrics[i-1].Year)
		}
		if !m.HasHeatWaves() {
			if m.HWF != 0 {
				p.errorf("year %d: hwf %d without heat waves", m.Year, m.HWF)
			}
			for name, v := range map[string]float64{"hwd": m.HWD, "hwdm": m.HWDM, "hwm": m.HWM, "hwma": m.HWMA, "hwa": m.HWA, "hwaa": m.HWAA} {
				if !math.IsNaN(v) {
					p.errorf("year %d: %s is %g without heat waves", m.Year, name, v)
				}
			}
			continue
		}
		if m.HWF < m.HWN || float64(m.HWF) < m.HWD {
			p.errorf("year %d: hwf %d inconsistent with hwn %d and hwd %g", m.Year, m.HWF, m.HWN, m.HWD)
		}
		if math.Abs(m.HWDM-float64(m.HWF)/float64(m.HWN)) > tolerance {
			p.errorf("year %d: hwdm %g != hwf/hwn", m.Year, m.HWDM)
		}
		if math.Abs(m.HWM-(m.HWMA-refMean)) > 2*tolerance {
			p.errorf("year %d: hwm %g != hwma %g - reference mean %g", m.Year, m.HWM, m.HWMA, refMean)
		}
		if math.Abs(m.HWA-(m.HWAA-refMean)) > 2*tolerance {
			p.errorf("year %d: hwa %g != hwaa %g - reference mean %g", m.Year, m.HWA, m.HWAA, refMean)
		}
	}
	return p
}

func validateConsistency(events []domain.Event, metrics []domain.AnnualMetrics) *phase {
	p := &phase{name: "Events and metrics agree"}
	count := map[int]int{}
	days := map[int]int{}
	for _, e := range events {
		count[e.Start.Year()]++
		days[e.Start.Year()] += e.Duration
	}
	reported := map[int]bool{}
	for _, m := range metrics {
		reported[m.Year] = true
		if m.HWN != count[m.Year] {
			p.errorf("year %d: hwn %d, events table has %d", m.Year, m.HWN, count[m.Year])
		}
		if m.HWF != days[m.Year] {
			p.errorf("year %d: hwf %d, events table has %d days", m.Year, m.HWF, days[m.Year])
		}
	}
	for year := range count {
		if !reported[year] {
			p.errorf("year %d: has events but no metrics row", year)
		}
	}
	return p
}

func validateRecomputation(events []domain.Event, metrics []domain.AnnualMetrics, result domain.Result) *phase {
	p := &phase{name: "Tables match recomputation"}
	if len(events) != len(result.Events) {
		p.errorf("events: exported %d, recomputed %d", len(events), len(result.Events))
	}
	for i := range min(len(events), len(result.Events)) {
		got, want := events[i], result.Events[i]
		if !got.Start.Equal(want.Start) || !got.End.Equal(want.End) {
			p.errorf("event %d: exported %s..%s, recomputed %s..%s", i,
				fmtDate(got.Start), fmtDate(got.End), fmtDate(want.Start), fmtDate(want.End))
			continue
		}
		if !approxEqual(got.Mean, want.Mean) || !approxEqual(got.Std, want.Std) || !approxEqual(got.Max, want.Max) {
			p.errorf("event %d: exported stats %g/%g/%g, recomputed %g/%g/%g", i,
				got.Mean, got.Std, got.Max, want.Mean, want.Std, want.Max)
		}
	}
	if len(metrics) != len(result.Metrics) {
		p.errorf("metrics: exported %d years, recomputed %d", len(metrics), len(result.Metrics))
	}
	for i := range min(len(metrics), len(result.Metrics)) {
		got, want := metrics[i], result.Metrics[i]
		if got.Year != want.Year || got.HWN != want.HWN || got.HWF != want.HWF {
			p.errorf("metrics %d: exported year %d hwn %d hwf %d, recomputed year %d hwn %d hwf %d", i,
				got.Year, got.HWN, got.HWF, want.Year, want.HWN, want.HWF)
		}
	}
	return p
}

func approxEqual(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= tolerance
}

func fmtDate(t time.Time) string { return t.Format(time.DateOnly) }
