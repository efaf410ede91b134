package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidOptions is returned for unusable detection options.
var ErrInvalidOptions = errors.New("invalid detection options")

// Options configures a detection run.
type Options struct {
	// ReferenceStart and ReferenceEnd bound the reference period, inclusive.
	ReferenceStart time.Time
	ReferenceEnd   time.Time
	// Season restricts detection to these months. Empty means all year.
	Season Season
	// ComputeMetrics enables the annual metrics table.
	ComputeMetrics bool
	// MaxMissingDaysPct is the share of the season, 0-100, that may be
	// missing before a year without events is left out of the metrics.
	MaxMissingDaysPct float64
}

// DefaultOptions uses the 1961-1990 reference period and a June-August season.
func DefaultOptions() Options {
	return Options{
		ReferenceStart:    time.Date(1961, time.January, 1, 0, 0, 0, 0, time.UTC),
		ReferenceEnd:      time.Date(1990, time.December, 31, 0, 0, 0, 0, time.UTC),
		Season:            SeasonOf(6, 7, 8),
		ComputeMetrics:    true,
		MaxMissingDaysPct: 10,
	}
}

// Validate checks the options before any computation runs.
func (o Options) Validate() error {
	if o.ReferenceEnd.Before(o.ReferenceStart) {
		return fmt.Errorf("%w: reference period ends before it starts", ErrInvalidOptions)
	}
	if o.MaxMissingDaysPct < 0 || o.MaxMissingDaysPct > 100 {
		return fmt.Errorf("%w: max missing days %g%% outside [0, 100]", ErrInvalidOptions, o.MaxMissingDaysPct)
	}
	for _, m := range o.Season {
		if m < time.January || m > time.December {
			return fmt.Errorf("%w: season month %d", ErrInvalidOptions, m)
		}
	}
	return nil
}

// Result holds the outcome of a detection run. Metrics is nil unless
// annual metrics were requested.
type Result struct {
	Events          []Event
	Metrics         []AnnualMetrics
	MetricsComputed bool
	ReferenceMean   float64
	// Thresholds is kept for inspection; it is not part of the output tables.
	Thresholds ThresholdTable
}

// Detect runs the full pipeline on a station series: thresholds from the
// reference period, annotation of the whole series, segmentation into events
// and, optionally, annual metrics. It has no side effects.
func Detect(series Series, idx Index, opts Options) (Result, error) {
	if err := idx.Validate(); err != nil {
		return Result{}, fmt.Errorf("detect: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return Result{}, fmt.Errorf("detect: %w", err)
	}

	reference := series.Between(opts.ReferenceStart, opts.ReferenceEnd)
	windows := BuildCalendarWindows(idx.WindowLength)
	thresholds, err := ComputeThresholds(windows, reference, idx, opts.Season.Extend())
	if err != nil {
		return Result{}, fmt.Errorf("detect: %w", err)
	}

	annotated := Annotate(series, thresholds)
	events := FindEvents(annotated, idx, opts.Season)

	result := Result{
		Events:        events,
		ReferenceMean: ReferenceMean(reference, opts.Season),
		Thresholds:    thresholds,
	}
	if opts.ComputeMetrics {
		result.Metrics = ComputeAnnualMetrics(events, reference, annotated, opts.MaxMissingDaysPct, opts.Season)
		result.MetricsComputed = true
	}
	return result, nil
}
