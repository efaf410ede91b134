package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/heatwave-etl/internal/domain"
	"github.com/couchcryptid/heatwave-etl/internal/observability"
)

// SeriesLoader reads the daily series of one station.
type SeriesLoader interface {
	LoadSeries(ctx context.Context, station string, variable domain.Variable) (domain.Series, error)
}

// ResultStore persists finished reports.
type ResultStore interface {
	SaveReport(ctx context.Context, report domain.Report) error
}

// ReportExporter writes report tables for offline use.
type ReportExporter interface {
	ExportReport(report domain.Report) ([]string, error)
}

// DetectorOption configures optional Detector sinks.
type DetectorOption func(*Detector)

// WithStore saves every report to s.
func WithStore(s ResultStore) DetectorOption {
	return func(d *Detector) { d.store = s }
}

// WithExporter exports every report through e.
func WithExporter(e ReportExporter) DetectorOption {
	return func(d *Detector) { d.exporter = e }
}

// Detector runs detection requests end to end: it resolves the index and
// options, loads the station series and runs domain.Detect. It is shared by
// the Kafka pipeline and the HTTP API.
type Detector struct {
	series   SeriesLoader
	store    ResultStore
	exporter ReportExporter
	defaults domain.Options
	logger   *slog.Logger
	metrics  *observability.Metrics
	newRunID func() string
}

// NewDetector creates a Detector. defaults fill in options a request leaves unset.
func NewDetector(series SeriesLoader, defaults domain.Options, logger *slog.Logger, metrics *observability.Metrics, opts ...DetectorOption) *Detector {
	d := &Detector{
		series:   series,
		defaults: defaults,
		logger:   logger,
		metrics:  metrics,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect runs one request. Errors caused by the request itself wrap
// domain.ErrInvalidRequest.
func (d *Detector) Detect(ctx context.Context, req domain.DetectionRequest) (domain.Report, error) {
	start := time.Now()

	idx, err := req.ResolveIndex()
	if err != nil {
		return domain.Report{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	opts, err := req.ResolveOptions(d.defaults)
	if err != nil {
		return domain.Report{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	series, err := d.series.LoadSeries(ctx, req.Station, idx.Variable)
	if err != nil {
		return domain.Report{}, fmt.Errorf("load station %s: %w", req.Station, err)
	}

	result, err := domain.Detect(series, idx, opts)
	if err != nil {
		return domain.Report{}, fmt.Errorf("station %s: %w", req.Station, err)
	}

	report := domain.NewReport(d.newRunID(), req.Station, idx, opts, result)
	d.observe(series, report, time.Since(start))
	d.persist(ctx, report)

	return report, nil
}

func (d *Detector) observe(series domain.Series, report domain.Report, elapsed time.Duration) {
	name := report.Index.Name
	d.metrics.DetectionDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	d.metrics.EventsDetected.WithLabelValues(name).Add(float64(len(report.Events)))

	excluded := 0
	if report.MetricsComputed {
		excluded = excludedYears(series, report.Options.Season, report.Metrics)
		d.metrics.YearsExcluded.WithLabelValues(name).Add(float64(excluded))
	}

	d.logger.Info("detection complete",
		"run_id", report.RunID,
		"station", report.Station,
		"index", name,
		"events", len(report.Events),
		"years_excluded", excluded,
		"duration", elapsed,
	)
}

// persist hands the report to the optional sinks. Sink failures are logged
// and counted; the report is still returned to the caller.
func (d *Detector) persist(ctx context.Context, report domain.Report) {
	if d.store != nil {
		if err := d.store.SaveReport(ctx, report); err != nil {
			d.metrics.SinkErrors.WithLabelValues("store").Inc()
			d.logger.Error("save report failed", "error", err, "run_id", report.RunID)
		}
	}
	if d.exporter != nil {
		paths, err := d.exporter.ExportReport(report)
		if err != nil {
			d.metrics.SinkErrors.WithLabelValues("export").Inc()
			d.logger.Error("export report failed", "error", err, "run_id", report.RunID)
			return
		}
		d.logger.Debug("report exported", "run_id", report.RunID, "files", paths)
	}
}

// excludedYears counts years with in-season observations that are missing
// from the metrics table.
func excludedYears(series domain.Series, season domain.Season, metrics []domain.AnnualMetrics) int {
	reported := make(map[int]struct{}, len(metrics))
	for _, m := range metrics {
		reported[m.Year] = struct{}{}
	}
	seen := map[int]struct{}{}
	for _, o := range series.InSeason(season) {
		seen[o.Date.Year()] = struct{}{}
	}
	excluded := 0
	for year := range seen {
		if _, ok := reported[year]; !ok {
			excluded++
		}
	}
	return excluded
}
