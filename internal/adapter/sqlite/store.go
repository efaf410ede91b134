// Package sqlite persists detection reports in a SQLite database using the
// pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/heatwave-etl/internal/domain"
)

// ErrRunNotFound is returned when a run ID has no stored report.
var ErrRunNotFound = errors.New("run not found")

const dateLayout = "2006-01-02"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id          TEXT PRIMARY KEY,
	station         TEXT NOT NULL,
	index_name      TEXT NOT NULL,
	variable        TEXT NOT NULL,
	season          TEXT NOT NULL,
	reference_start TEXT NOT NULL,
	reference_end   TEXT NOT NULL,
	reference_mean  REAL,
	processed_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_station_index ON runs (station, index_name, processed_at);

CREATE TABLE IF NOT EXISTS events (
	run_id     TEXT NOT NULL REFERENCES runs (run_id) ON DELETE CASCADE,
	begin_date TEXT NOT NULL,
	end_date   TEXT NOT NULL,
	duration   INTEGER NOT NULL,
	mean       REAL,
	std        REAL,
	max        REAL,
	PRIMARY KEY (run_id, begin_date)
);

CREATE TABLE IF NOT EXISTS annual_metrics (
	run_id TEXT NOT NULL REFERENCES runs (run_id) ON DELETE CASCADE,
	year   INTEGER NOT NULL,
	hwn    INTEGER NOT NULL,
	hwf    INTEGER NOT NULL,
	hwd    REAL,
	hwdm   REAL,
	hwm    REAL,
	hwma   REAL,
	hwa    REAL,
	hwaa   REAL,
	PRIMARY KEY (run_id, year)
);
`

const (
	insertRun = `INSERT INTO runs
		(run_id, station, index_name, variable, season, reference_start, reference_end, reference_mean, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	insertEvent = `INSERT INTO events
		(run_id, begin_date, end_date, duration, mean, std, max)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	insertMetrics = `INSERT INTO annual_metrics
		(run_id, year, hwn, hwf, hwd, hwdm, hwm, hwma, hwa, hwaa)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	selectEvents = `SELECT begin_date, end_date, duration, mean, std, max
		FROM events WHERE run_id = ? ORDER BY begin_date`
	selectMetrics = `SELECT year, hwn, hwf, hwd, hwdm, hwm, hwma, hwa, hwaa
		FROM annual_metrics WHERE run_id = ? ORDER BY year`
	selectLatestRun = `SELECT run_id FROM runs
		WHERE station = ? AND index_name = ? ORDER BY processed_at DESC LIMIT 1`
	selectRunExists = `SELECT 1 FROM runs WHERE run_id = ?`
)

// Store saves reports and reads them back by run.
// It implements pipeline.ResultStore.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveReport writes a report with its events and metrics in one transaction.
func (s *Store) SaveReport(ctx context.Context, report domain.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, insertRun,
		report.RunID,
		report.Station,
		report.Index.Name,
		string(report.Index.Variable),
		report.Options.Season.String(),
		report.Options.ReferenceStart.Format(dateLayout),
		report.Options.ReferenceEnd.Format(dateLayout),
		nullFloat(report.ReferenceMean),
		report.ProcessedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert run %s: %w", report.RunID, err)
	}

	for _, e := range report.Events {
		if _, err := tx.ExecContext(ctx, insertEvent,
			report.RunID,
			e.Start.Format(dateLayout),
			e.End.Format(dateLayout),
			e.Duration,
			nullFloat(e.Mean),
			nullFloat(e.Std),
			nullFloat(e.Max),
		); err != nil {
			return fmt.Errorf("insert event %s: %w", e.Start.Format(dateLayout), err)
		}
	}

	for _, m := range report.Metrics {
		if _, err := tx.ExecContext(ctx, insertMetrics,
			report.RunID, m.Year, m.HWN, m.HWF,
			nullFloat(m.HWD), nullFloat(m.HWDM), nullFloat(m.HWM),
			nullFloat(m.HWMA), nullFloat(m.HWA), nullFloat(m.HWAA),
		); err != nil {
			return fmt.Errorf("insert metrics %d: %w", m.Year, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report %s: %w", report.RunID, err)
	}
	return nil
}

// Events returns the events of a run ordered by start date.
func (s *Store) Events(ctx context.Context, runID string) ([]domain.Event, error) {
	if err := s.requireRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, selectEvents, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			begin, end      string
			e               domain.Event
			mean, std, maxV sql.NullFloat64
		)
		if err := rows.Scan(&begin, &end, &e.Duration, &mean, &std, &maxV); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if e.Start, err = time.Parse(dateLayout, begin); err != nil {
			return nil, fmt.Errorf("parse begin_date: %w", err)
		}
		if e.End, err = time.Parse(dateLayout, end); err != nil {
			return nil, fmt.Errorf("parse end_date: %w", err)
		}
		e.Mean, e.Std, e.Max = orNaN(mean), orNaN(std), orNaN(maxV)
		events = append(events, e)
	}
	return events, rows.Err()
}

// AnnualMetrics returns the metrics rows of a run ordered by year.
func (s *Store) AnnualMetrics(ctx context.Context, runID string) ([]domain.AnnualMetrics, error) {
	if err := s.requireRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, selectMetrics, runID)
	if err != nil {
		return nil, fmt.Errorf("query annual metrics: %w", err)
	}
	defer rows.Close()

	var out []domain.AnnualMetrics
	for rows.Next() {
		var (
			m                               domain.AnnualMetrics
			hwd, hwdm, hwm, hwma, hwa, hwaa sql.NullFloat64
		)
		if err := rows.Scan(&m.Year, &m.HWN, &m.HWF, &hwd, &hwdm, &hwm, &hwma, &hwa, &hwaa); err != nil {
			return nil, fmt.Errorf("scan annual metrics: %w", err)
		}
		m.HWD, m.HWDM, m.HWM = orNaN(hwd), orNaN(hwdm), orNaN(hwm)
		m.HWMA, m.HWA, m.HWAA = orNaN(hwma), orNaN(hwa), orNaN(hwaa)
		out = append(out, m)
	}
	return out, rows.Err()
}

// LatestRun returns the most recent run ID for a station and index.
func (s *Store) LatestRun(ctx context.Context, station, indexName string) (string, error) {
	var runID string
	err := s.db.QueryRowContext(ctx, selectLatestRun, station, indexName).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s %s", ErrRunNotFound, station, indexName)
	}
	if err != nil {
		return "", fmt.Errorf("query latest run: %w", err)
	}
	return runID, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) requireRun(ctx context.Context, runID string) error {
	var one int
	err := s.db.QueryRowContext(ctx, selectRunExists, runID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return fmt.Errorf("query run: %w", err)
	}
	return nil
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
