package station

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/couchcryptid/heatwave-etl/internal/domain"
)

// ErrInvalidStation is returned for station names that leave the data directory.
var ErrInvalidStation = errors.New("invalid station name")

// Dir resolves station file names against a data directory.
type Dir struct {
	root string
}

// NewDir creates a Dir rooted at root.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Path returns the file a station name refers to. Names must be local to
// the data directory.
func (d *Dir) Path(station string) (string, error) {
	if !filepath.IsLocal(station) {
		return "", fmt.Errorf("%w: %q", ErrInvalidStation, station)
	}
	return filepath.Join(d.root, station), nil
}

// LoadSeries reads the variable column of a station file.
func (d *Dir) LoadSeries(ctx context.Context, station string, variable domain.Variable) (domain.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := d.Path(station)
	if err != nil {
		return nil, err
	}
	return Load(path, variable)
}

// ExportReport writes the report tables next to its station file.
func (d *Dir) ExportReport(report domain.Report) ([]string, error) {
	path, err := d.Path(report.Station)
	if err != nil {
		return nil, err
	}
	return Export(path, report.Index, domain.Result{
		Events:          report.Events,
		Metrics:         report.Metrics,
		MetricsComputed: report.MetricsComputed,
	})
}
