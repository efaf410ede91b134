// Command heatwave detects heat waves in station CSV files and writes the
// event and annual metrics tables next to each input.
//
// Usage:
//
//	heatwave -index tx90p -season 6,7,8 data/athens.csv data/rome.csv
//	heatwave -variable tmax -threshold 38 -min-duration 3 data/athens.csv
//	heatwave -list
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/couchcryptid/heatwave-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/heatwave-etl/internal/adapter/station"
	"github.com/couchcryptid/heatwave-etl/internal/domain"
	"github.com/couchcryptid/heatwave-etl/internal/observability"
)

var errUsage = errors.New("usage")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "heatwave:", err)
		}
		os.Exit(1)
	}
}

type cliFlags struct {
	index       string
	variable    string
	percentile  float64
	threshold   float64
	minDuration int
	window      int
	refStart    string
	refEnd      string
	season      string
	metrics     bool
	maxMissing  float64
	sqlitePath  string
	export      bool
	list        bool
	logLevel    string
	logFormat   string
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	defaults := domain.DefaultOptions()
	var f cliFlags

	fs := flag.NewFlagSet("heatwave", flag.ContinueOnError)
	fs.StringVar(&f.index, "index", "tx90p", "predefined index name")
	fs.StringVar(&f.variable, "variable", "tmax", "custom index variable: tmin or tmax")
	fs.Float64Var(&f.percentile, "percentile", 0, "custom index percentile (0-100)")
	fs.Float64Var(&f.threshold, "threshold", 0, "custom index fixed threshold")
	fs.IntVar(&f.minDuration, "min-duration", 3, "custom index minimum event length in days")
	fs.IntVar(&f.window, "window", 1, "custom index calendar window length in days")
	fs.StringVar(&f.refStart, "ref-start", defaults.ReferenceStart.Format("2006-01-02"), "reference period start")
	fs.StringVar(&f.refEnd, "ref-end", defaults.ReferenceEnd.Format("2006-01-02"), "reference period end")
	fs.StringVar(&f.season, "season", defaults.Season.String(), `season months, e.g. "6,7,8" or "none"`)
	fs.BoolVar(&f.metrics, "metrics", true, "compute annual metrics")
	fs.Float64Var(&f.maxMissing, "max-missing-pct", defaults.MaxMissingDaysPct, "missing season days tolerated per year, in percent")
	fs.StringVar(&f.sqlitePath, "sqlite", "", "also save reports to this SQLite database")
	fs.BoolVar(&f.export, "export", true, "write CSV tables next to each station file")
	fs.BoolVar(&f.list, "list", false, "list predefined indices and exit")
	fs.StringVar(&f.logLevel, "log-level", "warn", "log level")
	fs.StringVar(&f.logFormat, "log-format", "text", "log format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if f.list {
		return listIndices(stdout)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	logger := observability.NewLogger(f.logLevel, f.logFormat)

	req, err := buildRequest(fs, f)
	if err != nil {
		return err
	}
	idx, err := req.ResolveIndex()
	if err != nil {
		return err
	}
	opts, err := req.ResolveOptions(defaults)
	if err != nil {
		return err
	}

	var store *sqlite.Store
	if f.sqlitePath != "" {
		store, err = sqlite.Open(ctx, f.sqlitePath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	for _, path := range fs.Args() {
		if err := detectFile(ctx, path, idx, opts, f.export, store, stdout, logger); err != nil {
			return err
		}
	}
	return nil
}

// buildRequest maps the flags onto a DetectionRequest so that the CLI and the
// service resolve indices and options the same way. A custom index is used
// when -percentile or -threshold is given.
func buildRequest(fs *flag.FlagSet, f cliFlags) (domain.DetectionRequest, error) {
	season, err := domain.ParseSeason(f.season)
	if err != nil {
		return domain.DetectionRequest{}, err
	}
	months := make([]int, len(season))
	for i, m := range season {
		months[i] = int(m)
	}

	req := domain.DetectionRequest{
		Station:           "cli",
		ReferenceStart:    f.refStart,
		ReferenceEnd:      f.refEnd,
		Season:            &months,
		Metrics:           &f.metrics,
		MaxMissingDaysPct: &f.maxMissing,
	}

	set := map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	if !set["percentile"] && !set["threshold"] {
		req.Index = f.index
		return req, nil
	}

	custom := &domain.CustomIndex{
		Variable:     f.variable,
		MinDuration:  f.minDuration,
		WindowLength: f.window,
	}
	if set["percentile"] {
		custom.Percentile = &f.percentile
	}
	if set["threshold"] {
		custom.FixedThreshold = &f.threshold
	}
	req.Custom = custom
	return req, nil
}

func detectFile(ctx context.Context, path string, idx domain.Index, opts domain.Options, export bool, store *sqlite.Store, stdout io.Writer, logger *slog.Logger) error {
	series, err := station.Load(path, idx.Variable)
	if err != nil {
		return err
	}
	result, err := domain.Detect(series, idx, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	report := domain.NewReport(uuid.NewString(), filepath.Base(path), idx, opts, result)
	logger.Debug("detection complete", "station", path, "index", idx.Name, "events", len(result.Events))

	if export {
		written, err := station.Export(path, idx, result)
		if err != nil {
			return err
		}
		for _, w := range written {
			logger.Info("table written", "path", w)
		}
	}
	if store != nil {
		if err := store.SaveReport(ctx, report); err != nil {
			return err
		}
	}

	fmt.Fprintf(stdout, "%s\t%s\t%d events\t%d years\trun %s\n",
		report.Station, idx.Name, len(result.Events), len(result.Metrics), report.RunID)
	return nil
}

func listIndices(w io.Writer) error {
	for _, name := range domain.IndexNames() {
		idx, err := domain.LookupIndex(name)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, idx.String()); err != nil {
			return err
		}
	}
	return nil
}
