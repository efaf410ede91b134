package station

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/heatwave-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `1970,7,1,18.2,31.5
1970,7,2,19.0,NA
1970,7,4, ,33.1
`

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestRead(t *testing.T) {
	t.Run("tmax column", func(t *testing.T) {
		series, err := Read(strings.NewReader(sampleCSV), domain.Tmax)
		require.NoError(t, err)
		require.Len(t, series, 3)
		assert.Equal(t, date(1970, 7, 1), series[0].Date)
		assert.Equal(t, 31.5, series[0].Value)
		assert.True(t, series[1].Missing())
		assert.Equal(t, date(1970, 7, 4), series[2].Date)
	})

	t.Run("tmin column", func(t *testing.T) {
		series, err := Read(strings.NewReader(sampleCSV), domain.Tmin)
		require.NoError(t, err)
		assert.Equal(t, 18.2, series[0].Value)
		assert.True(t, math.IsNaN(series[2].Value))
	})

	t.Run("unsupported variable", func(t *testing.T) {
		_, err := Read(strings.NewReader(sampleCSV), domain.Variable("prcp"))
		require.Error(t, err)
	})
}

func TestRead_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"non-numeric temperature", "1970,7,1,18.2,hot\n", ErrMalformedRow},
		{"impossible date", "1970,2,30,18.2,30\n", ErrMalformedRow},
		{"missing column", "1970,7,1,18.2\n", ErrMalformedRow},
		{"non-numeric year", "abc,7,1,18.2,30\n", ErrMalformedRow},
		{"duplicate date", "1970,7,1,18,30\n1970,7,1,18,30\n", ErrUnordered},
		{"descending dates", "1970,7,2,18,30\n1970,7,1,18,30\n", ErrUnordered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input), domain.Tmax)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.csv"), domain.Tmax)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open station file")
}

func TestOutputPaths(t *testing.T) {
	assert.Equal(t, "/data/athens_tx90p_heatwaves_events.csv", EventsPath("/data/athens.csv", "tx90p"))
	assert.Equal(t, "/data/athens_tx90p_heatwaves_metrics.csv", MetricsPath("/data/athens.csv", "tx90p"))
	assert.Equal(t, "station_custom_heatwaves_events.csv", EventsPath("station", "custom"))
}

func TestExport_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	stationPath := filepath.Join(dir, "athens.csv")
	idx, err := domain.LookupIndex("hot_days")
	require.NoError(t, err)

	nan := math.NaN()
	result := domain.Result{
		Events: []domain.Event{
			{Start: date(2003, 8, 1), End: date(2003, 8, 3), Duration: 3, Mean: 37.1, Std: 0.9, Max: 38.0},
			{Start: date(2003, 8, 9), End: date(2003, 8, 9), Duration: 1, Mean: 35.4, Std: nan, Max: 35.4},
		},
		Metrics: []domain.AnnualMetrics{
			{Year: 2003, HWN: 2, HWF: 4, HWD: 3, HWDM: 2, HWM: 8.7, HWMA: 36.7, HWA: 10, HWAA: 38},
			{Year: 2004, HWD: nan, HWDM: nan, HWM: nan, HWMA: nan, HWA: nan, HWAA: nan},
		},
		MetricsComputed: true,
	}

	paths, err := Export(stationPath, idx, result)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	raw, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Equal(t, "begin_date,end_date,duration,avg_tmax,std_tmax,max_tmax", lines[0])
	assert.Equal(t, "01/08/2003,03/08/2003,3,37.1,0.9,38", lines[1])
	assert.Equal(t, "09/08/2003,09/08/2003,1,35.4,,35.4", lines[2])

	events, err := ReadEvents(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, date(2003, 8, 9), events[1].Start)
	assert.True(t, math.IsNaN(events[1].Std))

	f, err := os.Open(paths[1])
	require.NoError(t, err)
	defer f.Close()
	metrics, err := ReadMetrics(f)
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, 2, metrics[0].HWN)
	assert.Equal(t, 38.0, metrics[0].HWAA)
	assert.Equal(t, 0, metrics[1].HWN)
	assert.True(t, math.IsNaN(metrics[1].HWD))
}

func TestExport_EventsOnly(t *testing.T) {
	idx, err := domain.LookupIndex("tropical_nights")
	require.NoError(t, err)

	paths, err := Export(filepath.Join(t.TempDir(), "s.csv"), idx, domain.Result{})
	require.NoError(t, err)
	require.Len(t, paths, 1)

	raw, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "begin_date,end_date,duration,avg_tmin,std_tmin,max_tmin\n", string(raw))
}

func TestDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "athens.csv"), []byte(sampleCSV), 0o600))
	dir := NewDir(root)

	series, err := dir.LoadSeries(context.Background(), "athens.csv", domain.Tmax)
	require.NoError(t, err)
	assert.Len(t, series, 3)

	_, err = dir.LoadSeries(context.Background(), "../etc/passwd", domain.Tmax)
	require.ErrorIs(t, err, ErrInvalidStation)

	_, err = dir.LoadSeries(context.Background(), "/etc/passwd", domain.Tmax)
	require.ErrorIs(t, err, ErrInvalidStation)

	idx, err := domain.LookupIndex("hot_days")
	require.NoError(t, err)
	paths, err := dir.ExportReport(domain.Report{Station: "athens.csv", Index: idx})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "athens_hot_days_heatwaves_events.csv")}, paths)
}
