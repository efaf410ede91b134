package domain

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStation = "athens.csv"

func TestLookupIndex(t *testing.T) {
	tests := []struct {
		name        string
		variable    Variable
		percentile  *float64
		fixed       *float64
		minDuration int
		window      int
	}{
		{"ctx90pct", Tmax, ptr(90.0), nil, 3, 15},
		{"ctn95pct", Tmin, ptr(95.0), nil, 3, 15},
		{"hot_days", Tmax, nil, ptr(35.0), 1, 1},
		{"tropical_nights", Tmin, nil, ptr(20.0), 1, 1},
		{"wsdi", Tmax, ptr(90.0), nil, 6, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := LookupIndex(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.name, idx.Name)
			assert.Equal(t, tt.variable, idx.Variable)
			assert.Equal(t, tt.percentile, idx.Percentile)
			assert.Equal(t, tt.fixed, idx.FixedThreshold)
			assert.Equal(t, tt.minDuration, idx.MinDuration)
			assert.Equal(t, tt.window, idx.WindowLength)
			require.NoError(t, idx.Validate())
		})
	}

	_, err := LookupIndex("tx99p")
	require.ErrorIs(t, err, ErrUnknownIndex)
	assert.Len(t, IndexNames(), 13)
}

func TestNewIndex_Defaults(t *testing.T) {
	idx, err := NewIndex("", Tmax, ptr(95.0), nil, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, "custom", idx.Name)
	assert.Equal(t, 1, idx.WindowLength)

	_, err = NewIndex("x", Tmax, nil, nil, 3, 5)
	require.ErrorIs(t, err, ErrNoThreshold)

	_, err = NewIndex("x", Tmax, ptr(120.0), nil, 3, 5)
	require.ErrorIs(t, err, ErrInvalidIndex)

	_, err = NewIndex("x", Tmax, nil, ptr(30.0), 0, 5)
	require.ErrorIs(t, err, ErrInvalidIndex)
}

func TestIndexValidate_NonFiniteParameters(t *testing.T) {
	tests := []struct {
		name  string
		pct   *float64
		fixed *float64
	}{
		{"NaN percentile", ptr(math.NaN()), nil},
		{"NaN fixed threshold", nil, ptr(math.NaN())},
		{"+Inf fixed threshold", nil, ptr(math.Inf(1))},
		{"-Inf fixed threshold", nil, ptr(math.Inf(-1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := Index{Name: "x", Variable: Tmax, Percentile: tt.pct, FixedThreshold: tt.fixed, MinDuration: 1, WindowLength: 1}
			require.ErrorIs(t, idx.Validate(), ErrInvalidIndex)

			_, err := Detect(Series{{Date: day(1961, 7, 1), Value: 30}}, idx, DefaultOptions())
			require.ErrorIs(t, err, ErrInvalidIndex)
		})
	}
}

func TestParseDetectionRequest(t *testing.T) {
	t.Run("named index with overrides", func(t *testing.T) {
		raw := RawMessage{Value: []byte(`{"station":"athens.csv","index":"tx90p","reference_start":"1971-01-01","reference_end":"2000-12-31","season":[12,1,2],"metrics":false,"max_missing_days_pct":5}`)}

		req, err := ParseDetectionRequest(raw)
		require.NoError(t, err)

		idx, err := req.ResolveIndex()
		require.NoError(t, err)
		assert.Equal(t, "tx90p", idx.Name)

		opts, err := req.ResolveOptions(DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, day(1971, 1, 1), opts.ReferenceStart)
		assert.Equal(t, day(2000, 12, 31), opts.ReferenceEnd)
		assert.Equal(t, SeasonOf(12, 1, 2), opts.Season)
		assert.False(t, opts.ComputeMetrics)
		assert.Equal(t, 5.0, opts.MaxMissingDaysPct)
	})

	t.Run("custom index and defaults", func(t *testing.T) {
		raw := RawMessage{Value: []byte(`{"station":"athens.csv","custom":{"variable":"tmin","fixed_threshold":25,"min_duration":2}}`)}

		req, err := ParseDetectionRequest(raw)
		require.NoError(t, err)

		idx, err := req.ResolveIndex()
		require.NoError(t, err)
		assert.Equal(t, "custom", idx.Name)
		assert.Equal(t, Tmin, idx.Variable)
		assert.Equal(t, 25.0, *idx.FixedThreshold)

		opts, err := req.ResolveOptions(DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, DefaultOptions(), opts)
	})

	t.Run("explicit empty season disables restriction", func(t *testing.T) {
		req, err := ParseDetectionRequest(RawMessage{Value: []byte(`{"station":"a.csv","index":"hot_days","season":[]}`)})
		require.NoError(t, err)

		opts, err := req.ResolveOptions(DefaultOptions())
		require.NoError(t, err)
		assert.False(t, opts.Season.IsSet())
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseDetectionRequest(RawMessage{Value: []byte("{invalid")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse detection request")
	})

	t.Run("missing station", func(t *testing.T) {
		_, err := ParseDetectionRequest(RawMessage{Value: []byte(`{"index":"tx90p"}`)})
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("missing index", func(t *testing.T) {
		_, err := ParseDetectionRequest(RawMessage{Value: []byte(`{"station":"a.csv"}`)})
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("bad season month", func(t *testing.T) {
		req, err := ParseDetectionRequest(RawMessage{Value: []byte(`{"station":"a.csv","index":"tx90p","season":[13]}`)})
		require.NoError(t, err)
		_, err = req.ResolveOptions(DefaultOptions())
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("bad reference date", func(t *testing.T) {
		req, err := ParseDetectionRequest(RawMessage{Value: []byte(`{"station":"a.csv","index":"tx90p","reference_start":"01/01/1961"}`)})
		require.NoError(t, err)
		_, err = req.ResolveOptions(DefaultOptions())
		require.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestSerializeReport(t *testing.T) {
	fixed := time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { SetClock(nil) })

	idx, err := LookupIndex("hot_days")
	require.NoError(t, err)
	result := Result{
		Events: []Event{
			{Start: day(2003, 8, 1), End: day(2003, 8, 1), Duration: 1, Mean: 36.2, Std: math.NaN(), Max: 36.2},
		},
		Metrics: []AnnualMetrics{
			{Year: 2003, HWN: 1, HWF: 1, HWD: 1, HWDM: 1, HWM: 8.2, HWMA: 36.2, HWA: 8.2, HWAA: 36.2},
			noHeatWaveYear(2004),
		},
		MetricsComputed: true,
		ReferenceMean:   28.0,
	}
	report := NewReport("run-1", testStation, idx, DefaultOptions(), result)
	assert.Equal(t, fixed, report.ProcessedAt)

	out, err := SerializeReport(report)
	require.NoError(t, err)
	assert.Equal(t, []byte("athens.csv|hot_days"), out.Key)
	assert.Equal(t, "hot_days", out.Headers["index"])
	assert.Equal(t, "run-1", out.Headers["run_id"])
	assert.Equal(t, fixed.Format(time.RFC3339), out.Headers["processed_at"])

	var decoded ReportJSON
	require.NoError(t, json.Unmarshal(out.Value, &decoded))
	assert.Equal(t, "tmax", decoded.Variable)
	assert.Equal(t, []int{6, 7, 8}, decoded.Season)
	require.Len(t, decoded.Events, 1)
	assert.Equal(t, "2003-08-01", decoded.Events[0].BeginDate)
	assert.Nil(t, decoded.Events[0].Std)
	require.Len(t, decoded.Metrics, 2)
	assert.Equal(t, 0, decoded.Metrics[1].HWN)
	assert.Nil(t, decoded.Metrics[1].HWD)

	events, err := DecodeEvents(decoded.Events)
	require.NoError(t, err)
	assert.Equal(t, day(2003, 8, 1), events[0].Start)
	assert.True(t, math.IsNaN(events[0].Std))
	assert.Equal(t, 36.2, events[0].Max)
}
