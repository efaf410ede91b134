package domain

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// yearSeries returns every day of year with base, overridden by hot (1-based
// day-of-year → value).
func yearSeries(year int, base float64, hot map[int]float64) Series {
	var s Series
	start := day(year, 1, 1)
	for d := start; d.Year() == year; d = d.AddDate(0, 0, 1) {
		v := base
		if hv, ok := hot[d.YearDay()]; ok {
			v = hv
		}
		s = append(s, Observation{Date: d, Value: v})
	}
	return s
}

func optionsFor(start, end time.Time, season Season, metrics bool) Options {
	return Options{
		ReferenceStart:    start,
		ReferenceEnd:      end,
		Season:            season,
		ComputeMetrics:    metrics,
		MaxMissingDaysPct: 10,
	}
}

func TestDetect_FixedThresholdScenario(t *testing.T) {
	series := yearSeries(2001, 20, map[int]float64{100: 40, 101: 40, 102: 40, 103: 40, 104: 40})
	require.Len(t, series, 365)

	result, err := Detect(series, fixedIndex(35, 3), optionsFor(day(2001, 1, 1), day(2001, 12, 31), nil, false))
	require.NoError(t, err)

	require.Len(t, result.Events, 1)
	e := result.Events[0]
	assert.Equal(t, day(2001, 4, 10), e.Start)
	assert.Equal(t, day(2001, 4, 14), e.End)
	assert.Equal(t, 5, e.Duration)
	assert.Equal(t, 40.0, e.Max)
	assert.Equal(t, 40.0, e.Mean)
	assert.Equal(t, 0.0, e.Std)
	assert.Nil(t, result.Metrics)
	assert.False(t, result.MetricsComputed)
}

func TestDetect_FixedThresholdEventsExceed(t *testing.T) {
	series := yearSeries(2001, 30, map[int]float64{180: 36, 181: 37, 190: 35, 191: 35.5, 192: 36, 200: 39})
	idx := fixedIndex(35, 1)

	result, err := Detect(series, idx, optionsFor(day(2001, 1, 1), day(2001, 12, 31), SeasonOf(6, 7, 8), true))
	require.NoError(t, err)
	require.NotEmpty(t, result.Events)

	byDate := map[time.Time]float64{}
	for _, o := range series {
		byDate[o.Date] = o.Value
	}
	for _, e := range result.Events {
		assert.GreaterOrEqual(t, e.Duration, idx.MinDuration)
		assert.Equal(t, e.Duration, int(e.End.Sub(e.Start).Hours()/24)+1)
		for d := e.Start; !d.After(e.End); d = d.AddDate(0, 0, 1) {
			assert.Greater(t, byDate[d], 35.0, "day %s inside event", d.Format(dateLayout))
		}
	}

	var seen *float64
	for md, v := range result.Thresholds {
		if math.IsNaN(v) {
			continue
		}
		if seen == nil {
			seen = &v
		}
		assert.Equal(t, *seen, v, "threshold of %s", md)
	}
}

func TestDetect_Idempotent(t *testing.T) {
	var series Series
	for year := 1990; year <= 1995; year++ {
		hot := map[int]float64{}
		for d := 170 + year%7; d < 176+year%7; d++ {
			hot[d] = 30 + float64(year%5)
		}
		series = append(series, yearSeries(year, 22+float64(year%3), hot)...)
	}
	idx, err := LookupIndex("tx90p")
	require.NoError(t, err)
	opts := optionsFor(day(1990, 1, 1), day(1993, 12, 31), SeasonOf(6, 7, 8), true)

	first, err := Detect(series, idx, opts)
	require.NoError(t, err)
	second, err := Detect(series, idx, opts)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Events, second.Events, cmpopts.EquateNaNs()); diff != "" {
		t.Fatalf("events differ between runs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Metrics, second.Metrics, cmpopts.EquateNaNs()); diff != "" {
		t.Fatalf("metrics differ between runs (-first +second):\n%s", diff)
	}
	assert.NotEmpty(t, first.Events)
}

func TestDetect_YearClassesAreDisjoint(t *testing.T) {
	var series Series
	series = append(series, yearSeries(2001, 25, map[int]float64{190: 38, 191: 39, 192: 40})...)
	series = append(series, yearSeries(2002, 25, nil)...)
	incomplete := yearSeries(2003, 25, nil)
	for i := range incomplete {
		if incomplete[i].Date.Month() == time.June && incomplete[i].Date.Day() <= 20 {
			incomplete[i].Value = math.NaN()
		}
	}
	series = append(series, incomplete...)

	result, err := Detect(series, fixedIndex(35, 3), optionsFor(day(2001, 1, 1), day(2003, 12, 31), SeasonOf(6, 7, 8), true))
	require.NoError(t, err)
	require.Len(t, result.Metrics, 2)

	classes := map[int]string{}
	for _, m := range result.Metrics {
		_, dup := classes[m.Year]
		require.False(t, dup, "year %d listed twice", m.Year)
		if m.HasHeatWaves() {
			classes[m.Year] = "heat wave"
		} else {
			classes[m.Year] = "valid, none"
		}
	}
	assert.Equal(t, map[int]string{2001: "heat wave", 2002: "valid, none"}, classes)
	// (25 * 256 + 38 + 39 + 40 - 75) / 256 valid in-season days.
	assert.Equal(t, 25.2, result.ReferenceMean)
}

func TestDetect_GapsAreReindexed(t *testing.T) {
	series := Series{
		{Date: day(2001, 7, 1), Value: 40},
		{Date: day(2001, 7, 2), Value: 40},
		// 07-03 absent
		{Date: day(2001, 7, 4), Value: 40},
		{Date: day(2001, 7, 5), Value: 40},
	}

	result, err := Detect(series, fixedIndex(35, 2), optionsFor(day(2001, 1, 1), day(2001, 12, 31), nil, false))
	require.NoError(t, err)

	require.Len(t, result.Events, 2)
	assert.Equal(t, day(2001, 7, 2), result.Events[0].End)
	assert.Equal(t, day(2001, 7, 4), result.Events[1].Start)
}

func TestDetect_ConfigurationErrorsFailFast(t *testing.T) {
	series := yearSeries(2001, 20, nil)

	_, err := Detect(series, Index{Name: "bare", Variable: Tmax, MinDuration: 1, WindowLength: 1}, DefaultOptions())
	require.ErrorIs(t, err, ErrNoThreshold)

	opts := DefaultOptions()
	opts.MaxMissingDaysPct = 150
	_, err = Detect(series, fixedIndex(35, 1), opts)
	require.ErrorIs(t, err, ErrInvalidOptions)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, day(1961, 1, 1), opts.ReferenceStart)
	assert.Equal(t, day(1990, 12, 31), opts.ReferenceEnd)
	assert.Equal(t, SeasonOf(6, 7, 8), opts.Season)
	assert.True(t, opts.ComputeMetrics)
	assert.Equal(t, 10.0, opts.MaxMissingDaysPct)
	require.NoError(t, opts.Validate())
}
