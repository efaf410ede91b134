package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceMean(t *testing.T) {
	ref := Series{
		{Date: day(1970, 6, 1), Value: 30},
		{Date: day(1970, 6, 2), Value: math.NaN()},
		{Date: day(1970, 7, 1), Value: 31},
		{Date: day(1970, 12, 1), Value: 5},
	}

	assert.Equal(t, 30.5, ReferenceMean(ref, SeasonOf(6, 7, 8)))
	assert.Equal(t, 22.0, ReferenceMean(ref, nil))
	assert.True(t, math.IsNaN(ReferenceMean(ref, SeasonOf(1))))
}

func TestSummarizeYear(t *testing.T) {
	events := []Event{
		{Start: day(2003, 6, 10), End: day(2003, 6, 12), Duration: 3, Mean: 37.0, Max: 38.0},
		{Start: day(2003, 7, 1), End: day(2003, 7, 6), Duration: 6, Mean: 39.5, Max: 41.2},
		{Start: day(2003, 8, 2), End: day(2003, 8, 5), Duration: 4, Mean: 36.1, Max: 37.3},
	}

	row := summarizeYear(2003, events, 30.0)

	assert.Equal(t, 2003, row.Year)
	assert.Equal(t, 3, row.HWN)
	assert.Equal(t, 13, row.HWF)
	assert.Equal(t, 6.0, row.HWD)
	assert.Equal(t, 4.3, row.HWDM)
	assert.Equal(t, 38.8, row.HWMA)
	assert.Equal(t, 8.8, row.HWM)
	assert.Equal(t, 41.2, row.HWAA)
	assert.Equal(t, 11.2, row.HWA)
}

func TestSummarizeYear_TiePicksEarliest(t *testing.T) {
	events := []Event{
		{Start: day(2003, 6, 10), Duration: 3, Mean: 39.0, Max: 40.0},
		{Start: day(2003, 7, 10), Duration: 3, Mean: 39.0, Max: 42.0},
	}

	row := summarizeYear(2003, events, 30.0)

	assert.Equal(t, 40.0, row.HWAA)
	assert.Equal(t, 10.0, row.HWA)
}

// winterSeries covers 2001-2002 daily with value 10 and NaN on the given
// number of January days per year.
func winterSeries(missing map[int]int) AnnotatedSeries {
	var out AnnotatedSeries
	for d := day(2001, 1, 1); d.Year() <= 2002; d = d.AddDate(0, 0, 1) {
		v := 10.0
		if d.Month() == 1 && d.Day() <= missing[d.Year()] {
			v = math.NaN()
		}
		out = append(out, AnnotatedDay{Date: d, Value: v, Threshold: 35})
	}
	return out
}

func TestComputeAnnualMetrics_MissingDaysBoundary(t *testing.T) {
	season := SeasonOf(12, 1, 2)
	require.Equal(t, 90, season.Days())
	require.Equal(t, 9, MaxMissingDays(10, season))

	annotated := winterSeries(map[int]int{2001: 9, 2002: 8})

	rows := ComputeAnnualMetrics(nil, annotated.Series(), annotated, 10, season)

	require.Len(t, rows, 1)
	assert.Equal(t, 2002, rows[0].Year)
	assert.Equal(t, 0, rows[0].HWN)
	assert.Equal(t, 0, rows[0].HWF)
	assert.True(t, math.IsNaN(rows[0].HWD))
	assert.True(t, math.IsNaN(rows[0].HWAA))
}

func TestComputeAnnualMetrics_EventYearsAlwaysReported(t *testing.T) {
	annotated := winterSeries(map[int]int{2001: 31, 2002: 0})
	events := []Event{{Start: day(2001, 2, 10), End: day(2001, 2, 12), Duration: 3, Mean: 12, Max: 13}}

	rows := ComputeAnnualMetrics(events, annotated.Series(), annotated, 10, SeasonOf(12, 1, 2))

	require.Len(t, rows, 2)
	assert.Equal(t, 2001, rows[0].Year)
	assert.Equal(t, 1, rows[0].HWN)
	assert.Equal(t, 2002, rows[1].Year)
	assert.Equal(t, 0, rows[1].HWN)
}

func TestComputeAnnualMetrics_SortedByYear(t *testing.T) {
	annotated := winterSeries(nil)
	events := []Event{
		{Start: day(2002, 1, 5), Duration: 3, Mean: 12, Max: 13},
		{Start: day(2001, 1, 5), Duration: 3, Mean: 12, Max: 13},
	}

	rows := ComputeAnnualMetrics(events, annotated.Series(), annotated, 10, SeasonOf(12, 1, 2))

	require.Len(t, rows, 2)
	assert.Less(t, rows[0].Year, rows[1].Year)
}
