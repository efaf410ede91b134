package domain

import (
	"math"
	"time"
)

// AnnotatedDay pairs a daily value with the threshold of its calendar day.
type AnnotatedDay struct {
	Date      time.Time
	Value     float64
	Threshold float64
}

// Flag classifies the day against its threshold.
func (d AnnotatedDay) Flag() FlagState {
	switch {
	case math.IsNaN(d.Value) || math.IsNaN(d.Threshold):
		return Undefined
	case d.Value > d.Threshold:
		return Exceed
	default:
		return NonExceed
	}
}

// AnnotatedSeries is a strictly daily series carrying thresholds.
type AnnotatedSeries []AnnotatedDay

// Annotate reindexes series to daily frequency and joins each date with the
// threshold of its calendar day. Date order is preserved.
func Annotate(series Series, thresholds ThresholdTable) AnnotatedSeries {
	daily := series.Reindex()
	out := make(AnnotatedSeries, len(daily))
	for i, o := range daily {
		out[i] = AnnotatedDay{
			Date:      o.Date,
			Value:     o.Value,
			Threshold: thresholds.Lookup(MonthDayOf(o.Date)),
		}
	}
	return out
}

// Series drops the thresholds.
func (a AnnotatedSeries) Series() Series {
	s := make(Series, len(a))
	for i, d := range a {
		s[i] = Observation{Date: d.Date, Value: d.Value}
	}
	return s
}
