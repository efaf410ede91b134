package domain

import (
	"fmt"
	"math"
	"time"
)

// MonthDay is a year-agnostic calendar-day label.
type MonthDay struct {
	Month time.Month
	Day   int
}

// MonthDayOf returns the calendar-day label of t.
func MonthDayOf(t time.Time) MonthDay {
	return MonthDay{Month: t.Month(), Day: t.Day()}
}

// String renders the label as "MM-DD".
func (md MonthDay) String() string {
	return fmt.Sprintf("%02d-%02d", int(md.Month), md.Day)
}

// Observation is one daily value. NaN marks a missing value.
type Observation struct {
	Date  time.Time
	Value float64
}

// Missing reports whether the observation carries no value.
func (o Observation) Missing() bool { return math.IsNaN(o.Value) }

// Series is a daily observation series with strictly increasing dates.
type Series []Observation

// Date truncates t to a UTC calendar date.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Reindex returns the series at strict daily frequency over its full span.
// Dates absent from the input are inserted with a missing value.
func (s Series) Reindex() Series {
	if len(s) == 0 {
		return nil
	}
	first, last := Date(s[0].Date), Date(s[len(s)-1].Date)
	days := daysBetween(first, last) + 1

	out := make(Series, 0, days)
	i := 0
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		obs := Observation{Date: d, Value: math.NaN()}
		for i < len(s) && Date(s[i].Date).Before(d) {
			i++
		}
		if i < len(s) && Date(s[i].Date).Equal(d) {
			obs.Value = s[i].Value
			i++
		}
		out = append(out, obs)
	}
	return out
}

// Between returns the observations dated within [start, end], inclusive.
func (s Series) Between(start, end time.Time) Series {
	start, end = Date(start), Date(end)
	var out Series
	for _, o := range s {
		d := Date(o.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// InSeason returns the observations whose month belongs to season. Without a
// season the series is returned unchanged.
func (s Series) InSeason(season Season) Series {
	if !season.IsSet() {
		return s
	}
	var out Series
	for _, o := range s {
		if season.Contains(o.Date.Month()) {
			out = append(out, o)
		}
	}
	return out
}

// Values returns the raw values, missing ones included as NaN.
func (s Series) Values() []float64 {
	values := make([]float64, len(s))
	for i, o := range s {
		values[i] = o.Value
	}
	return values
}

func daysBetween(a, b time.Time) int {
	return int(math.Round(Date(b).Sub(Date(a)).Hours() / 24))
}
