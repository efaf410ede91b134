package domain

import (
	"math"
	"sort"
)

// AnnualMetrics summarizes the heat waves of one calendar year. NaN marks a
// metric that does not apply, e.g. every duration and magnitude metric of a
// valid year without heat waves.
//
//	HWN  number of events
//	HWF  total event days
//	HWD  longest event, days
//	HWDM mean event duration, days
//	HWM  mean of event maxima, anomaly vs. the reference mean
//	HWMA mean of event maxima, absolute
//	HWA  maximum of the hottest event, anomaly vs. the reference mean
//	HWAA maximum of the hottest event, absolute
type AnnualMetrics struct {
	Year int
	HWN  int
	HWF  int
	HWD  float64
	HWDM float64
	HWM  float64
	HWMA float64
	HWA  float64
	HWAA float64
}

// HasHeatWaves reports whether the year produced at least one event.
func (m AnnualMetrics) HasHeatWaves() bool { return m.HWN > 0 }

func noHeatWaveYear(year int) AnnualMetrics {
	nan := math.NaN()
	return AnnualMetrics{Year: year, HWD: nan, HWDM: nan, HWM: nan, HWMA: nan, HWA: nan, HWAA: nan}
}

// ReferenceMean averages the non-missing reference values inside the season,
// rounded to one decimal.
func ReferenceMean(reference Series, season Season) float64 {
	return round1(nanMean(reference.InSeason(season).Values()))
}

// ComputeAnnualMetrics aggregates events per calendar year of their start
// date and reconciles years without events against data completeness.
//
// A year without events is reported as a zero row only when its count of
// missing in-season days stays strictly below MaxMissingDays; otherwise it is
// left out. Years with events are always reported.
func ComputeAnnualMetrics(events []Event, reference Series, annotated AnnotatedSeries, maxMissingPct float64, season Season) []AnnualMetrics {
	refMean := ReferenceMean(reference, season)

	rows := make(map[int]AnnualMetrics)
	for year, yearEvents := range eventsByYear(events) {
		rows[year] = summarizeYear(year, yearEvents, refMean)
	}

	limit := MaxMissingDays(maxMissingPct, season)
	for year, missing := range missingDaysByYear(annotated, season) {
		if missing >= limit {
			continue
		}
		if _, ok := rows[year]; !ok {
			rows[year] = noHeatWaveYear(year)
		}
	}

	out := make([]AnnualMetrics, 0, len(rows))
	for _, row := range rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

func eventsByYear(events []Event) map[int][]Event {
	byYear := make(map[int][]Event)
	for _, e := range events {
		byYear[e.Start.Year()] = append(byYear[e.Start.Year()], e)
	}
	return byYear
}

// summarizeYear computes the metrics of a year with at least one event.
// events must be ordered by start date; the earliest of equally hot events
// is the hottest.
func summarizeYear(year int, events []Event, refMean float64) AnnualMetrics {
	var (
		totalDays   int
		longest     int
		sumOfMaxima float64
		hottest     = events[0]
	)
	for _, e := range events {
		totalDays += e.Duration
		longest = max(longest, e.Duration)
		sumOfMaxima += e.Max
		if e.Mean > hottest.Mean {
			hottest = e
		}
	}

	n := float64(len(events))
	meanOfMaxima := round1(sumOfMaxima / n)
	return AnnualMetrics{
		Year: year,
		HWN:  len(events),
		HWF:  totalDays,
		HWD:  float64(longest),
		HWDM: round1(float64(totalDays) / n),
		HWM:  round1(meanOfMaxima - refMean),
		HWMA: meanOfMaxima,
		HWA:  round1(hottest.Max - refMean),
		HWAA: hottest.Max,
	}
}

// missingDaysByYear counts missing in-season values per calendar year.
func missingDaysByYear(annotated AnnotatedSeries, season Season) map[int]int {
	counts := make(map[int]int)
	for _, d := range annotated {
		if season.IsSet() && !season.Contains(d.Date.Month()) {
			continue
		}
		year := d.Date.Year()
		if _, ok := counts[year]; !ok {
			counts[year] = 0
		}
		if math.IsNaN(d.Value) {
			counts[year]++
		}
	}
	return counts
}
