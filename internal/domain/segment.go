package domain

import "time"

// FlagState is the exceedance state of a single day.
type FlagState int

const (
	// Undefined marks a day with a missing value or a missing threshold. It
	// is neither an exceedance nor a non-exceedance.
	Undefined FlagState = iota
	NonExceed
	Exceed
)

func (f FlagState) String() string {
	switch f {
	case Exceed:
		return "exceed"
	case NonExceed:
		return "non-exceed"
	default:
		return "undefined"
	}
}

// Event is a run of consecutive exceedance days that lasted at least the
// index's minimum duration. Statistics describe the index variable over the
// run and are rounded to one decimal.
type Event struct {
	Start    time.Time
	End      time.Time
	Duration int
	Mean     float64
	Std      float64
	Max      float64
}

// run is a maximal stretch of consecutive days sharing one flag state.
type run struct {
	state  FlagState
	start  time.Time
	end    time.Time
	values []float64
}

// FindEvents segments the annotated series into heat-wave events.
//
// Days outside season are dropped before segmentation. A new run starts
// whenever the flag state changes or the next kept day is not the calendar
// day after the previous one, so a run never bridges a season gap.
// Consecutive undefined days share one run.
func FindEvents(annotated AnnotatedSeries, idx Index, season Season) []Event {
	var events []Event
	for _, r := range segmentRuns(annotated, season) {
		if r.state != Exceed || len(r.values) < idx.MinDuration {
			continue
		}
		mean, std, maxValue := summarize(r.values)
		events = append(events, Event{
			Start:    r.start,
			End:      r.end,
			Duration: len(r.values),
			Mean:     round1(mean),
			Std:      round1(std),
			Max:      round1(maxValue),
		})
	}
	return events
}

// segmentRuns folds the series into runs of equal flag state.
func segmentRuns(annotated AnnotatedSeries, season Season) []run {
	var (
		runs []run
		cur  *run
	)
	for _, day := range annotated {
		if season.IsSet() && !season.Contains(day.Date.Month()) {
			continue
		}
		state := day.Flag()
		contiguous := cur != nil && Date(day.Date).Equal(Date(cur.end).AddDate(0, 0, 1))
		if cur == nil || state != cur.state || !contiguous {
			runs = append(runs, run{state: state, start: day.Date})
			cur = &runs[len(runs)-1]
		}
		cur.end = day.Date
		cur.values = append(cur.values, day.Value)
	}
	return runs
}
