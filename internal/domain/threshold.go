package domain

import "math"

// ThresholdTable maps calendar days to their exceedance threshold. A NaN or
// absent entry means the day has no valid threshold and can never exceed.
type ThresholdTable map[MonthDay]float64

// Lookup returns the threshold for md, NaN when there is none.
func (t ThresholdTable) Lookup(md MonthDay) float64 {
	v, ok := t[md]
	if !ok {
		return math.NaN()
	}
	return v
}

// ComputeThresholds derives the per-calendar-day thresholds of idx.
//
// In percentile mode every reference value whose calendar day belongs to the
// window of day d is pooled, regardless of year, and the percentile of the
// pool becomes the threshold of d. In fixed mode every retained day gets the
// fixed value. When extended is set, days outside its months get NaN.
func ComputeThresholds(windows CalendarWindows, reference Series, idx Index, extended Season) (ThresholdTable, error) {
	if err := idx.Validate(); err != nil {
		return nil, err
	}

	var byDay map[MonthDay][]float64
	if idx.UsesPercentile() {
		byDay = make(map[MonthDay][]float64, CalendarDays)
		for _, o := range reference {
			md := MonthDayOf(o.Date)
			byDay[md] = append(byDay[md], o.Value)
		}
	}

	table := make(ThresholdTable, len(windows))
	for _, w := range windows {
		if extended.IsSet() && !extended.Contains(w.Day.Month) {
			table[w.Day] = math.NaN()
			continue
		}
		if !idx.UsesPercentile() {
			table[w.Day] = *idx.FixedThreshold
			continue
		}

		var pool []float64
		for _, member := range w.Members {
			pool = append(pool, byDay[member]...)
		}
		table[w.Day] = NaNPercentile(pool, *idx.Percentile)
	}
	return table, nil
}
