package domain

import (
	"fmt"
	"sort"
)

// predefinedIndices follows the naming of Perkins & Alexander (2013) plus a few
// fixed-threshold counts in common use.
var predefinedIndices = map[string]Index{
	"ctn90pct":             {Variable: Tmin, Percentile: ptr(90.0), MinDuration: 3, WindowLength: 15},
	"ctn95pct":             {Variable: Tmin, Percentile: ptr(95.0), MinDuration: 3, WindowLength: 15},
	"ctx90pct":             {Variable: Tmax, Percentile: ptr(90.0), MinDuration: 3, WindowLength: 15},
	"ctx95pct":             {Variable: Tmax, Percentile: ptr(95.0), MinDuration: 3, WindowLength: 15},
	"hot_days":             {Variable: Tmax, FixedThreshold: ptr(35.0), MinDuration: 1, WindowLength: 1},
	"hot_events_daytime":   {Variable: Tmax, FixedThreshold: ptr(35.0), MinDuration: 3, WindowLength: 1},
	"hot_events_nighttime": {Variable: Tmin, FixedThreshold: ptr(20.0), MinDuration: 3, WindowLength: 1},
	"summer_days":          {Variable: Tmax, FixedThreshold: ptr(25.0), MinDuration: 1, WindowLength: 1},
	"tn90p":                {Variable: Tmin, Percentile: ptr(90.0), MinDuration: 1, WindowLength: 5},
	"tropical_nights":      {Variable: Tmin, FixedThreshold: ptr(20.0), MinDuration: 1, WindowLength: 1},
	"tx90p":                {Variable: Tmax, Percentile: ptr(90.0), MinDuration: 1, WindowLength: 5},
	"wsdi":                 {Variable: Tmax, Percentile: ptr(90.0), MinDuration: 6, WindowLength: 5},
	"test_index":           {Variable: Tmax, Percentile: ptr(90.0), MinDuration: 3, WindowLength: 3},
}

// LookupIndex returns a predefined index by name.
func LookupIndex(name string) (Index, error) {
	idx, ok := predefinedIndices[name]
	if !ok {
		return Index{}, fmt.Errorf("%w: %q", ErrUnknownIndex, name)
	}
	idx.Name = name
	return idx, nil
}

// IndexNames lists the predefined index names in sorted order.
func IndexNames() []string {
	names := make([]string, 0, len(predefinedIndices))
	for name := range predefinedIndices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewIndex builds a custom index. An empty name becomes "custom" and a
// non-positive window length becomes 1. The result is validated.
func NewIndex(name string, variable Variable, pct, fixed *float64, minDuration, windowLength int) (Index, error) {
	if name == "" {
		name = "custom"
	}
	if windowLength <= 0 {
		windowLength = 1
	}
	idx := Index{
		Name:           name,
		Variable:       variable,
		Percentile:     pct,
		FixedThreshold: fixed,
		MinDuration:    minDuration,
		WindowLength:   windowLength,
	}
	if err := idx.Validate(); err != nil {
		return Index{}, err
	}
	return idx, nil
}

func ptr[T any](v T) *T { return &v }
