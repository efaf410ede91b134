package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrNoThreshold is returned when an index defines neither a percentile nor
	// a fixed threshold.
	ErrNoThreshold = errors.New("index needs a percentile or a fixed threshold")

	// ErrInvalidIndex is returned for out-of-range index parameters.
	ErrInvalidIndex = errors.New("invalid index definition")

	// ErrUnknownIndex is returned by LookupIndex for names outside the
	// predefined table.
	ErrUnknownIndex = errors.New("unknown index")
)

// Variable selects the measured quantity of a station series.
type Variable string

const (
	Tmin Variable = "tmin"
	Tmax Variable = "tmax"
)

// ParseVariable accepts "tmin" or "tmax", case-insensitively.
func ParseVariable(s string) (Variable, error) {
	switch v := Variable(strings.ToLower(strings.TrimSpace(s))); v {
	case Tmin, Tmax:
		return v, nil
	default:
		return "", fmt.Errorf("%w: variable %q", ErrInvalidIndex, s)
	}
}

// Index defines one heat-wave detection rule. When both Percentile and
// FixedThreshold are set, Percentile wins.
type Index struct {
	Name           string
	Variable       Variable
	Percentile     *float64
	FixedThreshold *float64
	MinDuration    int
	WindowLength   int
}

// UsesPercentile reports whether thresholds come from the reference period.
func (idx Index) UsesPercentile() bool { return idx.Percentile != nil }

// Validate checks the index before any computation runs.
func (idx Index) Validate() error {
	if idx.Percentile == nil && idx.FixedThreshold == nil {
		return fmt.Errorf("index %q: %w", idx.Name, ErrNoThreshold)
	}
	if idx.Variable != Tmin && idx.Variable != Tmax {
		return fmt.Errorf("%w: index %q has variable %q", ErrInvalidIndex, idx.Name, idx.Variable)
	}
	if idx.Percentile != nil && (math.IsNaN(*idx.Percentile) || *idx.Percentile < 0 || *idx.Percentile > 100) {
		return fmt.Errorf("%w: index %q percentile %g outside [0, 100]", ErrInvalidIndex, idx.Name, *idx.Percentile)
	}
	if idx.FixedThreshold != nil && (math.IsNaN(*idx.FixedThreshold) || math.IsInf(*idx.FixedThreshold, 0)) {
		return fmt.Errorf("%w: index %q fixed threshold %g is not finite", ErrInvalidIndex, idx.Name, *idx.FixedThreshold)
	}
	if idx.MinDuration < 1 {
		return fmt.Errorf("%w: index %q min duration %d", ErrInvalidIndex, idx.Name, idx.MinDuration)
	}
	if idx.WindowLength < 1 {
		return fmt.Errorf("%w: index %q window length %d", ErrInvalidIndex, idx.Name, idx.WindowLength)
	}
	return nil
}

// String describes the index for logs.
func (idx Index) String() string {
	var rule string
	switch {
	case idx.Percentile != nil:
		rule = fmt.Sprintf("p%g", *idx.Percentile)
	case idx.FixedThreshold != nil:
		rule = fmt.Sprintf(">%g", *idx.FixedThreshold)
	default:
		rule = "unset"
	}
	return fmt.Sprintf("%s(%s %s, min=%d, window=%d)", idx.Name, idx.Variable, rule, idx.MinDuration, idx.WindowLength)
}
