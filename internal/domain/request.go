package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRequest is returned for detection requests that cannot be run.
var ErrInvalidRequest = errors.New("invalid detection request")

const dateLayout = "2006-01-02"

// CustomIndex is the wire form of a user-defined index.
type CustomIndex struct {
	Name           string   `json:"name,omitempty"`
	Variable       string   `json:"variable"`
	Percentile     *float64 `json:"percentile,omitempty"`
	FixedThreshold *float64 `json:"fixed_threshold,omitempty"`
	MinDuration    int      `json:"min_duration"`
	WindowLength   int      `json:"window_length,omitempty"`
}

// DetectionRequest asks for one station to be scanned with one index. Unset
// option fields fall back to the service defaults; an explicit empty Season
// disables the seasonal restriction.
type DetectionRequest struct {
	Station           string       `json:"station"`
	Index             string       `json:"index,omitempty"`
	Custom            *CustomIndex `json:"custom,omitempty"`
	ReferenceStart    string       `json:"reference_start,omitempty"`
	ReferenceEnd      string       `json:"reference_end,omitempty"`
	Season            *[]int       `json:"season,omitempty"`
	Metrics           *bool        `json:"metrics,omitempty"`
	MaxMissingDaysPct *float64     `json:"max_missing_days_pct,omitempty"`
}

// ParseDetectionRequest decodes a request from a raw message.
func ParseDetectionRequest(raw RawMessage) (DetectionRequest, error) {
	var req DetectionRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return DetectionRequest{}, fmt.Errorf("parse detection request: %w", err)
	}
	if strings.TrimSpace(req.Station) == "" {
		return DetectionRequest{}, fmt.Errorf("%w: station is required", ErrInvalidRequest)
	}
	if req.Index == "" && req.Custom == nil {
		return DetectionRequest{}, fmt.Errorf("%w: index or custom index is required", ErrInvalidRequest)
	}
	return req, nil
}

// ResolveIndex returns the predefined index named in the request, or builds
// the custom one. A named index wins over a custom definition.
func (r DetectionRequest) ResolveIndex() (Index, error) {
	if r.Index != "" {
		return LookupIndex(r.Index)
	}
	if r.Custom == nil {
		return Index{}, fmt.Errorf("%w: no index", ErrInvalidRequest)
	}
	variable, err := ParseVariable(r.Custom.Variable)
	if err != nil {
		return Index{}, err
	}
	return NewIndex(r.Custom.Name, variable, r.Custom.Percentile, r.Custom.FixedThreshold, r.Custom.MinDuration, r.Custom.WindowLength)
}

// ResolveOptions overlays the request's option fields on defaults.
func (r DetectionRequest) ResolveOptions(defaults Options) (Options, error) {
	opts := defaults
	if r.ReferenceStart != "" {
		t, err := time.Parse(dateLayout, r.ReferenceStart)
		if err != nil {
			return Options{}, fmt.Errorf("%w: reference_start: %w", ErrInvalidRequest, err)
		}
		opts.ReferenceStart = t
	}
	if r.ReferenceEnd != "" {
		t, err := time.Parse(dateLayout, r.ReferenceEnd)
		if err != nil {
			return Options{}, fmt.Errorf("%w: reference_end: %w", ErrInvalidRequest, err)
		}
		opts.ReferenceEnd = t
	}
	if r.Season != nil {
		for _, m := range *r.Season {
			if m < 1 || m > 12 {
				return Options{}, fmt.Errorf("%w: season month %d", ErrInvalidRequest, m)
			}
		}
		opts.Season = SeasonOf(*r.Season...)
	}
	if r.Metrics != nil {
		opts.ComputeMetrics = *r.Metrics
	}
	if r.MaxMissingDaysPct != nil {
		opts.MaxMissingDaysPct = *r.MaxMissingDaysPct
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}
