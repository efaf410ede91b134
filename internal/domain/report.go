package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Report is the published outcome of one detection request.
type Report struct {
	RunID           string
	Station         string
	Index           Index
	Options         Options
	ReferenceMean   float64
	Events          []Event
	Metrics         []AnnualMetrics
	MetricsComputed bool
	ProcessedAt     time.Time
}

// NewReport wraps a detection result and stamps it with the package clock.
func NewReport(runID, station string, idx Index, opts Options, result Result) Report {
	return Report{
		RunID:           runID,
		Station:         station,
		Index:           idx,
		Options:         opts,
		ReferenceMean:   result.ReferenceMean,
		Events:          result.Events,
		Metrics:         result.Metrics,
		MetricsComputed: result.MetricsComputed,
		ProcessedAt:     clock.Now().UTC(),
	}
}

// Key identifies the station/index pair a report belongs to.
func (r Report) Key() string {
	return r.Station + "|" + r.Index.Name
}

// EventJSON is the wire form of an Event. Undefined statistics are null.
type EventJSON struct {
	BeginDate string   `json:"begin_date"`
	EndDate   string   `json:"end_date"`
	Duration  int      `json:"duration"`
	Mean      *float64 `json:"mean"`
	Std       *float64 `json:"std"`
	Max       *float64 `json:"max"`
}

// MetricsJSON is the wire form of AnnualMetrics. Absent metrics are null.
type MetricsJSON struct {
	Year int      `json:"year"`
	HWN  int      `json:"hwn"`
	HWF  int      `json:"hwf"`
	HWD  *float64 `json:"hwd"`
	HWDM *float64 `json:"hwdm"`
	HWM  *float64 `json:"hwm"`
	HWMA *float64 `json:"hwma"`
	HWA  *float64 `json:"hwa"`
	HWAA *float64 `json:"hwaa"`
}

// ReportJSON is the wire form of a Report.
type ReportJSON struct {
	RunID          string        `json:"run_id"`
	Station        string        `json:"station"`
	Index          string        `json:"index"`
	Variable       string        `json:"variable"`
	Season         []int         `json:"season"`
	ReferenceStart string        `json:"reference_start"`
	ReferenceEnd   string        `json:"reference_end"`
	ReferenceMean  *float64      `json:"reference_mean"`
	Events         []EventJSON   `json:"events"`
	Metrics        []MetricsJSON `json:"metrics,omitempty"`
	ProcessedAt    time.Time     `json:"processed_at"`
}

// MarshalJSON renders NaN values as null.
func (r Report) MarshalJSON() ([]byte, error) {
	out := ReportJSON{
		RunID:          r.RunID,
		Station:        r.Station,
		Index:          r.Index.Name,
		Variable:       string(r.Index.Variable),
		Season:         make([]int, len(r.Options.Season)),
		ReferenceStart: r.Options.ReferenceStart.Format(dateLayout),
		ReferenceEnd:   r.Options.ReferenceEnd.Format(dateLayout),
		ReferenceMean:  nullable(r.ReferenceMean),
		Events:         make([]EventJSON, len(r.Events)),
		ProcessedAt:    r.ProcessedAt,
	}
	for i, m := range r.Options.Season {
		out.Season[i] = int(m)
	}
	for i, e := range r.Events {
		out.Events[i] = EventJSON{
			BeginDate: e.Start.Format(dateLayout),
			EndDate:   e.End.Format(dateLayout),
			Duration:  e.Duration,
			Mean:      nullable(e.Mean),
			Std:       nullable(e.Std),
			Max:       nullable(e.Max),
		}
	}
	if r.MetricsComputed {
		out.Metrics = make([]MetricsJSON, len(r.Metrics))
		for i, m := range r.Metrics {
			out.Metrics[i] = MetricsJSON{
				Year: m.Year,
				HWN:  m.HWN,
				HWF:  m.HWF,
				HWD:  nullable(m.HWD),
				HWDM: nullable(m.HWDM),
				HWM:  nullable(m.HWM),
				HWMA: nullable(m.HWMA),
				HWA:  nullable(m.HWA),
				HWAA: nullable(m.HWAA),
			}
		}
	}
	return json.Marshal(out)
}

// DecodeEvents converts wire events back into Events, null becoming NaN.
func DecodeEvents(in []EventJSON) ([]Event, error) {
	events := make([]Event, len(in))
	for i, e := range in {
		start, err := time.Parse(dateLayout, e.BeginDate)
		if err != nil {
			return nil, fmt.Errorf("decode event %d: %w", i, err)
		}
		end, err := time.Parse(dateLayout, e.EndDate)
		if err != nil {
			return nil, fmt.Errorf("decode event %d: %w", i, err)
		}
		events[i] = Event{
			Start:    start,
			End:      end,
			Duration: e.Duration,
			Mean:     orNaN(e.Mean),
			Std:      orNaN(e.Std),
			Max:      orNaN(e.Max),
		}
	}
	return events, nil
}

// SerializeReport builds the sink message for a report.
func SerializeReport(r Report) (OutputMessage, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return OutputMessage{}, fmt.Errorf("serialize report: %w", err)
	}
	return OutputMessage{
		Key:   []byte(r.Key()),
		Value: data,
		Headers: map[string]string{
			"station":      r.Station,
			"index":        r.Index.Name,
			"run_id":       r.RunID,
			"processed_at": r.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
