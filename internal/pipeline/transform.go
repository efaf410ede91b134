package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/heatwave-etl/internal/domain"
)

// DetectionTransformer implements Transformer by running the request through
// a Detector and serializing the report.
type DetectionTransformer struct {
	detector *Detector
	logger   *slog.Logger
}

// NewTransformer creates a DetectionTransformer.
func NewTransformer(detector *Detector, logger *slog.Logger) *DetectionTransformer {
	return &DetectionTransformer{
		detector: detector,
		logger:   logger,
	}
}

func (t *DetectionTransformer) Transform(ctx context.Context, raw domain.RawMessage) (domain.OutputMessage, error) {
	req, err := domain.ParseDetectionRequest(raw)
	if err != nil {
		return domain.OutputMessage{}, err
	}
	t.logger.Debug("detection request", "station", req.Station, "index", req.Index, "offset", raw.Offset)

	report, err := t.detector.Detect(ctx, req)
	if err != nil {
		return domain.OutputMessage{}, err
	}
	return domain.SerializeReport(report)
}
