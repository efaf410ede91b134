package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/heatwave-etl/internal/domain"
)

const maxRequestBytes = 1 << 20

// Detector runs a single detection request synchronously.
type Detector interface {
	Detect(ctx context.Context, req domain.DetectionRequest) (domain.Report, error)
}

// Server exposes health, readiness, metrics and detection HTTP endpoints.
type Server struct {
	httpServer *http.Server
	detector   Detector
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /v1 detection routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, detector Detector, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		detector: detector,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/indices", s.handleIndices)
	mux.HandleFunc("POST /v1/detect", s.handleDetect)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleIndices(w http.ResponseWriter, _ *http.Request) {
	names := domain.IndexNames()
	indices := make([]indexInfo, 0, len(names))
	for _, name := range names {
		idx, err := domain.LookupIndex(name)
		if err != nil {
			continue
		}
		indices = append(indices, indexInfo{
			Name:           idx.Name,
			Variable:       string(idx.Variable),
			Percentile:     idx.Percentile,
			FixedThreshold: idx.FixedThreshold,
			MinDuration:    idx.MinDuration,
			WindowLength:   idx.WindowLength,
		})
	}
	writeJSON(w, http.StatusOK, indices)
}

type indexInfo struct {
	Name           string   `json:"name"`
	Variable       string   `json:"variable"`
	Percentile     *float64 `json:"percentile,omitempty"`
	FixedThreshold *float64 `json:"fixed_threshold,omitempty"`
	MinDuration    int      `json:"min_duration"`
	WindowLength   int      `json:"window_length"`
}

// handleDetect answers 400 for requests that cannot be run and 422 when the
// station data cannot be loaded or analyzed.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	req, err := domain.ParseDetectionRequest(domain.RawMessage{Value: body})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	report, err := s.detector.Detect(r.Context(), req)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, domain.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		s.logger.Warn("detect request failed", "error", err, "station", req.Station, "status", status)
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
