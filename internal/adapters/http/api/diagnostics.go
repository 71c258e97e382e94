package api

import (
	"context"
	"net/http"

	"github.com/okian/engage/internal/domain/report"
	"github.com/okian/engage/internal/domain/trend"
)

// DiagnosticsDependencies defines the interface for catalog-wide reads.
type DiagnosticsDependencies interface {
	Diagnostics(ctx context.Context) (report.Diagnostics, error)
	MetricRankings(ctx context.Context) ([]trend.Ranked, error)
}

// DiagnosticsHandler handles catalog diagnostics and metric rankings.
type DiagnosticsHandler struct {
	deps DiagnosticsDependencies
}

// NewDiagnosticsHandler creates a new diagnostics handler.
func NewDiagnosticsHandler(deps DiagnosticsDependencies) *DiagnosticsHandler {
	return &DiagnosticsHandler{deps: deps}
}

// HandleMaxScore handles GET /diagnostics/max-score requests.
func (h *DiagnosticsHandler) HandleMaxScore(w http.ResponseWriter, r *http.Request) {
	d, err := h.deps.Diagnostics(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type rankingsResponse struct {
	Metrics []trend.Ranked `json:"metrics"`
}

// HandleMetricRankings handles GET /rankings/metrics requests.
func (h *DiagnosticsHandler) HandleMetricRankings(w http.ResponseWriter, r *http.Request) {
	ranked, err := h.deps.MetricRankings(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rankingsResponse{Metrics: ranked})
}
