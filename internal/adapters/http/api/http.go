// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okian/engage/internal/adapters/repository"
	"github.com/okian/engage/internal/domain/catalog"
	"github.com/okian/engage/internal/domain/dedupe"
	"github.com/okian/engage/internal/domain/model"
	"github.com/okian/engage/internal/domain/report"
	"github.com/okian/engage/internal/domain/scoresheet"
	"github.com/okian/engage/internal/domain/trend"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// RecordScores appends score records to the feed.
	RecordScores(ctx context.Context, records ...model.ScoreRecord) ([]model.ScoreRecord, error)

	// Read operations expose scoring results.
	ClientSummary(ctx context.Context, clientID int64) (report.ClientSummary, error)
	Scoresheets(ctx context.Context, clientID int64, from, to time.Time) ([]scoresheet.Scoresheet, error)
	Diagnostics(ctx context.Context) (report.Diagnostics, error)
	MetricRankings(ctx context.Context) ([]trend.Ranked, error)
	Dashboard(ctx context.Context) (*report.Dashboard, error)
	RefreshDashboard(ctx context.Context) (*report.Dashboard, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	scoresHandler      *ScoresHandler
	clientsHandler     *ClientsHandler
	diagnosticsHandler *DiagnosticsHandler
	dashboardHandler   *DashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		scoresHandler:      NewScoresHandler(deps),
		clientsHandler:     NewClientsHandler(deps),
		diagnosticsHandler: NewDiagnosticsHandler(deps),
		dashboardHandler:   NewDashboardHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /scores", MetricsMiddleware(s.scoresHandler.HandlePostScores, "scores"))
	mux.HandleFunc("GET /clients/{id}/summary", MetricsMiddleware(s.clientsHandler.HandleSummary, "client_summary"))
	mux.HandleFunc("GET /clients/{id}/scoresheets", MetricsMiddleware(s.clientsHandler.HandleScoresheets, "client_scoresheets"))
	mux.HandleFunc("GET /diagnostics/max-score", MetricsMiddleware(s.diagnosticsHandler.HandleMaxScore, "max_score"))
	mux.HandleFunc("GET /rankings/metrics", MetricsMiddleware(s.diagnosticsHandler.HandleMetricRankings, "metric_rankings"))
	mux.HandleFunc("GET /dashboard", MetricsMiddleware(s.dashboardHandler.HandleDashboard, "dashboard"))
}

// Handler returns the registered routes wrapped with request ids.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return RequestIDMiddleware(mux)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates upstream errors to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, report.ErrClientNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, catalog.ErrMetricNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrInvalidRecord):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, repository.ErrDuplicateID):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, report.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "timeout", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
