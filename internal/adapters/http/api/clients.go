package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/engage/internal/domain/report"
	"github.com/okian/engage/internal/domain/scoresheet"
)

// ClientsDependencies defines the interface for per-client reads.
type ClientsDependencies interface {
	ClientSummary(ctx context.Context, clientID int64) (report.ClientSummary, error)
	Scoresheets(ctx context.Context, clientID int64, from, to time.Time) ([]scoresheet.Scoresheet, error)
}

// ClientsHandler handles per-client requests.
type ClientsHandler struct {
	deps ClientsDependencies
}

// NewClientsHandler creates a new clients handler.
func NewClientsHandler(deps ClientsDependencies) *ClientsHandler {
	return &ClientsHandler{deps: deps}
}

// HandleSummary handles GET /clients/{id}/summary requests.
func (h *ClientsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	id, err := clientID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	sum, err := h.deps.ClientSummary(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type scoresheetsResponse struct {
	ClientID    int64                   `json:"client_id"`
	Scoresheets []scoresheet.Scoresheet `json:"scoresheets"`
}

// HandleScoresheets handles GET /clients/{id}/scoresheets?from=&to= requests.
// from is inclusive and to is exclusive.
func (h *ClientsHandler) HandleScoresheets(w http.ResponseWriter, r *http.Request) {
	id, err := clientID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	from, err := queryTime(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	sheets, err := h.deps.Scoresheets(r.Context(), id, from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scoresheetsResponse{ClientID: id, Scoresheets: sheets})
}
