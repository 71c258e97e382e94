package api

import (
	"context"
	"net/http"

	"github.com/okian/engage/internal/domain/report"
)

// DashboardDependencies defines the interface for dashboard reads.
type DashboardDependencies interface {
	Dashboard(ctx context.Context) (*report.Dashboard, error)
	RefreshDashboard(ctx context.Context) (*report.Dashboard, error)
}

// DashboardHandler handles dashboard requests.
type DashboardHandler struct {
	deps DashboardDependencies
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(deps DashboardDependencies) *DashboardHandler {
	return &DashboardHandler{deps: deps}
}

// HandleDashboard handles GET /dashboard requests. ?refresh=true rebuilds
// the snapshot before returning it.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	refresh, err := queryBool(r, "refresh")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	var d *report.Dashboard
	if refresh {
		d, err = h.deps.RefreshDashboard(r.Context())
	} else {
		d, err = h.deps.Dashboard(r.Context())
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
