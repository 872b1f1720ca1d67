package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/artisanhubapp/artisanhub/internal/auth"
	"github.com/artisanhubapp/artisanhub/internal/dashboard"
)

// DashboardMetrics returns the caller's aggregated dashboard summary. An
// optional ?start=YYYY-MM-DD&end=YYYY-MM-DD pair selects the window; without
// it the all-time view is served.
func (h *Handlers) DashboardMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, "unauthorized", "missing actor")
		return
	}

	window, err := windowFromQuery(r)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	metrics, err := h.dashboardService.Metrics(ctx, actor, window)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func windowFromQuery(r *http.Request) (dashboard.Window, error) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" && end == "" {
		return dashboard.Window{}, nil
	}
	if start == "" || end == "" {
		return dashboard.Window{}, fmt.Errorf("start and end must be supplied together")
	}

	startAt, err := time.Parse("2006-01-02", start)
	if err != nil {
		return dashboard.Window{}, fmt.Errorf("start must be YYYY-MM-DD: %v", err)
	}
	endAt, err := time.Parse("2006-01-02", end)
	if err != nil {
		return dashboard.Window{}, fmt.Errorf("end must be YYYY-MM-DD: %v", err)
	}
	if !endAt.After(startAt) {
		return dashboard.Window{}, fmt.Errorf("end must be after start")
	}
	return dashboard.Window{Start: startAt, End: endAt}, nil
}
