package handlers

import (
	"net/http"
)

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			logger.Error("database health check failed", "error", err)
			writeAPIError(w, http.StatusServiceUnavailable, "unavailable", "database unhealthy")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
