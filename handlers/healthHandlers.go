package handlers

import (
	"context"
	"net/http"
	"time"

	"taskboard/services"
	"taskboard/utilities"
)

const readyTimeout = 2 * time.Second

func (h *Handler) RootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &services.Result{Success: true, Message: "taskboard API"})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &services.Result{Success: true, Message: "ok"})
}

// ReadyHandler reports 503 while the store does not answer a ping.
func (h *Handler) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		utilities.LogError(err, "ReadyHandler: store ping failed")
		writeJSON(w, http.StatusServiceUnavailable, &services.Result{Success: false, Message: "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, &services.Result{Success: true, Message: "ready"})
}
