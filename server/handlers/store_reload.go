package handlers

import (
	"log/slog"
	"net/http"
)

// HistoryReloader can re-read persisted history.
type HistoryReloader interface {
	ReloadHistory() error
}

// StoreReloadHandler handles requests to reload the history store, e.g.
// after events were pruned by hand.
type StoreReloadHandler struct {
	logger *slog.Logger
	store  HistoryReloader
}

// NewStoreReloadHandler creates a new StoreReloadHandler.
func NewStoreReloadHandler(logger *slog.Logger, store HistoryReloader) *StoreReloadHandler {
	return &StoreReloadHandler{
		logger: logger,
		store:  store,
	}
}

// ServeHTTP implements http.Handler.
func (h *StoreReloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("reloading history store")

	if err := h.store.ReloadHistory(); err != nil {
		h.logger.Error("failed to reload store", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "failed to reload store: " + err.Error(),
		})
		return
	}

	h.logger.Info("store reloaded successfully")
	w.WriteHeader(http.StatusNoContent)
}
