package handlers

import (
	"log/slog"
	"net/http"
)

// ReloadResponse lists the nodes configured after a successful reload.
type ReloadResponse struct {
	Nodes []string `json:"nodes"`
}

// ReloadHandler handles requests to reload configuration from disk.
// Drivers are rebuilt for every node; on failure the previous ones stay.
type ReloadHandler struct {
	logger   *slog.Logger
	reloader Reloader
	config   ConfigProvider
}

// NewReloadHandler creates a new ReloadHandler.
func NewReloadHandler(logger *slog.Logger, reloader Reloader, config ConfigProvider) *ReloadHandler {
	return &ReloadHandler{
		logger:   logger,
		reloader: reloader,
		config:   config,
	}
}

// ServeHTTP implements http.Handler.
func (h *ReloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("reloading configuration")

	if err := h.reloader.Reload(); err != nil {
		h.logger.Error("failed to reload configuration", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "failed to reload configuration: " + err.Error(),
		})
		return
	}

	cfg := h.config.Config()
	names := make([]string, 0, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		names = append(names, n.Name)
	}

	h.logger.Info("configuration reloaded successfully", "nodes", len(names))
	writeJSON(w, http.StatusOK, ReloadResponse{Nodes: names})
}
