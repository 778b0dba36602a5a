package handlers

import (
	"log/slog"
	"net/http"
)

// NodeLogsHandler returns the recent log records captured for a node.
type NodeLogsHandler struct {
	logger   *slog.Logger
	provider LogsProvider
}

// NewNodeLogsHandler creates a new NodeLogsHandler.
func NewNodeLogsHandler(logger *slog.Logger, provider LogsProvider) *NodeLogsHandler {
	return &NodeLogsHandler{
		logger:   logger,
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *NodeLogsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logs, err := h.provider.NodeLogs(r.PathValue("node"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
