package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigHandler handles requests for the current node configuration.
// Passwords are always redacted. The response is YAML unless the client
// asks for JSON in its Accept header.
type ConfigHandler struct {
	configProvider ConfigProvider
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(provider ConfigProvider) *ConfigHandler {
	return &ConfigHandler{
		configProvider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	redacted := h.configProvider.Config().Redacted()

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, redacted)
		return
	}

	w.Header().Set("Content-Type", "text/yaml")
	w.WriteHeader(http.StatusOK)
	if err := yaml.NewEncoder(w).Encode(redacted); err != nil {
		slog.Error("failed to encode YAML response", "error", err)
	}
}
