package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// BootDeviceRequest is the body of POST /api/nodes/{node}/bootdev.
type BootDeviceRequest struct {
	Device string `json:"device"`
}

// BootDeviceResponse echoes the device that was set.
type BootDeviceResponse struct {
	Node   string `json:"node"`
	Device string `json:"device"`
}

// BootDeviceHandler sets the next boot device of a node.
type BootDeviceHandler struct {
	logger *slog.Logger
	nodes  NodeProvider
}

// NewBootDeviceHandler creates a new BootDeviceHandler.
func NewBootDeviceHandler(logger *slog.Logger, nodes NodeProvider) *BootDeviceHandler {
	return &BootDeviceHandler{
		logger: logger,
		nodes:  nodes,
	}
}

// ServeHTTP implements http.Handler.
func (h *BootDeviceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("node")

	var req BootDeviceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	err := h.nodes.WithNode(r.Context(), name, func(n Node) error {
		return n.SetBootDevice(r.Context(), req.Device)
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("boot device set", "node", name, "device", req.Device)
	writeJSON(w, http.StatusOK, BootDeviceResponse{Node: name, Device: req.Device})
}
