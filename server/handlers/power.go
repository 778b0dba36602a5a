package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nomis52/baremetal/ipmi"
)

// PowerStatusResponse is returned by GET /api/nodes/{node}/power.
type PowerStatusResponse struct {
	Node       string    `json:"node"`
	PowerState string    `json:"power_state"`
	Timestamp  time.Time `json:"timestamp"`
}

// PowerActionResponse is returned by POST /api/nodes/{node}/power/{action}.
type PowerActionResponse struct {
	Node      string `json:"node"`
	Action    string `json:"action"`
	Confirmed bool   `json:"confirmed"`
}

// powerActions maps the {action} path segment to a driver call.
var powerActions = map[string]func(Node, context.Context) (bool, error){
	"on":       Node.PowerOn,
	"off":      Node.PowerOff,
	"reset":    Node.PowerReset,
	"cycle":    Node.PowerCycle,
	"shutdown": Node.Shutdown,
}

// PowerStatusHandler reads the live power state of a node.
type PowerStatusHandler struct {
	logger *slog.Logger
	nodes  NodeProvider
}

// NewPowerStatusHandler creates a new PowerStatusHandler.
func NewPowerStatusHandler(logger *slog.Logger, nodes NodeProvider) *PowerStatusHandler {
	return &PowerStatusHandler{
		logger: logger,
		nodes:  nodes,
	}
}

// ServeHTTP implements http.Handler.
func (h *PowerStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("node")

	var state ipmi.PowerState
	err := h.nodes.WithNode(r.Context(), name, func(n Node) error {
		var err error
		state, err = n.PowerStatus(r.Context())
		return err
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, PowerStatusResponse{
		Node:       name,
		PowerState: state.String(),
		Timestamp:  time.Now(),
	})
}

// PowerActionHandler changes the power state of a node.
type PowerActionHandler struct {
	logger *slog.Logger
	nodes  NodeProvider
}

// NewPowerActionHandler creates a new PowerActionHandler.
func NewPowerActionHandler(logger *slog.Logger, nodes NodeProvider) *PowerActionHandler {
	return &PowerActionHandler{
		logger: logger,
		nodes:  nodes,
	}
}

// ServeHTTP implements http.Handler.
func (h *PowerActionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("node")
	action := r.PathValue("action")

	call, ok := powerActions[action]
	if !ok {
		writeError(w, h.logger, fmt.Errorf("power %s: %w", action, ipmi.ErrRejected))
		return
	}

	var confirmed bool
	err := h.nodes.WithNode(r.Context(), name, func(n Node) error {
		var err error
		confirmed, err = call(n, r.Context())
		return err
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("power action confirmed", "node", name, "action", action)
	writeJSON(w, http.StatusOK, PowerActionResponse{
		Node:      name,
		Action:    action,
		Confirmed: confirmed,
	})
}
