package handlers

import (
	"net/http"
	"time"

	"github.com/nomis52/baremetal/server/types"
)

// NextPollResponse describes when the poller runs next and what it covers.
type NextPollResponse struct {
	Scheduled bool                `json:"scheduled"`
	NextPoll  *time.Time          `json:"next_poll,omitempty"`
	Triggers  []types.PollTrigger `json:"triggers,omitempty"`
}

// APIStatusResponse is the consolidated response for /api/status.
type APIStatusResponse struct {
	Server   types.ServerProperties `json:"server"`
	NextPoll NextPollResponse       `json:"next_poll"`
	Nodes    []types.NodeStatus     `json:"nodes"`
}

// APIStatusHandler serves the server properties together with the cached
// node states. It never talks to a BMC.
type APIStatusHandler struct {
	provider StatusProvider
}

// NewAPIStatusHandler creates a new APIStatusHandler.
func NewAPIStatusHandler(provider StatusProvider) *APIStatusHandler {
	return &APIStatusHandler{
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *APIStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	next := h.provider.NextPoll()
	writeJSON(w, http.StatusOK, APIStatusResponse{
		Server: h.provider.Properties(),
		NextPoll: NextPollResponse{
			Scheduled: next != nil,
			NextPoll:  next,
			Triggers:  h.provider.PollTriggers(),
		},
		Nodes: h.provider.NodeStatuses(),
	})
}

// NodesHandler lists the configured nodes with their cached state.
type NodesHandler struct {
	provider StatusProvider
}

// NewNodesHandler creates a new NodesHandler.
func NewNodesHandler(provider StatusProvider) *NodesHandler {
	return &NodesHandler{provider: provider}
}

// ServeHTTP implements http.Handler.
func (h *NodesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.provider.NodeStatuses())
}
