package handlers

import (
	"context"
	"log/slog"
	"net/http"
)

// QueryHandler runs one read-only driver query against the node named in
// the path and returns its parsed result as JSON.
type QueryHandler struct {
	logger *slog.Logger
	nodes  NodeProvider
	query  func(context.Context, Node) (any, error)
}

// NewChassisHandler serves `chassis status` as a flat key-value object.
func NewChassisHandler(logger *slog.Logger, nodes NodeProvider) *QueryHandler {
	return &QueryHandler{logger: logger, nodes: nodes, query: func(ctx context.Context, n Node) (any, error) {
		return n.ChassisStatus(ctx)
	}}
}

// NewLanHandler serves `lan print`; every key maps to a list of values.
func NewLanHandler(logger *slog.Logger, nodes NodeProvider) *QueryHandler {
	return &QueryHandler{logger: logger, nodes: nodes, query: func(ctx context.Context, n Node) (any, error) {
		return n.LanStatus(ctx)
	}}
}

// NewLanStatsHandler serves `lan stats get`.
func NewLanStatsHandler(logger *slog.Logger, nodes NodeProvider) *QueryHandler {
	return &QueryHandler{logger: logger, nodes: nodes, query: func(ctx context.Context, n Node) (any, error) {
		return n.LanStats(ctx)
	}}
}

// NewControllerHandler serves `mc info`.
func NewControllerHandler(logger *slog.Logger, nodes NodeProvider) *QueryHandler {
	return &QueryHandler{logger: logger, nodes: nodes, query: func(ctx context.Context, n Node) (any, error) {
		return n.ControllerInfo(ctx)
	}}
}

// NewUsersHandler serves `user list`.
func NewUsersHandler(logger *slog.Logger, nodes NodeProvider) *QueryHandler {
	return &QueryHandler{logger: logger, nodes: nodes, query: func(ctx context.Context, n Node) (any, error) {
		return n.UserList(ctx)
	}}
}

// ServeHTTP implements http.Handler.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var result any
	err := h.nodes.WithNode(r.Context(), r.PathValue("node"), func(n Node) error {
		var err error
		result, err = h.query(r.Context(), n)
		return err
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
