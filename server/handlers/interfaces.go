// Package handlers provides HTTP handlers for the baremetal server.
//
// Each handler is in its own file and implements http.Handler.
// Handlers use interfaces to access server dependencies, avoiding
// circular imports.
package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/nomis52/baremetal/config"
	"github.com/nomis52/baremetal/ipmi"
	"github.com/nomis52/baremetal/logging"
	"github.com/nomis52/baremetal/server/history"
	"github.com/nomis52/baremetal/server/types"
)

// ErrUnknownNode is returned by NodeProvider for names not in the config.
var ErrUnknownNode = errors.New("unknown node")

// ConfigProvider provides access to the current configuration.
type ConfigProvider interface {
	Config() *config.Config
}

// Reloader can reload its configuration.
type Reloader interface {
	Reload() error
}

// Node is the set of driver operations exposed over HTTP. *ipmi.Driver
// implements it.
type Node interface {
	PowerStatus(ctx context.Context) (ipmi.PowerState, error)
	PowerOn(ctx context.Context) (bool, error)
	PowerOff(ctx context.Context) (bool, error)
	PowerReset(ctx context.Context) (bool, error)
	PowerCycle(ctx context.Context) (bool, error)
	Shutdown(ctx context.Context) (bool, error)
	ChassisStatus(ctx context.Context) (ipmi.Fields, error)
	LanStatus(ctx context.Context) (ipmi.GroupedFields, error)
	LanStats(ctx context.Context) (ipmi.Fields, error)
	ControllerInfo(ctx context.Context) (ipmi.GroupedFields, error)
	UserList(ctx context.Context) ([]ipmi.User, error)
	SetBootDevice(ctx context.Context, device string) error
}

// NodeProvider gives exclusive access to a node's driver. fn runs while no
// other request or poll is using the same node.
type NodeProvider interface {
	WithNode(ctx context.Context, name string, fn func(Node) error) error
}

// StatusProvider reports what the poller last saw.
type StatusProvider interface {
	NodeStatuses() []types.NodeStatus
	Properties() types.ServerProperties
	NextPoll() *time.Time
	PollTriggers() []types.PollTrigger
}

// LogsProvider returns the recent log records of a node.
type LogsProvider interface {
	NodeLogs(name string) ([]logging.LogEntry, error)
}

// HistoryProvider returns recorded node events, most recent first. An
// empty node means every node.
type HistoryProvider interface {
	History(node string) []history.Event
}
