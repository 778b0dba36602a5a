// Package types provides shared types for the server package and its subpackages.
package types

import (
	"time"

	"github.com/nomis52/baremetal/buildinfo"
)

// ServerProperties holds metadata about the running server instance.
type ServerProperties struct {
	Build     buildinfo.Properties `json:"build"`
	StartedAt time.Time            `json:"started_at"`
	Hostname  string               `json:"hostname"`
}

// PollTrigger is one entry of the poll schedule.
type PollTrigger struct {
	Nodes    []string `json:"nodes"`
	Schedule string   `json:"schedule"`
}

// NodeStatus is the last known state of a node as seen by the poller.
type NodeStatus struct {
	Name string `json:"name"`
	Host string `json:"host"`
	// PowerState is on, off or unknown.
	PowerState  string     `json:"power_state"`
	LastPoll    *time.Time `json:"last_poll,omitempty"`
	PollError   string     `json:"poll_error,omitempty"`
	SystemReady bool       `json:"system_ready"`
	Reachable   bool       `json:"reachable"`
	UserID      string     `json:"user_id,omitempty"`
}
