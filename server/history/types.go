// Package history keeps an audit trail of what happened to each node:
// power actions, boot device changes and power state transitions seen by
// the poller. Events are kept in memory or persisted as JSON files.
package history

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Kind classifies an Event.
type Kind string

const (
	// KindPower is a power action requested through the API.
	KindPower Kind = "power"
	// KindBootDevice is a boot device change requested through the API.
	KindBootDevice Kind = "bootdev"
	// KindStateChange is a power state transition noticed by the poller.
	KindStateChange Kind = "state_change"
)

// Event is one entry in a node's history.
type Event struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
	Node string `json:"node"`
	// Action is the power action, the boot device, or "off->on" style
	// transitions for KindStateChange.
	Action    string    `json:"action"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Confirmed bool      `json:"confirmed"`
	Error     string    `json:"error,omitempty"`
}

// CalculateID derives a stable ID from the event's identity fields.
func (e Event) CalculateID() string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%d", e.Kind, e.Node, e.Action, e.StartedAt.UnixNano()))
	return hex.EncodeToString(sum[:6])
}

// Store manages persistence of node history.
type Store interface {
	// Events returns all events, most recent first.
	Events() []Event
	// Save records an event. The ID is filled in if empty.
	Save(Event) error
}

// ForNode returns the events for node, or all events if node is empty.
func ForNode(events []Event, node string) []Event {
	if node == "" {
		return events
	}
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Node == node {
			out = append(out, e)
		}
	}
	return out
}
