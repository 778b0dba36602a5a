package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/nomis52/baremetal/server/handlers"
	"github.com/nomis52/baremetal/server/history"
)

// recordingNode saves an event for every state-changing call made through
// the HTTP API. Reads pass straight through to the embedded Node.
type recordingNode struct {
	handlers.Node
	name   string
	store  history.Store
	logger *slog.Logger
}

func (n *recordingNode) PowerOn(ctx context.Context) (bool, error) {
	return n.power(ctx, "on", n.Node.PowerOn)
}

func (n *recordingNode) PowerOff(ctx context.Context) (bool, error) {
	return n.power(ctx, "off", n.Node.PowerOff)
}

func (n *recordingNode) PowerReset(ctx context.Context) (bool, error) {
	return n.power(ctx, "reset", n.Node.PowerReset)
}

func (n *recordingNode) PowerCycle(ctx context.Context) (bool, error) {
	return n.power(ctx, "cycle", n.Node.PowerCycle)
}

func (n *recordingNode) Shutdown(ctx context.Context) (bool, error) {
	return n.power(ctx, "shutdown", n.Node.Shutdown)
}

func (n *recordingNode) SetBootDevice(ctx context.Context, device string) error {
	started := time.Now()
	err := n.Node.SetBootDevice(ctx, device)
	n.save(history.KindBootDevice, device, started, err == nil, err)
	return err
}

func (n *recordingNode) power(ctx context.Context, action string, fn func(context.Context) (bool, error)) (bool, error) {
	started := time.Now()
	confirmed, err := fn(ctx)
	n.save(history.KindPower, action, started, confirmed, err)
	return confirmed, err
}

func (n *recordingNode) save(kind history.Kind, action string, started time.Time, confirmed bool, err error) {
	e := history.Event{
		Kind:      kind,
		Node:      n.name,
		Action:    action,
		StartedAt: started,
		EndedAt:   time.Now(),
		Confirmed: confirmed,
	}
	if err != nil {
		e.Error = err.Error()
	}
	// A lost history entry must not fail the action itself.
	if serr := n.store.Save(e); serr != nil {
		n.logger.Warn("failed to save history event", "node", n.name, "action", action, "error", serr)
	}
}
