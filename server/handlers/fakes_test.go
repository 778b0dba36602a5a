package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nomis52/baremetal/config"
	"github.com/nomis52/baremetal/ipmi"
	"github.com/nomis52/baremetal/logging"
	"github.com/nomis52/baremetal/server/history"
	"github.com/nomis52/baremetal/server/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeNode returns canned values; err, when set, is returned by every call.
type fakeNode struct {
	state      ipmi.PowerState
	confirmed  bool
	chassis    ipmi.Fields
	lan        ipmi.GroupedFields
	lanStats   ipmi.Fields
	controller ipmi.GroupedFields
	users      []ipmi.User
	err        error

	lastAction string
	bootDevice string
}

func (f *fakeNode) PowerStatus(ctx context.Context) (ipmi.PowerState, error) {
	return f.state, f.err
}

func (f *fakeNode) action(name string) (bool, error) {
	f.lastAction = name
	return f.confirmed, f.err
}

func (f *fakeNode) PowerOn(ctx context.Context) (bool, error)    { return f.action("on") }
func (f *fakeNode) PowerOff(ctx context.Context) (bool, error)   { return f.action("off") }
func (f *fakeNode) PowerReset(ctx context.Context) (bool, error) { return f.action("reset") }
func (f *fakeNode) PowerCycle(ctx context.Context) (bool, error) { return f.action("cycle") }
func (f *fakeNode) Shutdown(ctx context.Context) (bool, error)   { return f.action("shutdown") }

func (f *fakeNode) ChassisStatus(ctx context.Context) (ipmi.Fields, error) {
	return f.chassis, f.err
}

func (f *fakeNode) LanStatus(ctx context.Context) (ipmi.GroupedFields, error) {
	return f.lan, f.err
}

func (f *fakeNode) LanStats(ctx context.Context) (ipmi.Fields, error) {
	return f.lanStats, f.err
}

func (f *fakeNode) ControllerInfo(ctx context.Context) (ipmi.GroupedFields, error) {
	return f.controller, f.err
}

func (f *fakeNode) UserList(ctx context.Context) ([]ipmi.User, error) {
	return f.users, f.err
}

func (f *fakeNode) SetBootDevice(ctx context.Context, device string) error {
	if device == "" {
		return fmt.Errorf("chassis bootdev: %w: empty device", ipmi.ErrRejected)
	}
	f.bootDevice = device
	return f.err
}

// fakeProvider implements every provider interface over a fixed node set.
type fakeProvider struct {
	mu        sync.Mutex
	nodes     map[string]*fakeNode
	statuses  []types.NodeStatus
	props     types.ServerProperties
	nextPoll  *time.Time
	triggers  []types.PollTrigger
	logs      map[string][]logging.LogEntry
	cfg       *config.Config
	reloadErr error
	reloads   int
	events    []history.Event
	storeErr  error
}

var (
	_ NodeProvider    = (*fakeProvider)(nil)
	_ StatusProvider  = (*fakeProvider)(nil)
	_ LogsProvider    = (*fakeProvider)(nil)
	_ ConfigProvider  = (*fakeProvider)(nil)
	_ Reloader        = (*fakeProvider)(nil)
	_ HistoryProvider = (*fakeProvider)(nil)
	_ HistoryReloader = (*fakeProvider)(nil)
	_ Node            = (*ipmi.Driver)(nil)
)

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		nodes: map[string]*fakeNode{"node1": {}},
	}
}

func (p *fakeProvider) WithNode(ctx context.Context, name string, fn func(Node) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.nodes[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, name)
	}
	return fn(n)
}

func (p *fakeProvider) NodeStatuses() []types.NodeStatus   { return p.statuses }
func (p *fakeProvider) Properties() types.ServerProperties { return p.props }
func (p *fakeProvider) NextPoll() *time.Time               { return p.nextPoll }
func (p *fakeProvider) PollTriggers() []types.PollTrigger  { return p.triggers }

func (p *fakeProvider) NodeLogs(name string) ([]logging.LogEntry, error) {
	if _, ok := p.nodes[name]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, name)
	}
	return p.logs[name], nil
}

func (p *fakeProvider) Config() *config.Config { return p.cfg }

func (p *fakeProvider) Reload() error {
	p.reloads++
	return p.reloadErr
}

func (p *fakeProvider) History(node string) []history.Event {
	return history.ForNode(p.events, node)
}

func (p *fakeProvider) ReloadHistory() error {
	return p.storeErr
}
