// Package server provides the HTTP server for baremetal.
//
// The server owns one ipmi.Driver per configured node and exposes power
// control, inventory queries and cached power state over a JSON API.
//
// # Endpoints
//
//   - GET /health - Simple health check, returns "ok"
//   - GET /api/status - Server properties, next poll and cached node states
//   - GET /api/nodes - Cached node states
//   - GET /api/nodes/{node}/power - Live power state
//   - POST /api/nodes/{node}/power/{action} - on, off, reset, cycle or shutdown
//   - GET /api/nodes/{node}/chassis - chassis status
//   - POST /api/nodes/{node}/bootdev - Set the next boot device
//   - GET /api/nodes/{node}/lan - lan print
//   - GET /api/nodes/{node}/lan/stats - lan stats get
//   - GET /api/nodes/{node}/controller - mc info
//   - GET /api/nodes/{node}/users - user list
//   - GET /api/nodes/{node}/logs - Recent log records for the node
//   - GET /api/history - Power actions, boot device changes and polled
//     state transitions, optionally filtered with ?node=
//   - POST /api/history/reload - Re-reads persisted history from disk
//   - GET /config - Node configuration with secrets redacted
//   - POST /reload - Reloads the node configuration from disk
//   - GET /metrics - Prometheus metrics
//
// # Architecture
//
// Node dependencies are swapped atomically on reload. A driver runs one
// ipmitool command at a time: every request and poll takes the node's
// slot first, so two commands never race on the same controller. Retired
// deps keep their SSH connection open until the last request or poll that
// entered them returns.
//
// # Example
//
//	srvCfg, err := serverconfig.LoadConfig("/etc/baremetal/server.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv, err := server.New(srvCfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/baremetal/buildinfo"
	"github.com/nomis52/baremetal/clients/sshclient"
	"github.com/nomis52/baremetal/config"
	"github.com/nomis52/baremetal/ipmi"
	"github.com/nomis52/baremetal/logging"
	"github.com/nomis52/baremetal/metrics"
	serverconfig "github.com/nomis52/baremetal/server/config"
	"github.com/nomis52/baremetal/server/cron"
	"github.com/nomis52/baremetal/server/handlers"
	"github.com/nomis52/baremetal/server/history"
	"github.com/nomis52/baremetal/server/types"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	// building a driver probes the controller twice
	defaultReloadTimeout = 2 * time.Minute
)

// nodeHandle is one configured node. slot serializes driver access.
type nodeHandle struct {
	cfg    config.NodeConfig
	driver *ipmi.Driver
	slot   chan struct{}

	mu       sync.RWMutex
	state    ipmi.PowerState
	lastPoll *time.Time
	pollErr  string
}

func newNodeHandle(cfg config.NodeConfig, driver *ipmi.Driver) *nodeHandle {
	return &nodeHandle{
		cfg:    cfg,
		driver: driver,
		slot:   make(chan struct{}, 1),
	}
}

func (h *nodeHandle) acquire(ctx context.Context) error {
	select {
	case h.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *nodeHandle) release() {
	<-h.slot
}

// recordPoll caches a poll result and returns the state it replaced. polled
// is false if the node had never been polled.
func (h *nodeHandle) recordPoll(state ipmi.PowerState, err error) (prev ipmi.PowerState, polled bool) {
	now := time.Now()
	h.mu.Lock()
	defer h.mu.Unlock()
	prev, polled = h.state, h.lastPoll != nil
	h.state = state
	h.lastPoll = &now
	h.pollErr = ""
	if err != nil {
		h.pollErr = err.Error()
	}
	return prev, polled
}

// copyPollState carries the cached state of old over a reload.
func (h *nodeHandle) copyPollState(old *nodeHandle) {
	old.mu.RLock()
	defer old.mu.RUnlock()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = old.state
	h.lastPoll = old.lastPoll
	h.pollErr = old.pollErr
}

func (h *nodeHandle) status() types.NodeStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	userID, _ := h.driver.UserID()
	return types.NodeStatus{
		Name:        h.cfg.Name,
		Host:        h.cfg.Host,
		PowerState:  h.state.String(),
		LastPoll:    h.lastPoll,
		PollError:   h.pollErr,
		SystemReady: h.driver.SystemReady(),
		Reachable:   h.driver.Reachable(),
		UserID:      userID,
	}
}

// serverDeps holds config-derived dependencies that are swapped atomically on reload.
type serverDeps struct {
	config *config.Config
	nodes  map[string]*nodeHandle
	order  []string
	ssh    *sshclient.SSHClient

	// users counts callers still working with these deps. idle is closed
	// once the deps are retired and the last user has left.
	mu      sync.Mutex
	users   int
	retired bool
	idle    chan struct{}
}

func newServerDeps(cfg *config.Config) *serverDeps {
	return &serverDeps{
		config: cfg,
		nodes:  make(map[string]*nodeHandle, len(cfg.Nodes)),
		order:  make([]string, 0, len(cfg.Nodes)),
		idle:   make(chan struct{}),
	}
}

// enter registers a user. It fails once the deps are retired.
func (d *serverDeps) enter() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.retired {
		return false
	}
	d.users++
	return true
}

func (d *serverDeps) leave() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users--
	if d.retired && d.users == 0 {
		close(d.idle)
	}
}

// retire stops new users and returns a channel closed when the last
// current user leaves.
func (d *serverDeps) retire() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.retired {
		d.retired = true
		if d.users == 0 {
			close(d.idle)
		}
	}
	return d.idle
}

// Server is the HTTP server for baremetal.
type Server struct {
	cfg        *serverconfig.ServerConfig
	logger     *logging.Logger
	hook       *logging.CapturingLoggerHook
	registry   *metrics.ScrapeRegistry
	commands   *ipmi.CommandMetrics
	powerState metrics.GaugeVec
	runner     ipmi.CommandRunner
	store      history.Store

	reloadMu   sync.Mutex
	deps       atomic.Pointer[serverDeps]
	poll       *cron.CronTriggerManager
	httpServer *http.Server
	startedAt  time.Time
	hostname   string
}

// Option configures a Server.
type Option func(*Server) error

// WithCommandRunner runs ipmitool through r for every node instead of the
// local binary or the configured SSH jump host.
func WithCommandRunner(r ipmi.CommandRunner) Option {
	return func(s *Server) error {
		s.runner = r
		return nil
	}
}

// WithLogOutput sends server logs to w rather than stderr.
func WithLogOutput(w io.Writer) Option {
	return func(s *Server) error {
		logger, err := logging.NewWithWriter(logging.Config{Level: s.cfg.LogLevel, Format: "json"}, w)
		if err != nil {
			return err
		}
		s.logger = logger
		return nil
	}
}

// New loads the node configuration named by cfg, builds a driver for each
// node and sets up the poll schedule.
func New(cfg *serverconfig.ServerConfig, opts ...Option) (*Server, error) {
	logger, err := logging.NewWithWriter(logging.Config{Level: cfg.LogLevel, Format: "json"}, os.Stderr)
	if err != nil {
		return nil, err
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		hook:      logging.NewCapturingLoggerHook(logging.NewLogCollector(logging.DefaultMaxEntries)),
		startedAt: time.Now(),
		hostname:  hostname,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	nodesCfg, err := config.LoadConfig(cfg.NodesConfig)
	if err != nil {
		return nil, err
	}

	// The metric prefix is fixed at startup; a reload does not rename metrics.
	s.registry, err = metrics.NewScrapeRegistry(metrics.WithNamespace(nodesCfg.Monitoring.MetricsPrefix))
	if err != nil {
		return nil, err
	}
	if s.commands, err = ipmi.NewCommandMetrics(s.registry); err != nil {
		return nil, err
	}
	s.powerState, err = s.registry.NewGaugeVec(prometheus.GaugeOpts{
		Name: "node_power_state",
		Help: "Last polled power state: 1 on, 0 off, -1 unknown.",
	}, []string{"node"})
	if err != nil {
		return nil, fmt.Errorf("registering power state gauge: %w", err)
	}

	if cfg.StateDir != "" {
		s.store, err = history.NewDiskStore(cfg.StateDir, cfg.HistorySize, s.logger.Logger)
		if err != nil {
			return nil, err
		}
	} else {
		s.store = history.NewMemoryStore(cfg.HistorySize)
	}

	if err := s.apply(&nodesCfg); err != nil {
		return nil, err
	}

	if cfg.Poll != "" {
		names := s.deps.Load().order
		s.poll, err = cron.NewCronTriggerManager(cfg.Poll, s, s.logger.Logger, names)
		if err != nil {
			return nil, fmt.Errorf("creating poll schedule: %w", err)
		}
	}

	return s, nil
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger.Logger
}

// SetLogLevel changes the server's log level at runtime.
func (s *Server) SetLogLevel(level slog.Level) {
	s.logger.SetLevel(level)
}

// Reload reads the node config from disk and rebuilds every driver. On
// error the running drivers are kept.
func (s *Server) Reload() error {
	cfg, err := config.LoadConfig(s.cfg.NodesConfig)
	if err != nil {
		return err
	}
	return s.apply(&cfg)
}

func (s *Server) apply(cfg *config.Config) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultReloadTimeout)
	defer cancel()

	deps, err := s.buildDeps(ctx, cfg)
	if err != nil {
		return err
	}

	// The new handles are not visible until the Store, so the carried state
	// is in place before any request or poll can see them.
	old := s.deps.Load()
	if old != nil {
		for name, h := range deps.nodes {
			if prev, ok := old.nodes[name]; ok {
				h.copyPollState(prev)
			}
		}
	}
	s.deps.Store(deps)
	if old != nil {
		s.retire(old)
	}
	s.dropRemovedLogs(deps)

	s.logger.Info("configuration loaded",
		"nodes_config", s.cfg.NodesConfig,
		"nodes", len(deps.order),
		"ssh", cfg.SSH.Enabled(),
	)
	return nil
}

func (s *Server) buildDeps(ctx context.Context, cfg *config.Config) (*serverDeps, error) {
	deps := newServerDeps(cfg)

	runner := s.runner
	if runner == nil && cfg.SSH.Enabled() {
		client, err := sshclient.NewFromConfig(cfg.SSH)
		if err != nil {
			return nil, fmt.Errorf("connecting to ssh host %s: %w", cfg.SSH.Host, err)
		}
		deps.ssh = client
		runner = sshclient.NewRunner(client)
	}

	drivers := make([]*ipmi.Driver, len(cfg.Nodes))
	errs := make([]error, len(cfg.Nodes))
	var wg sync.WaitGroup
	for i, n := range cfg.Nodes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			opts := []ipmi.Option{
				ipmi.WithLogger(s.hook.LoggerFor(s.logger.Logger, n.Name)),
				ipmi.WithMetrics(s.commands),
				ipmi.WithToolPath(n.ToolPath),
				ipmi.WithStrictInit(n.Strict),
			}
			if runner != nil {
				opts = append(opts, ipmi.WithRunner(runner), ipmi.WithSkipToolCheck())
			}
			d, err := ipmi.New(ctx, n.DriverConfig(), opts...)
			if err != nil {
				errs[i] = fmt.Errorf("node %s: %w", n.Name, err)
				return
			}
			drivers[i] = d
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		if deps.ssh != nil {
			deps.ssh.Close()
		}
		return nil, err
	}

	for i, n := range cfg.Nodes {
		deps.nodes[n.Name] = newNodeHandle(n, drivers[i])
		deps.order = append(deps.order, n.Name)
	}
	return deps, nil
}

// retire closes the old SSH connection once every request and poll that
// entered the old deps has finished.
func (s *Server) retire(old *serverDeps) {
	idle := old.retire()
	if old.ssh == nil {
		return
	}
	go func() {
		<-idle
		if err := old.ssh.Close(); err != nil {
			s.logger.Warn("closing ssh connection", "error", err)
		}
	}()
}

// dropRemovedLogs forgets the captured logs of nodes no longer configured.
func (s *Server) dropRemovedLogs(deps *serverDeps) {
	collector := s.hook.Collector()
	for _, name := range collector.Keys() {
		if _, ok := deps.nodes[name]; !ok {
			collector.Clear(name)
		}
	}
}

// enterDeps returns the current deps registered for use. The caller must
// call leave when done. A retired deps has always been replaced, so the
// retry picks up its successor.
func (s *Server) enterDeps() *serverDeps {
	for {
		d := s.deps.Load()
		if d.enter() {
			return d
		}
	}
}

// Config returns the current node configuration.
func (s *Server) Config() *config.Config {
	return s.deps.Load().config
}

// WithNode runs fn with exclusive use of the named node's driver.
func (s *Server) WithNode(ctx context.Context, name string, fn func(handlers.Node) error) error {
	deps := s.enterDeps()
	defer deps.leave()

	h, ok := deps.nodes[name]
	if !ok {
		return fmt.Errorf("%w: %q", handlers.ErrUnknownNode, name)
	}
	if err := h.acquire(ctx); err != nil {
		return err
	}
	defer h.release()
	return fn(&recordingNode{
		Node:   h.driver,
		name:   name,
		store:  s.store,
		logger: s.logger.Logger,
	})
}

// RunNodes polls the power state of each named node. Names that are no
// longer configured are skipped.
func (s *Server) RunNodes(ctx context.Context, nodes []string) error {
	deps := s.enterDeps()
	defer deps.leave()

	errs := make([]error, len(nodes))
	var wg sync.WaitGroup
	for i, name := range nodes {
		h, ok := deps.nodes[name]
		if !ok {
			s.logger.Warn("skipping poll of unconfigured node", "node", name)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.pollNode(ctx, h)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (s *Server) pollNode(ctx context.Context, h *nodeHandle) error {
	if err := h.acquire(ctx); err != nil {
		return err
	}
	state, err := h.driver.PowerStatus(ctx)
	h.release()

	prev, polled := h.recordPoll(state, err)
	if err == nil && polled && prev != ipmi.PowerStateUnknown && prev != state {
		s.recordStateChange(h.cfg.Name, prev, state, time.Now())
	}
	s.powerState.With(prometheus.Labels{"node": h.cfg.Name}).Set(float64(state.Int()))
	if err != nil {
		return fmt.Errorf("polling %s: %w", h.cfg.Name, err)
	}
	s.logger.Debug("polled node", "node", h.cfg.Name, "power_state", state)
	return nil
}

func (s *Server) recordStateChange(node string, prev, state ipmi.PowerState, at time.Time) {
	s.logger.Info("power state changed", "node", node, "from", prev, "to", state)
	err := s.store.Save(history.Event{
		Kind:      history.KindStateChange,
		Node:      node,
		Action:    prev.String() + "->" + state.String(),
		StartedAt: at,
		EndedAt:   at,
		Confirmed: true,
	})
	if err != nil {
		s.logger.Warn("failed to save history event", "node", node, "error", err)
	}
}

// History returns recorded events for node, or for every node if node is
// empty.
func (s *Server) History(node string) []history.Event {
	return history.ForNode(s.store.Events(), node)
}

// ReloadHistory re-reads persisted history. In-memory history has nothing
// to reload.
func (s *Server) ReloadHistory() error {
	if ds, ok := s.store.(*history.DiskStore); ok {
		return ds.Reload()
	}
	return nil
}

// NodeStatuses returns the cached state of every node in config order.
func (s *Server) NodeStatuses() []types.NodeStatus {
	deps := s.deps.Load()
	statuses := make([]types.NodeStatus, 0, len(deps.order))
	for _, name := range deps.order {
		statuses = append(statuses, deps.nodes[name].status())
	}
	return statuses
}

// NodeLogs returns the recent log records captured for a node.
func (s *Server) NodeLogs(name string) ([]logging.LogEntry, error) {
	if _, ok := s.deps.Load().nodes[name]; !ok {
		return nil, fmt.Errorf("%w: %q", handlers.ErrUnknownNode, name)
	}
	logs := s.hook.Collector().GetLogs(name)
	if logs == nil {
		logs = []logging.LogEntry{}
	}
	return logs, nil
}

// Properties returns metadata about the running server.
func (s *Server) Properties() types.ServerProperties {
	return types.ServerProperties{
		Build:     buildinfo.Get(),
		StartedAt: s.startedAt,
		Hostname:  s.hostname,
	}
}

// NextPoll returns the next scheduled poll, or nil if polling is disabled.
func (s *Server) NextPoll() *time.Time {
	if s.poll == nil {
		return nil
	}
	next := s.poll.NextRun()
	if next.IsZero() {
		return nil
	}
	return &next
}

// PollTriggers returns the parsed poll schedule, or nil if polling is disabled.
func (s *Server) PollTriggers() []types.PollTrigger {
	if s.poll == nil {
		return nil
	}
	specs := s.poll.Specs()
	triggers := make([]types.PollTrigger, 0, len(specs))
	for _, spec := range specs {
		triggers = append(triggers, types.PollTrigger{Nodes: spec.Nodes, Schedule: spec.CronSpec})
	}
	return triggers
}

// Handler returns the HTTP handler serving every endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return mux
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It performs a graceful shutdown when the context is done.
// If a poll schedule is configured, it will be started automatically.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Listener.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	if s.cfg.Listener.TLSEnabled() {
		loader, err := NewCertLoader(s.cfg.Listener.TLSCert, s.cfg.Listener.TLSKey, s.logger.Logger)
		if err != nil {
			return err
		}
		s.httpServer.TLSConfig = loader.TLSConfig()
	}

	if s.poll != nil {
		s.logger.Info("starting poll schedule", "next_poll", s.poll.NextRun())
		s.poll.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			"addr", s.cfg.Listener.Addr,
			"tls", s.cfg.Listener.TLSEnabled(),
			"nodes_config", s.cfg.NodesConfig,
		)
		var err error
		if s.httpServer.TLSConfig != nil {
			err = s.httpServer.ListenAndServeTLS("", "")
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)
		if deps := s.deps.Load(); deps.ssh != nil {
			deps.ssh.Close()
		}
		return err
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	logger := s.logger.Logger

	mux.HandleFunc("GET /health", handlers.HandleHealth)
	mux.Handle("GET /api/status", handlers.NewAPIStatusHandler(s))
	mux.Handle("GET /api/nodes", handlers.NewNodesHandler(s))
	mux.Handle("GET /api/nodes/{node}/power", handlers.NewPowerStatusHandler(logger, s))
	mux.Handle("POST /api/nodes/{node}/power/{action}", handlers.NewPowerActionHandler(logger, s))
	mux.Handle("GET /api/nodes/{node}/chassis", handlers.NewChassisHandler(logger, s))
	mux.Handle("POST /api/nodes/{node}/bootdev", handlers.NewBootDeviceHandler(logger, s))
	mux.Handle("GET /api/nodes/{node}/lan", handlers.NewLanHandler(logger, s))
	mux.Handle("GET /api/nodes/{node}/lan/stats", handlers.NewLanStatsHandler(logger, s))
	mux.Handle("GET /api/nodes/{node}/controller", handlers.NewControllerHandler(logger, s))
	mux.Handle("GET /api/nodes/{node}/users", handlers.NewUsersHandler(logger, s))
	mux.Handle("GET /api/nodes/{node}/logs", handlers.NewNodeLogsHandler(logger, s))
	mux.Handle("GET /api/history", handlers.NewHistoryHandler(s))
	mux.Handle("POST /api/history/reload", handlers.NewStoreReloadHandler(logger, s))
	mux.Handle("GET /config", handlers.NewConfigHandler(s))
	mux.Handle("POST /reload", handlers.NewReloadHandler(logger, s, s))
	mux.Handle("GET /metrics", s.registry.Handler())
}
