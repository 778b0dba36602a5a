// Package ipmi drives a remote baremetal node through ipmitool.
//
// A Driver owns the connection parameters for one management controller,
// builds the ipmitool command line once, and exposes power, chassis, user,
// lan and controller operations. Every operation runs exactly one ipmitool
// process and parses its stdout.
//
// Sub-commands are checked against a fixed capability table before anything
// is run. Unknown sub-commands are rejected without spawning a process.
//
// Example usage:
//
//	d, err := ipmi.New(ctx, ipmi.Config{
//		User:           "admin",
//		Password:       "secret",
//		Host:           "10.0.0.12",
//		PrivilegeLevel: ipmi.DefaultPrivilegeLevel,
//	}, ipmi.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	state, err := d.PowerStatus(ctx)
package ipmi

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
)

const (
	// DefaultToolPath is where ipmitool is expected to be installed.
	DefaultToolPath = "/usr/bin/ipmitool"
	// DefaultInterface is the ipmitool -I interface used when none is configured.
	DefaultInterface = "lanplus"
	// DefaultPrivilegeLevel is OPERATOR.
	DefaultPrivilegeLevel = 3

	toolName = "ipmitool"
)

// Config holds the connection parameters for one management controller.
type Config struct {
	User     string
	Password string
	Host     string
	// PrivilegeLevel is one of 1, 2, 3, 4, 5 or 15.
	PrivilegeLevel int
	// Interface is "lanplus" or "lan". Empty means DefaultInterface.
	Interface string
	// Port is the RMCP port. Zero leaves it to ipmitool.
	Port int
}

// Driver manages one remote node over IPMI. It is not safe for concurrent
// use; callers that share a Driver must serialize access.
type Driver struct {
	cfg       Config
	caps      Capabilities
	privilege string
	baseArgv  []string

	tool          string
	toolPath      string
	skipToolCheck bool
	strict        bool

	runner  CommandRunner
	logger  *slog.Logger
	metrics *CommandMetrics

	systemReady bool
	reachable   bool
	userID      string
	hasUserID   bool
}

// Option configures a Driver.
type Option func(*Driver)

// WithRunner sets the CommandRunner used to run ipmitool.
func WithRunner(r CommandRunner) Option {
	return func(d *Driver) {
		d.runner = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

// WithMetrics records every dispatched command in m.
func WithMetrics(m *CommandMetrics) Option {
	return func(d *Driver) {
		d.metrics = m
	}
}

// WithToolPath sets the ipmitool binary. The path is both checked for
// existence and used as the command name.
func WithToolPath(path string) Option {
	return func(d *Driver) {
		d.tool = path
		d.toolPath = path
	}
}

// WithSkipToolCheck disables the local ipmitool check, for runners that
// execute somewhere else.
func WithSkipToolCheck() Option {
	return func(d *Driver) {
		d.skipToolCheck = true
	}
}

// WithStrictInit makes New fail when ipmitool is missing or the remote
// controller does not answer. Without it both are logged as warnings.
func WithStrictInit(strict bool) Option {
	return func(d *Driver) {
		d.strict = strict
	}
}

// WithCapabilities replaces the capability table.
func WithCapabilities(caps Capabilities) Option {
	return func(d *Driver) {
		d.caps = caps
	}
}

// New validates cfg, builds the ipmitool command line, checks that ipmitool
// is installed, probes the controller with `mc info` and resolves the numeric
// ID of cfg.User.
func New(ctx context.Context, cfg Config, opts ...Option) (*Driver, error) {
	if cfg.User == "" || cfg.Password == "" || cfg.Host == "" || cfg.PrivilegeLevel == 0 {
		return nil, fmt.Errorf("%w: user, password, host and privilege level are required", ErrInvalidConfig)
	}
	if cfg.Interface == "" {
		cfg.Interface = DefaultInterface
	}

	d := &Driver{
		cfg:      cfg,
		caps:     DefaultCapabilities(),
		tool:     toolName,
		toolPath: DefaultToolPath,
		runner:   ExecRunner{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.logger = d.logger.With("host", cfg.Host)
	d.privilege = d.caps.PrivilegeName(cfg.PrivilegeLevel)
	d.baseArgv = d.buildBaseArgv()

	d.systemReady = d.checkSystemReady()
	if !d.systemReady {
		if d.strict {
			return nil, fmt.Errorf("%w at %s", ErrToolNotFound, d.toolPath)
		}
		d.logger.Warn("ipmitool not found", "path", d.toolPath)
	}

	d.reachable = d.checkRemoteHost(ctx)
	if !d.reachable {
		if d.strict {
			return nil, fmt.Errorf("%w: %s", ErrUnreachable, cfg.Host)
		}
		d.logger.Warn("remote controller did not answer mc info")
	}

	d.userID, d.hasUserID = d.resolveUserID(ctx)
	if !d.hasUserID {
		d.logger.Debug("configured user not found in user list", "user", cfg.User)
	}

	return d, nil
}

func (d *Driver) buildBaseArgv() []string {
	argv := []string{
		d.tool,
		"-I", d.cfg.Interface,
		"-H", d.cfg.Host,
		"-U", d.cfg.User,
		"-P", d.cfg.Password,
		"-L", d.privilege,
	}
	if d.cfg.Port != 0 {
		argv = append(argv, "-p", strconv.Itoa(d.cfg.Port))
	}
	return argv
}

func (d *Driver) checkSystemReady() bool {
	if d.skipToolCheck {
		return true
	}
	_, err := os.Stat(d.toolPath)
	return err == nil
}

func (d *Driver) checkRemoteHost(ctx context.Context) bool {
	info, _ := d.ControllerInfo(ctx)
	return len(info) > 0
}

func (d *Driver) resolveUserID(ctx context.Context) (string, bool) {
	users, _ := d.UserList(ctx)
	for _, u := range users {
		if u.Name == d.cfg.User {
			return u.ID, true
		}
	}
	return "", false
}

// Host returns the remote controller address.
func (d *Driver) Host() string {
	return d.cfg.Host
}

// PrivilegeName returns the privilege name passed to ipmitool -L.
func (d *Driver) PrivilegeName() string {
	return d.privilege
}

// Capabilities returns the driver's capability table.
func (d *Driver) Capabilities() Capabilities {
	return d.caps
}

// SystemReady reports whether ipmitool was found when the driver was built.
func (d *Driver) SystemReady() bool {
	return d.systemReady
}

// Reachable reports whether the controller answered `mc info` when the
// driver was built. Use Exists for a fresh check.
func (d *Driver) Reachable() bool {
	return d.reachable
}

// UserID returns the numeric ID of the configured user, if it was found.
func (d *Driver) UserID() (string, bool) {
	return d.userID, d.hasUserID
}

// command appends category and args to the base command line.
func (d *Driver) command(category Category, args ...string) []string {
	argv := slices.Clone(d.baseArgv)
	argv = append(argv, string(category))
	return append(argv, args...)
}

// dispatch validates sub against the capability table and runs it.
func (d *Driver) dispatch(ctx context.Context, category Category, sub string) Result {
	if !d.caps.Supports(category, sub) {
		d.logger.Debug("sub-command rejected", "category", category, "command", sub)
		d.metrics.observe(d.cfg.Host, category, "", StatusRejected)
		return Result{Status: StatusRejected}
	}

	// multi-word sub-commands such as "stats get" are separate arguments
	res := d.run(ctx, d.command(category, strings.Fields(sub)...))
	d.logger.Debug("ipmitool finished",
		"category", category,
		"command", sub,
		"status", res.Status.String(),
		"exit_code", res.ExitCode,
	)
	d.metrics.observe(d.cfg.Host, category, sub, res.Status)
	return res
}

// run executes argv once. Spawn failures are logged and reported as
// StatusFailed; they never escape as errors.
func (d *Driver) run(ctx context.Context, argv []string) Result {
	if len(argv) == 0 {
		return Result{Status: StatusEmpty}
	}

	out, err := d.runner.Run(ctx, argv[0], argv[1:]...)
	if err != nil {
		d.logger.Error("failed to run ipmitool", "error", err)
		return Result{Status: StatusFailed, ExecErr: err}
	}

	res := Result{
		Status:   StatusOK,
		Stdout:   out.Stdout,
		Stderr:   out.Stderr,
		ExitCode: out.ExitCode,
	}
	if out.Stdout == "" {
		res.Status = StatusEmpty
		if out.Stderr != "" {
			d.logger.Debug("ipmitool printed no output", "stderr", strings.TrimSpace(out.Stderr))
		}
	}
	return res
}
