package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nomis52/baremetal/clients/sshclient"
	"github.com/nomis52/baremetal/config"
	"github.com/nomis52/baremetal/ipmi"
	"github.com/nomis52/baremetal/logging"
	"github.com/nomis52/baremetal/metrics"
)

// cli holds the global flags and the pieces tests replace.
type cli struct {
	configPath string
	nodeName   string

	host      string
	user      string
	password  string
	privilege string
	iface     string
	port      int
	toolPath  string
	strict    bool
	logLevel  string

	out    io.Writer
	stderr io.Writer
	// runner, when set, replaces both the local ipmitool and any SSH host.
	runner ipmi.CommandRunner
}

func newCLI(out io.Writer) *cli {
	return &cli{
		out:    out,
		stderr: os.Stderr,
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "ipmictl",
		Short:         "Run IPMI operations against a baremetal node",
		Long:          "ipmictl drives a node's management controller through ipmitool and prints parsed results as JSON.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.out)

	pf := root.PersistentFlags()
	pf.StringVarP(&c.configPath, "config", "c", "", "Path to node config file")
	pf.StringVarP(&c.nodeName, "node", "n", "", "Node name from the config file (optional when it has one node)")
	pf.StringVarP(&c.host, "host", "H", "", "BMC address")
	pf.StringVarP(&c.user, "user", "U", "", "BMC user")
	pf.StringVarP(&c.password, "password", "P", "", "BMC password (or IPMI_PASSWORD)")
	pf.StringVarP(&c.privilege, "privilege", "L", strconv.Itoa(ipmi.DefaultPrivilegeLevel), "Privilege level, as a number or a name such as ADMINISTRATOR")
	pf.StringVarP(&c.iface, "interface", "I", ipmi.DefaultInterface, "ipmitool interface: lan or lanplus")
	pf.IntVarP(&c.port, "port", "p", 0, "RMCP port")
	pf.StringVar(&c.toolPath, "tool-path", ipmi.DefaultToolPath, "Path to ipmitool")
	pf.BoolVar(&c.strict, "strict", false, "Fail if ipmitool is missing or the BMC does not answer")
	pf.StringVar(&c.logLevel, "log-level", "warn", "Log level when no config file is given")

	root.AddCommand(
		newPowerCmd(c),
		newChassisCmd(c),
		newLanCmd(c),
		newMCCmd(c),
		newUserCmd(c),
		newNodeCmd(c),
		newRawCmd(c),
		newValidateCmd(c),
		newVersionCmd(c),
	)
	return root
}

// session is one connected driver and whatever must be released with it.
type session struct {
	driver *ipmi.Driver
	name   string
	closer func()
}

func (s *session) Close() {
	if s.closer != nil {
		s.closer()
	}
}

// connect builds a driver for the selected node.
func (c *cli) connect(ctx context.Context) (*session, error) {
	if c.configPath != "" {
		return c.connectFromConfig(ctx)
	}
	return c.connectFromFlags(ctx)
}

func (c *cli) connectFromFlags(ctx context.Context) (*session, error) {
	if c.password == "" {
		c.password = os.Getenv("IPMI_PASSWORD")
	}
	if c.host == "" || c.user == "" || c.password == "" {
		return nil, errors.New("either --config or all of --host, --user and --password are required")
	}

	level, ok := ipmi.DefaultCapabilities().ParsePrivilegeLevel(c.privilege)
	if !ok {
		return nil, fmt.Errorf("unknown privilege level %q", c.privilege)
	}

	logger, err := logging.NewWithWriter(logging.Config{Level: c.logLevel, Format: "text"}, c.stderr)
	if err != nil {
		return nil, err
	}

	cfg := ipmi.Config{
		User:           c.user,
		Password:       c.password,
		Host:           c.host,
		PrivilegeLevel: level,
		Interface:      c.iface,
		Port:           c.port,
	}
	opts := c.driverOptions(logger.Logger, c.toolPath, c.strict)
	d, err := ipmi.New(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &session{driver: d, name: c.host}, nil
}

func (c *cli) connectFromConfig(ctx context.Context) (*session, error) {
	cfg, err := config.LoadConfig(c.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	node, err := selectNode(&cfg, c.nodeName)
	if err != nil {
		return nil, err
	}

	logger, err := c.configLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	s := &session{name: node.Name}
	opts := c.driverOptions(logger.With("node", node.Name), node.ToolPath, node.Strict || c.strict)

	if cfg.Monitoring.VictoriaMetricsURL != "" {
		hostname, _ := os.Hostname()
		registry := metrics.NewPushRegistry(metrics.PushConfig{
			URL:      cfg.Monitoring.VictoriaMetricsURL,
			Prefix:   cfg.Monitoring.MetricsPrefix,
			Job:      cfg.Monitoring.JobName,
			Instance: hostname,
			OnError: func(err error) {
				logger.Warn("failed to push metrics", "error", err)
			},
		})
		cm, err := ipmi.NewCommandMetrics(registry)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ipmi.WithMetrics(cm))
	}

	if c.runner == nil && cfg.SSH.Enabled() {
		client, err := sshclient.NewFromConfig(cfg.SSH)
		if err != nil {
			return nil, fmt.Errorf("connecting to ssh host %s: %w", cfg.SSH.Host, err)
		}
		s.closer = func() { client.Close() }
		opts = append(opts, ipmi.WithRunner(sshclient.NewRunner(client)), ipmi.WithSkipToolCheck())
	}

	s.driver, err = ipmi.New(ctx, node.DriverConfig(), opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (c *cli) driverOptions(logger *slog.Logger, toolPath string, strict bool) []ipmi.Option {
	opts := []ipmi.Option{
		ipmi.WithLogger(logger),
		ipmi.WithToolPath(toolPath),
		ipmi.WithStrictInit(strict),
	}
	if c.runner != nil {
		opts = append(opts, ipmi.WithRunner(c.runner), ipmi.WithSkipToolCheck())
	}
	return opts
}

// configLogger builds the logger described by the config file. Logs that
// would go to stdout go to stderr instead; stdout carries the JSON result.
func (c *cli) configLogger(lc config.LoggingConfig) (*logging.Logger, error) {
	cfg := logging.Config{
		Level:     lc.Level,
		Format:    lc.Format,
		Output:    lc.Output,
		AddSource: lc.AddSource,
	}
	if cfg.Output == "" || cfg.Output == "stdout" || cfg.Output == "stderr" {
		return logging.NewWithWriter(cfg, c.stderr)
	}
	return logging.New(cfg)
}

func selectNode(cfg *config.Config, name string) (config.NodeConfig, error) {
	if name == "" {
		if len(cfg.Nodes) == 1 {
			return cfg.Nodes[0], nil
		}
		return config.NodeConfig{}, fmt.Errorf("--node is required when the config has %d nodes", len(cfg.Nodes))
	}
	node, ok := cfg.Node(name)
	if !ok {
		return config.NodeConfig{}, fmt.Errorf("node %q not found in config", name)
	}
	return node, nil
}

// withDriver connects, runs fn and prints what it returns.
func (c *cli) withDriver(cmd *cobra.Command, fn func(context.Context, *session) (any, error)) error {
	s, err := c.connect(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := fn(cmd.Context(), s)
	if err != nil {
		return err
	}
	return c.print(result)
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
