package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nomis52/baremetal/buildinfo"
	"github.com/nomis52/baremetal/config"
	"github.com/nomis52/baremetal/ipmi"
)

type powerStatusOutput struct {
	Node       string `json:"node"`
	PowerState string `json:"power_state"`
}

type powerActionOutput struct {
	Node      string `json:"node"`
	Action    string `json:"action"`
	Confirmed bool   `json:"confirmed"`
}

type rawOutput struct {
	Status   string `json:"status"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr,omitempty"`
	ExitCode int    `json:"exit_code"`
}

func newPowerCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "power",
		Short: "Read or change the chassis power state",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the chassis power state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDriver(cmd, func(ctx context.Context, s *session) (any, error) {
				state, err := s.driver.PowerStatus(ctx)
				if err != nil {
					return nil, err
				}
				return powerStatusOutput{Node: s.name, PowerState: state.String()}, nil
			})
		},
	})

	actions := []struct {
		name  string
		short string
		call  func(*ipmi.Driver, context.Context) (bool, error)
	}{
		{"on", "Power the chassis on", (*ipmi.Driver).PowerOn},
		{"off", "Power the chassis off immediately", (*ipmi.Driver).PowerOff},
		{"reset", "Hard reset the chassis", (*ipmi.Driver).PowerReset},
		{"cycle", "Power the chassis off and on again", (*ipmi.Driver).PowerCycle},
	}
	for _, a := range actions {
		cmd.AddCommand(&cobra.Command{
			Use:   a.name,
			Short: a.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withDriver(cmd, func(ctx context.Context, s *session) (any, error) {
					ok, err := a.call(s.driver, ctx)
					if err != nil {
						return nil, err
					}
					return powerActionOutput{Node: s.name, Action: a.name, Confirmed: ok}, nil
				})
			},
		})
	}
	return cmd
}

func newChassisCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chassis",
		Short: "Chassis status and boot device",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Print chassis status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withDriver(cmd, func(ctx context.Context, s *session) (any, error) {
					return s.driver.ChassisStatus(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "bootdev <device>",
			Short: "Set the next boot device, e.g. pxe, disk or bios",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withDriver(cmd, func(ctx context.Context, s *session) (any, error) {
					if err := s.driver.SetBootDevice(ctx, args[0]); err != nil {
						return nil, err
					}
					return map[string]string{"node": s.name, "device": args[0]}, nil
				})
			},
		},
	)
	return cmd
}

func newLanCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lan",
		Short: "BMC network configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "print",
			Short: "Print the LAN channel configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withDriver(cmd, func(ctx context.Context, s *session) (any, error) {
					return s.driver.LanStatus(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Print LAN statistics",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withDriver(cmd, func(ctx context.Context, s *session) (any, error) {
					return s.driver.LanStats(ctx)
				})
			},
		},
	)
	return cmd
}

func newMCCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mc",
		Short: "Management controller information",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Print controller identity and firmware",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDriver(cmd, func(ctx context.Context, s *session) (any, error) {
				return s.driver.ControllerInfo(ctx)
			})
		},
	})
	return cmd
}

func newUserCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "BMC user accounts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List BMC users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDriver(cmd, func(ctx context.Context, s *session) (any, error) {
				return s.driver.UserList(ctx)
			})
		},
	})
	return cmd
}

func newNodeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Node level checks and actions",
	}
	checks := []struct {
		name  string
		short string
		call  func(*ipmi.Driver, context.Context) (bool, error)
	}{
		{"active", "Report whether the node is powered on", (*ipmi.Driver).Active},
		{"exists", "Report whether the controller answers", (*ipmi.Driver).Exists},
		{"shutdown", "Power the node off", (*ipmi.Driver).Shutdown},
	}
	for _, ch := range checks {
		cmd.AddCommand(&cobra.Command{
			Use:   ch.name,
			Short: ch.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withDriver(cmd, func(ctx context.Context, s *session) (any, error) {
					ok, err := ch.call(s.driver, ctx)
					if err != nil {
						return nil, err
					}
					return map[string]any{"node": s.name, ch.name: ok}, nil
				})
			},
		})
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Print what the driver learned while connecting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDriver(cmd, func(ctx context.Context, s *session) (any, error) {
				userID, _ := s.driver.UserID()
				return map[string]any{
					"node":         s.name,
					"host":         s.driver.Host(),
					"privilege":    s.driver.PrivilegeName(),
					"system_ready": s.driver.SystemReady(),
					"reachable":    s.driver.Reachable(),
					"user_id":      userID,
				}, nil
			})
		},
	})
	return cmd
}

// newRawCmd exposes the category dispatchers directly. The sub-command is
// still checked against the capability table.
func newRawCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "raw <category> <sub-command...>",
		Short: "Run a whitelisted ipmitool sub-command and print its raw output",
		Example: `  ipmictl raw power status
  ipmictl raw lan stats get`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category := ipmi.Category(args[0])
			sub := strings.Join(args[1:], " ")
			return c.withDriver(cmd, func(ctx context.Context, s *session) (any, error) {
				var res ipmi.Result
				switch category {
				case ipmi.CategoryController:
					res = s.driver.ControllerManagement(ctx, sub)
				case ipmi.CategoryUser:
					res = s.driver.UserManagement(ctx, sub)
				case ipmi.CategoryPower:
					res = s.driver.PowerManagement(ctx, sub)
				case ipmi.CategoryChassis:
					res = s.driver.ChassisManagement(ctx, sub)
				case ipmi.CategoryLan:
					res = s.driver.LanManagement(ctx, sub)
				default:
					return nil, fmt.Errorf("%w: category %q", ipmi.ErrRejected, args[0])
				}
				if res.Status == ipmi.StatusRejected || res.Status == ipmi.StatusFailed {
					return nil, fmt.Errorf("%s %s: %w", category, sub, res.Err())
				}
				return rawOutput{
					Status:   res.Status.String(),
					Stdout:   res.Stdout,
					Stderr:   res.Stderr,
					ExitCode: res.ExitCode,
				}, nil
			})
		},
	}
}

func newValidateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the node config file and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.configPath == "" {
				return fmt.Errorf("config flag (-c or --config) is required")
			}
			cfg, err := config.LoadConfig(c.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			names := make([]string, 0, len(cfg.Nodes))
			for _, n := range cfg.Nodes {
				names = append(names, n.Name)
			}
			return c.print(map[string]any{"config": c.configPath, "valid": true, "nodes": names})
		},
	}
}

func newVersionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.print(buildinfo.Get())
		},
	}
}
