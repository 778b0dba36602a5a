package ipmi

import (
	"context"
	"fmt"
	"strings"
)

// ControllerManagement runs `mc <sub>`. Accepted: info, getsysinfo, getenables.
func (d *Driver) ControllerManagement(ctx context.Context, sub string) Result {
	return d.dispatch(ctx, CategoryController, sub)
}

// UserManagement runs `user <sub>`. Accepted: list.
func (d *Driver) UserManagement(ctx context.Context, sub string) Result {
	return d.dispatch(ctx, CategoryUser, sub)
}

// PowerManagement runs `power <sub>`.
// Accepted: status, on, off, cycle, reset, diag, soft.
func (d *Driver) PowerManagement(ctx context.Context, sub string) Result {
	return d.dispatch(ctx, CategoryPower, sub)
}

// ChassisManagement runs `chassis <sub>`.
// Accepted: status, power, identify, bootdev, bootparam, selftest.
func (d *Driver) ChassisManagement(ctx context.Context, sub string) Result {
	return d.dispatch(ctx, CategoryChassis, sub)
}

// LanManagement runs `lan <sub>`. Accepted: print, stats get.
func (d *Driver) LanManagement(ctx context.Context, sub string) Result {
	return d.dispatch(ctx, CategoryLan, sub)
}

// ControllerInfo returns the parsed output of `mc info`. On failure the
// map is empty, never nil.
func (d *Driver) ControllerInfo(ctx context.Context) (GroupedFields, error) {
	res := d.ControllerManagement(ctx, "info")
	if err := res.Err(); err != nil {
		return GroupedFields{}, fmt.Errorf("mc info: %w", err)
	}
	return ParseGrouped(res.Stdout), nil
}

// UserList returns the users configured on the controller.
func (d *Driver) UserList(ctx context.Context) ([]User, error) {
	res := d.UserManagement(ctx, "list")
	if err := res.Err(); err != nil {
		return []User{}, fmt.Errorf("user list: %w", err)
	}
	users, err := ParseUserList(res.Stdout, d.caps.UserListHeader())
	if err != nil {
		return users, fmt.Errorf("user list: %w", err)
	}
	return users, nil
}

// PowerStatus returns the chassis power state. PowerStateUnknown comes back
// with a non-nil error.
func (d *Driver) PowerStatus(ctx context.Context) (PowerState, error) {
	res := d.PowerManagement(ctx, "status")
	if err := res.Err(); err != nil {
		return PowerStateUnknown, fmt.Errorf("power status: %w", err)
	}
	state := powerStateFromStatus(d.caps, res.Stdout)
	if state == PowerStateUnknown {
		return state, fmt.Errorf("power status: %w: %q", ErrUnexpectedOutput, strings.TrimSpace(res.Stdout))
	}
	return state, nil
}

// PowerOn powers the chassis on.
func (d *Driver) PowerOn(ctx context.Context) (bool, error) {
	return d.powerAction(ctx, "on")
}

// PowerOff powers the chassis off without waiting for the OS.
func (d *Driver) PowerOff(ctx context.Context) (bool, error) {
	return d.powerAction(ctx, "off")
}

// PowerReset hard resets the chassis.
func (d *Driver) PowerReset(ctx context.Context) (bool, error) {
	return d.powerAction(ctx, "reset")
}

// PowerCycle powers the chassis off and on again.
func (d *Driver) PowerCycle(ctx context.Context) (bool, error) {
	return d.powerAction(ctx, "cycle")
}

// powerAction reports true only if ipmitool printed the confirmation line
// for action.
func (d *Driver) powerAction(ctx context.Context, action string) (bool, error) {
	res := d.PowerManagement(ctx, action)
	if err := res.Err(); err != nil {
		return false, fmt.Errorf("power %s: %w", action, err)
	}
	reply, ok := d.caps.PowerReply(action)
	if !ok || !strings.Contains(res.Stdout, reply) {
		return false, fmt.Errorf("power %s: %w: %q", action, ErrUnexpectedOutput, strings.TrimSpace(res.Stdout))
	}
	return true, nil
}

// ChassisStatus returns the parsed output of `chassis status`.
func (d *Driver) ChassisStatus(ctx context.Context) (Fields, error) {
	res := d.ChassisManagement(ctx, "status")
	if err := res.Err(); err != nil {
		return Fields{}, fmt.Errorf("chassis status: %w", err)
	}
	return ParseFlat(res.Stdout), nil
}

// LanStatus returns the parsed output of `lan print`.
func (d *Driver) LanStatus(ctx context.Context) (GroupedFields, error) {
	res := d.LanManagement(ctx, "print")
	if err := res.Err(); err != nil {
		return GroupedFields{}, fmt.Errorf("lan print: %w", err)
	}
	return ParseGrouped(res.Stdout), nil
}

// LanStats returns the parsed output of `lan stats get`.
func (d *Driver) LanStats(ctx context.Context) (Fields, error) {
	res := d.LanManagement(ctx, "stats get")
	if err := res.Err(); err != nil {
		return Fields{}, fmt.Errorf("lan stats get: %w", err)
	}
	return ParseFlat(res.Stdout), nil
}

// Shutdown powers the node off. There is no graceful OS shutdown.
func (d *Driver) Shutdown(ctx context.Context) (bool, error) {
	return d.PowerOff(ctx)
}

// Active reports whether the chassis is powered on. Off and unknown both
// count as inactive.
func (d *Driver) Active(ctx context.Context) (bool, error) {
	state, err := d.PowerStatus(ctx)
	return state == PowerStateOn, err
}

// Exists re-probes the controller with `mc info`.
func (d *Driver) Exists(ctx context.Context) (bool, error) {
	info, err := d.ControllerInfo(ctx)
	return len(info) > 0, err
}

// SetBootDevice runs `chassis bootdev <device>`. The device is passed
// through without consulting the capability table; only a failure to run
// ipmitool is reported.
func (d *Driver) SetBootDevice(ctx context.Context, device string) error {
	if strings.TrimSpace(device) == "" {
		return fmt.Errorf("chassis bootdev: %w: empty device", ErrRejected)
	}

	res := d.run(ctx, d.command(CategoryChassis, "bootdev", device))
	d.metrics.observe(d.cfg.Host, CategoryChassis, "bootdev", res.Status)
	if res.Status == StatusFailed {
		return fmt.Errorf("chassis bootdev %s: %w", device, res.Err())
	}
	d.logger.Info("boot device set", "device", device, "output", strings.TrimSpace(res.Stdout))
	return nil
}
