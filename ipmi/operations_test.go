package ipmi

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch_RejectsUnknownSubCommands(t *testing.T) {
	runner := newFakeRunner()
	d := newTestDriver(t, runner)
	runner.reset()
	ctx := context.Background()

	dispatchers := map[string]func(context.Context, string) Result{
		"controller": d.ControllerManagement,
		"user":       d.UserManagement,
		"power":      d.PowerManagement,
		"chassis":    d.ChassisManagement,
		"lan":        d.LanManagement,
	}
	subs := []string{"", "bogus", "status; reboot", "stats clear", "set password 2 hunter2", "INFO"}

	for name, dispatch := range dispatchers {
		for _, sub := range subs {
			t.Run(name+"/"+sub, func(t *testing.T) {
				res := dispatch(ctx, sub)
				assert.Equal(t, StatusRejected, res.Status)
				assert.Equal(t, "", res.Output())
				assert.ErrorIs(t, res.Err(), ErrRejected)
			})
		}
	}

	assert.Zero(t, runner.callCount(), "rejected sub-commands must not spawn a process")
}

func TestDispatch_AppendsCategoryAndSubCommand(t *testing.T) {
	runner := newFakeRunner()
	runner.set("lan stats get", "IP Rx Packet : 10\n")
	runner.set("chassis selftest", "Self Test Results    : passed\n")
	d := newTestDriver(t, runner)
	ctx := context.Background()

	res := d.LanManagement(ctx, "stats get")
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, []string{"lan", "stats", "get"}, runner.lastCall()[11:])

	res = d.ChassisManagement(ctx, "selftest")
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, "Self Test Results    : passed\n", res.Output())
	assert.Equal(t, []string{"chassis", "selftest"}, runner.lastCall()[11:])
}

func TestDispatch_EmptyOutput(t *testing.T) {
	runner := newFakeRunner()
	d := newTestDriver(t, runner)

	res := d.ControllerManagement(context.Background(), "getenables")
	assert.Equal(t, StatusEmpty, res.Status)
	assert.Equal(t, "", res.Output())
	assert.ErrorIs(t, res.Err(), ErrNoOutput)
}

func TestDispatch_KeepsStderrAndExitCode(t *testing.T) {
	runner := newFakeRunner()
	runner.responses["power diag"] = Output{
		Stdout:   "Chassis Power Control: Diag\n",
		Stderr:   "warning\n",
		ExitCode: 1,
	}
	d := newTestDriver(t, runner)

	res := d.PowerManagement(context.Background(), "diag")
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, "warning\n", res.Stderr)
	assert.Equal(t, 1, res.ExitCode)
	assert.NoError(t, res.Err())
}

func TestControllerInfo(t *testing.T) {
	d := newTestDriver(t, newFakeRunner())

	info, err := d.ControllerInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "32", info.First("Device ID"))
	assert.Equal(t, "Super Micro Computer Inc.", info.First("Manufacturer Name"))
	assert.Equal(t, []string{"Sensor Device", "SDR Repository Device", "FRU Inventory Device"},
		info["Additional Device Support"])
}

func TestUserList(t *testing.T) {
	d := newTestDriver(t, newFakeRunner())

	users, err := d.UserList(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []User{
		{ID: "1", Name: "", Priv: "(0x00)"},
		{ID: "2", Name: "ADMIN", Priv: "ADMINISTRATOR"},
		{ID: "3", Name: "test", Priv: "OPERATOR"},
	}, users)
}

func TestUserList_UnexpectedOutput(t *testing.T) {
	runner := newFakeRunner()
	d := newTestDriver(t, runner)
	runner.set("user list", "Get User Access command failed (channel 14, user 1)\n")

	users, err := d.UserList(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedOutput)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestPowerStatus(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		expected PowerState
		wantErr  error
	}{
		{"on", "Chassis Power is on\n", PowerStateOn, nil},
		{"off", "Chassis Power is off\n", PowerStateOff, nil},
		{"garbage", "Error: Unable to establish IPMI v2 / RMCP+ session\n", PowerStateUnknown, ErrUnexpectedOutput},
		{"empty", "", PowerStateUnknown, ErrNoOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newFakeRunner()
			runner.set("power status", tt.output)
			d := newTestDriver(t, runner)

			state, err := d.PowerStatus(context.Background())
			assert.Equal(t, tt.expected, state)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPowerActions(t *testing.T) {
	replies := map[string]string{
		"on":    "Chassis Power Control: Up/On\n",
		"off":   "Chassis Power Control: Down/Off\n",
		"reset": "Chassis Power Control: Reset\n",
		"cycle": "Chassis Power Control: Cycle\n",
	}

	actions := map[string]func(*Driver, context.Context) (bool, error){
		"on":    (*Driver).PowerOn,
		"off":   (*Driver).PowerOff,
		"reset": (*Driver).PowerReset,
		"cycle": (*Driver).PowerCycle,
	}

	for action, call := range actions {
		t.Run(action+"/confirmed", func(t *testing.T) {
			runner := newFakeRunner()
			runner.set("power "+action, replies[action])
			d := newTestDriver(t, runner)

			ok, err := call(d, context.Background())
			assert.NoError(t, err)
			assert.True(t, ok)
		})

		t.Run(action+"/empty output", func(t *testing.T) {
			d := newTestDriver(t, newFakeRunner())

			ok, err := call(d, context.Background())
			assert.ErrorIs(t, err, ErrNoOutput)
			assert.False(t, ok)
		})

		// another action's confirmation must not count
		for other, reply := range replies {
			if other == action {
				continue
			}
			t.Run(action+"/reply of "+other, func(t *testing.T) {
				runner := newFakeRunner()
				runner.set("power "+action, reply)
				d := newTestDriver(t, runner)

				ok, err := call(d, context.Background())
				assert.ErrorIs(t, err, ErrUnexpectedOutput)
				assert.False(t, ok)
			})
		}
	}
}

func TestShutdown(t *testing.T) {
	runner := newFakeRunner()
	runner.set("power off", "Chassis Power Control: Down/Off\n")
	d := newTestDriver(t, runner)

	ok, err := d.Shutdown(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"power", "off"}, runner.lastCall()[11:])
}

func TestActive(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		expected bool
	}{
		{"on", "Chassis Power is on\n", true},
		{"off", "Chassis Power is off\n", false},
		{"unknown", "who knows\n", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newFakeRunner()
			runner.set("power status", tt.output)
			d := newTestDriver(t, runner)

			active, _ := d.Active(context.Background())
			assert.Equal(t, tt.expected, active)
		})
	}
}

func TestExists(t *testing.T) {
	runner := newFakeRunner()
	d := newTestDriver(t, runner)

	ok, err := d.Exists(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	runner.set("mc info", "")
	ok, err = d.Exists(context.Background())
	assert.ErrorIs(t, err, ErrNoOutput)
	assert.False(t, ok)
	// the construction-time result is unchanged
	assert.True(t, d.Reachable())
}

func TestChassisStatus(t *testing.T) {
	runner := newFakeRunner()
	runner.set("chassis status", chassisStatusOutput)
	d := newTestDriver(t, runner)

	status, err := d.ChassisStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "on", status["System Power"])
}

func TestLanStatusAndStats(t *testing.T) {
	runner := newFakeRunner()
	runner.set("lan print", lanPrintOutput)
	runner.set("lan stats get", "IP Rx Packet              : 1024\nUDP Proxy Packet Dropped  : 0\n")
	d := newTestDriver(t, runner)
	ctx := context.Background()

	lan, err := d.LanStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Static Address", lan.First("IP Address Source"))

	stats, err := d.LanStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Fields{"IP Rx Packet": "1024", "UDP Proxy Packet Dropped": "0"}, stats)
}

func TestSetBootDevice(t *testing.T) {
	runner := newFakeRunner()
	runner.set("chassis bootdev pxe", "Set Boot Device to pxe\n")
	d := newTestDriver(t, runner)

	require.NoError(t, d.SetBootDevice(context.Background(), "pxe"))
	assert.Equal(t, []string{"chassis", "bootdev", "pxe"}, runner.lastCall()[11:])

	// devices outside the capability table still go through
	require.NoError(t, d.SetBootDevice(context.Background(), "floppy"))
	assert.Equal(t, []string{"chassis", "bootdev", "floppy"}, runner.lastCall()[11:])
}

func TestSetBootDevice_EmptyDevice(t *testing.T) {
	runner := newFakeRunner()
	d := newTestDriver(t, runner)
	runner.reset()

	err := d.SetBootDevice(context.Background(), " ")
	assert.ErrorIs(t, err, ErrRejected)
	assert.Zero(t, runner.callCount())
}

func TestOperations_SpawnFailureDegrades(t *testing.T) {
	runner := newFakeRunner()
	d := newTestDriver(t, runner)
	runner.err = errors.New("fork/exec /usr/bin/ipmitool: permission denied")
	ctx := context.Background()

	res := d.PowerManagement(ctx, "status")
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "", res.Output())
	assert.ErrorIs(t, res.Err(), ErrExecFailed)

	info, err := d.ControllerInfo(ctx)
	assert.ErrorIs(t, err, ErrExecFailed)
	assert.Equal(t, GroupedFields{}, info)

	users, err := d.UserList(ctx)
	assert.ErrorIs(t, err, ErrExecFailed)
	assert.Equal(t, []User{}, users)

	state, err := d.PowerStatus(ctx)
	assert.ErrorIs(t, err, ErrExecFailed)
	assert.Equal(t, PowerStateUnknown, state)

	for _, call := range []func(context.Context) (bool, error){
		d.PowerOn, d.PowerOff, d.PowerReset, d.PowerCycle, d.Shutdown, d.Active, d.Exists,
	} {
		ok, err := call(ctx)
		assert.ErrorIs(t, err, ErrExecFailed)
		assert.False(t, ok)
	}

	chassis, err := d.ChassisStatus(ctx)
	assert.ErrorIs(t, err, ErrExecFailed)
	assert.Equal(t, Fields{}, chassis)

	lan, err := d.LanStatus(ctx)
	assert.ErrorIs(t, err, ErrExecFailed)
	assert.Equal(t, GroupedFields{}, lan)

	stats, err := d.LanStats(ctx)
	assert.ErrorIs(t, err, ErrExecFailed)
	assert.Equal(t, Fields{}, stats)

	assert.ErrorIs(t, d.SetBootDevice(ctx, "disk"), ErrExecFailed)
}
