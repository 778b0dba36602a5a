package ipmi

import (
	"strings"
)

// PowerState is the chassis power state reported by `power status`.
type PowerState int

const (
	PowerStateUnknown PowerState = iota
	PowerStateOn
	PowerStateOff
)

func (p PowerState) String() string {
	switch p {
	case PowerStateOn:
		return "on"
	case PowerStateOff:
		return "off"
	default:
		return "unknown"
	}
}

// Int returns 1 for on, 0 for off and -1 when the state is unknown.
func (p PowerState) Int() int {
	switch p {
	case PowerStateOn:
		return 1
	case PowerStateOff:
		return 0
	default:
		return -1
	}
}

// MarshalText encodes the state as its String form.
func (p PowerState) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a state written by MarshalText.
func (p *PowerState) UnmarshalText(text []byte) error {
	*p = ParsePowerState(string(text))
	return nil
}

// ParsePowerState converts a string to a PowerState enum
func ParsePowerState(state string) PowerState {
	state = strings.ToLower(strings.TrimSpace(state))
	switch state {
	case "on":
		return PowerStateOn
	case "off":
		return PowerStateOff
	default:
		return PowerStateUnknown
	}
}

// powerStateFromStatus matches `power status` output against the status
// phrases in the capability table.
func powerStateFromStatus(caps Capabilities, out string) PowerState {
	switch {
	case caps.powerStatusOn != "" && strings.Contains(out, caps.powerStatusOn):
		return PowerStateOn
	case caps.powerStatusOff != "" && strings.Contains(out, caps.powerStatusOff):
		return PowerStateOff
	default:
		return PowerStateUnknown
	}
}
