package ipmi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePowerState(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected PowerState
	}{
		{
			name:     "on state",
			input:    "on",
			expected: PowerStateOn,
		},
		{
			name:     "off state",
			input:    "off",
			expected: PowerStateOff,
		},
		{
			name:     "uppercase input",
			input:    "ON",
			expected: PowerStateOn,
		},
		{
			name:     "input with whitespace",
			input:    "  off  ",
			expected: PowerStateOff,
		},
		{
			name:     "empty string",
			input:    "",
			expected: PowerStateUnknown,
		},
		{
			name:     "invalid state",
			input:    "soft-off",
			expected: PowerStateUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParsePowerState(tt.input)
			if result != tt.expected {
				t.Errorf("ParsePowerState(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPowerStateStringAndInt(t *testing.T) {
	tests := []struct {
		input   PowerState
		str     string
		numeric int
	}{
		{PowerStateOn, "on", 1},
		{PowerStateOff, "off", 0},
		{PowerStateUnknown, "unknown", -1},
		{PowerState(999), "unknown", -1},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			assert.Equal(t, tt.str, tt.input.String())
			assert.Equal(t, tt.numeric, tt.input.Int())
		})
	}
}

func TestPowerStateJSON(t *testing.T) {
	data, err := json.Marshal(map[string]PowerState{"state": PowerStateOff})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"off"}`, string(data))

	var decoded map[string]PowerState
	require.NoError(t, json.Unmarshal([]byte(`{"state":"on"}`), &decoded))
	assert.Equal(t, PowerStateOn, decoded["state"])
}

func TestPowerStateFromStatus(t *testing.T) {
	caps := DefaultCapabilities()

	tests := []struct {
		name     string
		output   string
		expected PowerState
	}{
		{"on", "Chassis Power is on\n", PowerStateOn},
		{"off", "Chassis Power is off\n", PowerStateOff},
		{"empty", "", PowerStateUnknown},
		{"error text", "Error: Unable to establish IPMI v2 / RMCP+ session\n", PowerStateUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, powerStateFromStatus(caps, tt.output))
		})
	}
}
