package ipmi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilities_PrivilegeName(t *testing.T) {
	caps := DefaultCapabilities()

	tests := []struct {
		level    int
		expected string
	}{
		{1, "CALLBACK"},
		{2, "USER"},
		{3, "OPERATOR"},
		{4, "ADMINISTRATOR"},
		{5, "OEM"},
		{15, "NO ACCESS"},
		{0, "USER"},
		{6, "USER"},
		{-1, "USER"},
		{99, "USER"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, caps.PrivilegeName(tt.level))
		})
	}
}

func TestCapabilities_PrivilegeLevels(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3, 4, 5, 15}, DefaultCapabilities().PrivilegeLevels())
}

func TestCapabilities_Supports(t *testing.T) {
	caps := DefaultCapabilities()

	tests := []struct {
		name     string
		category Category
		sub      string
		expected bool
	}{
		{"power status", CategoryPower, "status", true},
		{"power soft", CategoryPower, "soft", true},
		{"power bogus", CategoryPower, "explode", false},
		{"user list", CategoryUser, "list", true},
		{"user set password", CategoryUser, "set password", false},
		{"chassis bootdev", CategoryChassis, "bootdev", true},
		{"chassis policy", CategoryChassis, "policy", false},
		{"lan print", CategoryLan, "print", true},
		{"lan stats get", CategoryLan, "stats get", true},
		{"lan stats clear", CategoryLan, "stats clear", false},
		{"mc info", CategoryController, "info", true},
		{"mc reset", CategoryController, "reset cold", false},
		{"vstorage has nothing", CategoryVirtualStorage, "", false},
		{"sensors has nothing", CategorySensors, "list", false},
		{"unknown category", Category("sel"), "list", false},
		{"injection attempt", CategoryPower, "status; rm -rf /", false},
		{"empty sub-command", CategoryPower, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, caps.Supports(tt.category, tt.sub))
		})
	}
}

func TestCapabilities_CommandsIsACopy(t *testing.T) {
	caps := DefaultCapabilities()

	cmds := caps.Commands(CategoryUser)
	cmds[0] = "delete"

	assert.True(t, caps.Supports(CategoryUser, "list"))
	assert.False(t, caps.Supports(CategoryUser, "delete"))
}

func TestCapabilities_PowerReply(t *testing.T) {
	caps := DefaultCapabilities()

	reply, ok := caps.PowerReply("on")
	assert.True(t, ok)
	assert.Equal(t, "Chassis Power Control: Up/On", reply)

	_, ok = caps.PowerReply("status")
	assert.False(t, ok)
}

func TestCapabilities_ParsePrivilegeLevel(t *testing.T) {
	caps := DefaultCapabilities()

	tests := []struct {
		input  string
		level  int
		wantOK bool
	}{
		{"4", 4, true},
		{"ADMINISTRATOR", 4, true},
		{"NO ACCESS", 15, true},
		{"0", 0, false},
		{"superuser", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, ok := caps.ParsePrivilegeLevel(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.level, level)
		})
	}
}
