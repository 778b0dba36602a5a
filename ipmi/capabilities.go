package ipmi

import (
	"slices"
	"strconv"
)

// Category is an ipmitool command group. The value is the keyword passed to the tool.
type Category string

const (
	CategoryController     Category = "mc"
	CategoryUser           Category = "user"
	CategoryPower          Category = "power"
	CategoryChassis        Category = "chassis"
	CategoryLan            Category = "lan"
	CategoryVirtualStorage Category = "vstorage"
	CategorySensors        Category = "sensor"
)

// defaultPrivilegeName is used for privilege levels missing from the table.
const defaultPrivilegeName = "USER"

// Capabilities describes which sub-commands each category accepts and the
// literal replies ipmitool prints for them.
//
// Capabilities has no mutators; a table cannot change once it has been built.
type Capabilities struct {
	commands map[Category][]string

	powerStatusOn  string
	powerStatusOff string
	powerReplies   map[string]string

	userListHeader  string
	privilegeLevels map[int]string
}

// DefaultCapabilities returns the capability table for stock ipmitool.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		commands: map[Category][]string{
			CategoryPower:          {"status", "on", "off", "cycle", "reset", "diag", "soft"},
			CategoryUser:           {"list"},
			CategoryChassis:        {"status", "power", "identify", "bootdev", "bootparam", "selftest"},
			CategoryLan:            {"print", "stats get"},
			CategoryController:     {"info", "getsysinfo", "getenables"},
			CategoryVirtualStorage: {},
			CategorySensors:        {},
		},
		powerStatusOn:  "Chassis Power is on",
		powerStatusOff: "Chassis Power is off",
		powerReplies: map[string]string{
			"on":    "Chassis Power Control: Up/On",
			"off":   "Chassis Power Control: Down/Off",
			"reset": "Chassis Power Control: Reset",
			"cycle": "Chassis Power Control: Cycle",
		},
		userListHeader: "ID  Name",
		privilegeLevels: map[int]string{
			1:  "CALLBACK",
			2:  "USER",
			3:  "OPERATOR",
			4:  "ADMINISTRATOR",
			5:  "OEM",
			15: "NO ACCESS",
		},
	}
}

// Supports reports whether sub is an accepted sub-command of category.
func (c Capabilities) Supports(category Category, sub string) bool {
	return slices.Contains(c.commands[category], sub)
}

// Commands returns the sub-commands accepted for category.
func (c Capabilities) Commands(category Category) []string {
	return slices.Clone(c.commands[category])
}

// PrivilegeName maps a numeric privilege level to the name ipmitool expects
// for -L. Unknown levels map to USER.
func (c Capabilities) PrivilegeName(level int) string {
	if name, ok := c.privilegeLevels[level]; ok {
		return name
	}
	return defaultPrivilegeName
}

// PrivilegeLevels returns the known levels in ascending order.
func (c Capabilities) PrivilegeLevels() []int {
	levels := make([]int, 0, len(c.privilegeLevels))
	for l := range c.privilegeLevels {
		levels = append(levels, l)
	}
	slices.Sort(levels)
	return levels
}

// PowerReply returns the confirmation line ipmitool prints after a
// successful power action.
func (c Capabilities) PowerReply(action string) (string, bool) {
	r, ok := c.powerReplies[action]
	return r, ok
}

// UserListHeader is the text that must head `user list` output.
func (c Capabilities) UserListHeader() string {
	return c.userListHeader
}

// ParsePrivilegeLevel accepts either a numeric level ("4") or a name
// ("ADMINISTRATOR") and returns the numeric level.
func (c Capabilities) ParsePrivilegeLevel(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, n != 0
	}
	for level, name := range c.privilegeLevels {
		if name == s {
			return level, true
		}
	}
	return 0, false
}
