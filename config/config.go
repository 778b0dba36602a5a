package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/nomis52/baremetal/ipmi"
)

const (
	// Default node settings
	defaultPrivilegeLevel = ipmi.DefaultPrivilegeLevel
	defaultInterface      = ipmi.DefaultInterface
	defaultToolPath       = ipmi.DefaultToolPath

	// Default monitoring settings
	defaultMetricsPrefix = "baremetal"
	defaultJobName       = "baremetal"

	// Default logging settings
	defaultLogLevel  = "info"
	defaultLogFormat = "json"
	defaultLogOutput = "stdout"

	redacted = "REDACTED"
)

// Config represents the node fleet configuration
type Config struct {
	Nodes      []NodeConfig     `yaml:"nodes" json:"nodes"`
	SSH        SSHConfig        `yaml:"ssh" json:"ssh"`
	Monitoring MonitoringConfig `yaml:"monitoring" json:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// NodeConfig holds the BMC connection settings for one baremetal node
type NodeConfig struct {
	// Name identifies the node in the API and CLI
	Name     string `yaml:"name" json:"name"`
	Host     string `yaml:"host" json:"host"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	// PrivilegeLevel is the IPMI session privilege, 1-5 or 15. Defaults to 3 (OPERATOR).
	PrivilegeLevel int `yaml:"privilege_level" json:"privilege_level"`
	// Interface is the ipmitool interface, lan or lanplus
	Interface string `yaml:"interface" json:"interface"`
	Port      int    `yaml:"port" json:"port"`
	ToolPath  string `yaml:"tool_path" json:"tool_path"`
	// Strict fails driver construction if ipmitool is missing or the BMC is unreachable
	Strict bool `yaml:"strict" json:"strict"`
}

// SSHConfig describes an optional jump host that ipmitool is run on.
// Leave Host empty to run ipmitool locally.
type SSHConfig struct {
	Host           string `yaml:"host" json:"host"`
	User           string `yaml:"user" json:"user"`
	PrivateKeyFile string `yaml:"private_key_file" json:"private_key_file"`
	Password       string `yaml:"password" json:"password"`
	KnownHostsFile string `yaml:"known_hosts_file" json:"known_hosts_file"`
}

// Enabled reports whether a jump host is configured.
func (c SSHConfig) Enabled() bool {
	return c.Host != ""
}

// MonitoringConfig holds metrics and monitoring settings
type MonitoringConfig struct {
	// VictoriaMetricsURL enables pushing metrics. Empty means scrape only.
	VictoriaMetricsURL string `yaml:"victoriametrics_url" json:"victoriametrics_url"`
	MetricsPrefix      string `yaml:"metrics_prefix" json:"metrics_prefix"`
	JobName            string `yaml:"jobname" json:"jobname"`
}

// LoggingConfig defines logging behavior settings
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	Format    string `yaml:"format" json:"format"`
	Output    string `yaml:"output" json:"output"`
	AddSource bool   `yaml:"add_source" json:"add_source"`
}

// DriverConfig returns the connection settings passed to ipmi.New.
func (n NodeConfig) DriverConfig() ipmi.Config {
	return ipmi.Config{
		User:           n.Username,
		Password:       n.Password,
		Host:           n.Host,
		PrivilegeLevel: n.PrivilegeLevel,
		Interface:      n.Interface,
		Port:           n.Port,
	}
}

// Node returns the node with the given name.
func (c *Config) Node(name string) (NodeConfig, bool) {
	for _, n := range c.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return NodeConfig{}, false
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	if len(c.Nodes) == 0 {
		return fmt.Errorf("at least one node is required")
	}

	var errs []error
	seen := make(map[string]bool, len(c.Nodes))
	for i, n := range c.Nodes {
		if n.Name == "" {
			errs = append(errs, fmt.Errorf("node %d: name is required", i))
			continue
		}
		if seen[n.Name] {
			errs = append(errs, fmt.Errorf("node %q: duplicate name", n.Name))
		}
		seen[n.Name] = true
		if err := n.validate(); err != nil {
			errs = append(errs, fmt.Errorf("node %q: %w", n.Name, err))
		}
	}

	if c.SSH.Enabled() {
		if c.SSH.User == "" {
			errs = append(errs, fmt.Errorf("ssh user is required when ssh host is set"))
		}
		if c.SSH.PrivateKeyFile == "" && c.SSH.Password == "" {
			errs = append(errs, fmt.Errorf("ssh requires private_key_file or password"))
		}
	}

	return errors.Join(errs...)
}

func (n NodeConfig) validate() error {
	if n.Host == "" {
		return fmt.Errorf("host is required")
	}
	if n.Username == "" {
		return fmt.Errorf("username is required")
	}
	if n.Password == "" {
		return fmt.Errorf("password is required")
	}
	if !slices.Contains(ipmi.DefaultCapabilities().PrivilegeLevels(), n.PrivilegeLevel) {
		return fmt.Errorf("unknown privilege level %d", n.PrivilegeLevel)
	}
	if n.Interface != "lan" && n.Interface != "lanplus" {
		return fmt.Errorf("interface must be lan or lanplus, got %q", n.Interface)
	}
	if n.Port < 0 || n.Port > 65535 {
		return fmt.Errorf("port %d out of range", n.Port)
	}
	return nil
}

// SetDefaults sets reasonable default values for optional fields
func (c *Config) SetDefaults() {
	for i := range c.Nodes {
		n := &c.Nodes[i]
		if n.PrivilegeLevel == 0 {
			n.PrivilegeLevel = defaultPrivilegeLevel
		}
		if n.Interface == "" {
			n.Interface = defaultInterface
		}
		if n.ToolPath == "" {
			n.ToolPath = defaultToolPath
		}
	}
	if c.Monitoring.MetricsPrefix == "" {
		c.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
	// Set logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = defaultLogOutput
	}
}

// Redacted returns a copy of the config with all secrets replaced.
func (c Config) Redacted() Config {
	nodes := make([]NodeConfig, len(c.Nodes))
	for i, n := range c.Nodes {
		if n.Password != "" {
			n.Password = redacted
		}
		nodes[i] = n
	}
	c.Nodes = nodes
	if c.SSH.Password != "" {
		c.SSH.Password = redacted
	}
	return c
}

// LoadConfig reads the YAML config file at the given path and returns a Config struct
func LoadConfig(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
