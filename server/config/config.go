package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig represents the server runtime configuration.
type ServerConfig struct {
	Listener ListenerConfig `yaml:"listener"`
	// Poll schedules power status polling, e.g.
	// "rack1-u10,rack1-u12:*/5 * * * *;*:@hourly". Empty disables polling.
	Poll string `yaml:"poll"`
	// The path to the directory used to store node history. Empty keeps
	// history in memory only.
	StateDir string `yaml:"state_dir"`
	// HistorySize is the number of events kept, defaults to 500
	HistorySize int    `yaml:"history_size"`
	LogLevel    string `yaml:"log_level"`
	// The path to the node (fleet) config file
	NodesConfig string `yaml:"nodes_config"`
}

// ListenerConfig holds HTTP server listener settings.
type ListenerConfig struct {
	// The listen address, defaults to :8080
	Addr string `yaml:"addr"`
	// TLSCert and TLSKey enable HTTPS when both are set. The files are
	// re-read when they change.
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`
}

// TLSEnabled reports whether a certificate and key were configured.
func (l ListenerConfig) TLSEnabled() bool {
	return l.TLSCert != "" && l.TLSKey != ""
}

// LoadConfig reads the YAML config file at the given path and returns a ServerConfig struct.
func LoadConfig(path string) (*ServerConfig, error) {
	var cfg ServerConfig
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open server config file %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode YAML server config: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults sets reasonable default values for optional fields.
func (c *ServerConfig) SetDefaults() {
	if c.Listener.Addr == "" {
		c.Listener.Addr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.HistorySize == 0 {
		c.HistorySize = 500
	}
}

// Validate checks the fields that cannot be defaulted. The poll schedule
// is checked later against the configured node names.
func (c *ServerConfig) Validate() error {
	var errs []error
	if c.NodesConfig == "" {
		errs = append(errs, errors.New("nodes_config is required"))
	}
	if c.HistorySize < 0 {
		errs = append(errs, fmt.Errorf("history_size must not be negative, got %d", c.HistorySize))
	}
	if (c.Listener.TLSCert == "") != (c.Listener.TLSKey == "") {
		errs = append(errs, errors.New("listener: tls_cert and tls_key must be set together"))
	}
	return errors.Join(errs...)
}
