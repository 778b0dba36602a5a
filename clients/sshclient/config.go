package sshclient

import (
	"github.com/nomis52/baremetal/config"
)

// NewFromConfig connects to the jump host described by cfg.
func NewFromConfig(cfg config.SSHConfig) (*SSHClient, error) {
	var opts []Option
	if cfg.PrivateKeyFile != "" {
		opts = append(opts, WithPrivateKeyFile(cfg.PrivateKeyFile))
	}
	if cfg.Password != "" {
		opts = append(opts, WithPassword(cfg.Password))
	}
	if cfg.KnownHostsFile != "" {
		opts = append(opts, WithKnownHosts(cfg.KnownHostsFile))
	}
	return New(cfg.Host, cfg.User, opts...)
}
