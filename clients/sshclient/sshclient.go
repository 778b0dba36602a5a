package sshclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const defaultPort = 22

// SSHClient manages a persistent SSH connection for running multiple commands.
type SSHClient struct {
	client *ssh.Client
}

// Option configures how New authenticates and verifies the host.
type Option func(*options) error

type options struct {
	auth            []ssh.AuthMethod
	hostKeyCallback ssh.HostKeyCallback
}

// WithPrivateKey authenticates with a PEM encoded private key.
func WithPrivateKey(privateKeyPEM []byte) Option {
	return func(o *options) error {
		signer, err := ssh.ParsePrivateKey(privateKeyPEM)
		if err != nil {
			return fmt.Errorf("failed to parse private key: %w", err)
		}
		o.auth = append(o.auth, ssh.PublicKeys(signer))
		return nil
	}
}

// WithPrivateKeyFile authenticates with the PEM encoded private key at path.
func WithPrivateKeyFile(path string) Option {
	return func(o *options) error {
		pem, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read private key: %w", err)
		}
		return WithPrivateKey(pem)(o)
	}
}

// WithPassword authenticates with a password.
func WithPassword(password string) Option {
	return func(o *options) error {
		o.auth = append(o.auth, ssh.Password(password))
		return nil
	}
}

// WithKnownHosts verifies the host key against an OpenSSH known_hosts file.
// Without it host keys are not checked.
func WithKnownHosts(path string) Option {
	return func(o *options) error {
		cb, err := knownhosts.New(path)
		if err != nil {
			return fmt.Errorf("failed to load known hosts: %w", err)
		}
		o.hostKeyCallback = cb
		return nil
	}
}

// New creates a new SSHClient connected to host. The port defaults to 22.
func New(host, user string, opts ...Option) (*SSHClient, error) {
	o := &options{
		hostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if len(o.auth) == 0 {
		return nil, errors.New("no SSH authentication method configured")
	}

	config := &ssh.ClientConfig{
		User:            user,
		Auth:            o.auth,
		HostKeyCallback: o.hostKeyCallback,
	}

	client, err := ssh.Dial("tcp", withDefaultPort(host), config)
	if err != nil {
		return nil, fmt.Errorf("failed to dial SSH: %w", err)
	}

	return &SSHClient{client: client}, nil
}

func withDefaultPort(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(defaultPort))
}

// RunContext executes a command on the remote host using a new session on
// the existing connection. When ctx is done the session is closed, which
// ends the remote command.
func (c *SSHClient) RunContext(ctx context.Context, command string) (string, string, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return "", "", fmt.Errorf("failed to create SSH session: %w", err)
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			session.Close()
		case <-done:
		}
	}()

	if err := session.Run(command); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return stdoutBuf.String(), stderrBuf.String(), fmt.Errorf("failed to run command: %w", err)
	}

	return stdoutBuf.String(), stderrBuf.String(), nil
}

// Close closes the underlying SSH connection.
func (c *SSHClient) Close() error {
	return c.client.Close()
}
