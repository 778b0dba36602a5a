package server

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

const defaultCertCheckInterval = time.Minute

// CertLoader serves the listener certificate and picks up a renewed
// certificate or key from disk without a restart.
type CertLoader struct {
	certFile      string
	keyFile       string
	logger        *slog.Logger
	checkInterval time.Duration

	mu        sync.RWMutex
	cert      *tls.Certificate
	loadedAt  time.Time
	lastCheck time.Time
}

// NewCertLoader loads the key pair once and fails if it is unusable.
func NewCertLoader(certFile, keyFile string, logger *slog.Logger) (*CertLoader, error) {
	loader := &CertLoader{
		certFile:      certFile,
		keyFile:       keyFile,
		logger:        logger,
		checkInterval: defaultCertCheckInterval,
	}

	if err := loader.reload(); err != nil {
		return nil, err
	}
	return loader, nil
}

// TLSConfig returns a server TLS config backed by the loader.
func (l *CertLoader) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: l.GetCertificate,
	}
}

// GetCertificate is a callback for tls.Config.GetCertificate. The files
// are stat'ed at most once per check interval; on any error the previous
// certificate keeps being served.
func (l *CertLoader) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	l.mu.RLock()
	if time.Since(l.lastCheck) < l.checkInterval {
		defer l.mu.RUnlock()
		return l.cert, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastCheck) < l.checkInterval {
		return l.cert, nil
	}
	l.lastCheck = time.Now()

	if l.changed() {
		if err := l.reload(); err != nil {
			l.logger.Error("failed to reload certificate", "error", err)
		}
	}
	return l.cert, nil
}

func (l *CertLoader) changed() bool {
	for _, path := range []string{l.certFile, l.keyFile} {
		st, err := os.Stat(path)
		if err != nil {
			l.logger.Error("failed to stat tls file", "path", path, "error", err)
			return false
		}
		if st.ModTime().After(l.loadedAt) {
			return true
		}
	}
	return false
}

func (l *CertLoader) reload() error {
	cert, err := tls.LoadX509KeyPair(l.certFile, l.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load key pair: %w", err)
	}

	l.cert = &cert
	l.loadedAt = time.Now()
	l.logger.Info("loaded tls certificate", "cert", l.certFile, "key", l.keyFile)
	return nil
}
