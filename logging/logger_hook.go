package logging

import (
	"log/slog"
)

// LoggerHook derives a per-node logger from a base logger.
type LoggerHook interface {
	LoggerFor(base *slog.Logger, node string) *slog.Logger
}

// CapturingLoggerHook hands out loggers whose records are also kept in a
// LogCollector under the node name.
type CapturingLoggerHook struct {
	collector *LogCollector
}

// NewCapturingLoggerHook creates a hook that captures into collector.
func NewCapturingLoggerHook(collector *LogCollector) *CapturingLoggerHook {
	return &CapturingLoggerHook{
		collector: collector,
	}
}

// LoggerFor returns base tagged with the node name and capturing enabled.
func (p *CapturingLoggerHook) LoggerFor(base *slog.Logger, node string) *slog.Logger {
	h := NewCapturingHandler(base.Handler(), p.collector, node)
	return slog.New(h).With("node", node)
}

// Collector returns the collector the hook writes to.
func (p *CapturingLoggerHook) Collector() *LogCollector {
	return p.collector
}
