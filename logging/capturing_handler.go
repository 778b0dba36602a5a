package logging

import (
	"context"
	"log/slog"
)

// CapturingHandler wraps an slog.Handler, recording every record in a
// LogCollector under a fixed key before passing it on.
type CapturingHandler struct {
	underlying slog.Handler
	collector  *LogCollector
	key        string
	attrs      []slog.Attr
}

// NewCapturingHandler creates a CapturingHandler that files records under key.
func NewCapturingHandler(underlying slog.Handler, collector *LogCollector, key string) *CapturingHandler {
	return &CapturingHandler{
		underlying: underlying,
		collector:  collector,
		key:        key,
	}
}

// Enabled returns true for every level so DEBUG records are captured even
// when the underlying handler would drop them.
func (h *CapturingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

// Handle captures the record, then forwards it if the underlying handler
// accepts its level.
func (h *CapturingHandler) Handle(ctx context.Context, r slog.Record) error {
	entry := LogEntry{
		Time:       r.Time,
		Level:      r.Level.String(),
		Message:    r.Message,
		Attributes: make(map[string]any, r.NumAttrs()+len(h.attrs)),
	}
	for _, attr := range h.attrs {
		entry.Attributes[attr.Key] = resolveValue(attr.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		entry.Attributes[a.Key] = resolveValue(a.Value)
		return true
	})
	h.collector.AddLog(h.key, entry)

	if !h.underlying.Enabled(ctx, r.Level) {
		return nil
	}
	return h.underlying.Handle(ctx, r)
}

// WithAttrs must return a CapturingHandler so .With() chains keep capturing.
func (h *CapturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)

	return &CapturingHandler{
		underlying: h.underlying.WithAttrs(attrs),
		collector:  h.collector,
		key:        h.key,
		attrs:      newAttrs,
	}
}

// WithGroup only affects the underlying handler; captured attributes stay flat.
func (h *CapturingHandler) WithGroup(name string) slog.Handler {
	return &CapturingHandler{
		underlying: h.underlying.WithGroup(name),
		collector:  h.collector,
		key:        h.key,
		attrs:      h.attrs,
	}
}

// resolveValue converts a slog.Value to something encoding/json can write.
func resolveValue(v slog.Value) any {
	v = v.Resolve()

	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	case slog.KindGroup:
		attrs := v.Group()
		group := make(map[string]any, len(attrs))
		for _, attr := range attrs {
			group[attr.Key] = resolveValue(attr.Value)
		}
		return group
	default:
		return v.Any()
	}
}
