package logging

import (
	"sync"
	"time"
)

// DefaultMaxEntries is the number of records kept per key when no limit is given.
const DefaultMaxEntries = 200

// LogEntry represents a single log record with structured data.
type LogEntry struct {
	Time       time.Time      `json:"time"`
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes"`
}

// LogCollector keeps the most recent log entries for each key, typically a
// node name. Older entries are dropped once a key holds maxEntries.
type LogCollector struct {
	mu         sync.RWMutex
	maxEntries int
	logs       map[string][]LogEntry
}

// NewLogCollector creates a LogCollector that keeps at most maxEntries per
// key. A non-positive value means DefaultMaxEntries.
func NewLogCollector(maxEntries int) *LogCollector {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &LogCollector{
		maxEntries: maxEntries,
		logs:       make(map[string][]LogEntry),
	}
}

// AddLog appends an entry for key, evicting the oldest one when full.
func (c *LogCollector) AddLog(key string, entry LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logs := append(c.logs[key], entry)
	if over := len(logs) - c.maxEntries; over > 0 {
		logs = append(logs[:0:0], logs[over:]...)
	}
	c.logs[key] = logs
}

// GetLogs returns a copy of the entries for key, oldest first.
func (c *LogCollector) GetLogs(key string) []LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	logs, exists := c.logs[key]
	if !exists {
		return nil
	}

	result := make([]LogEntry, len(logs))
	copy(result, logs)
	return result
}

// Keys returns the keys that have entries.
func (c *LogCollector) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.logs))
	for k := range c.logs {
		keys = append(keys, k)
	}
	return keys
}

// Clear removes the entries for key.
func (c *LogCollector) Clear(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.logs, key)
}
