package logging

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(msg string) LogEntry {
	return LogEntry{Time: time.Now(), Level: "INFO", Message: msg}
}

func TestNewLogCollector_DefaultLimit(t *testing.T) {
	assert.Equal(t, DefaultMaxEntries, NewLogCollector(0).maxEntries)
	assert.Equal(t, DefaultMaxEntries, NewLogCollector(-1).maxEntries)
	assert.Equal(t, 5, NewLogCollector(5).maxEntries)
}

func TestLogCollector_AddAndGet(t *testing.T) {
	c := NewLogCollector(0)
	c.AddLog("node1", entry("a"))
	c.AddLog("node1", entry("b"))
	c.AddLog("node2", entry("c"))

	logs := c.GetLogs("node1")
	require.Len(t, logs, 2)
	assert.Equal(t, "a", logs[0].Message)
	assert.Equal(t, "b", logs[1].Message)

	assert.Nil(t, c.GetLogs("node3"))
	assert.ElementsMatch(t, []string{"node1", "node2"}, c.Keys())
}

func TestLogCollector_EvictsOldest(t *testing.T) {
	c := NewLogCollector(3)
	for i := 0; i < 5; i++ {
		c.AddLog("node1", entry(fmt.Sprint(i)))
	}

	logs := c.GetLogs("node1")
	require.Len(t, logs, 3)
	assert.Equal(t, "2", logs[0].Message)
	assert.Equal(t, "4", logs[2].Message)
}

func TestLogCollector_GetLogsReturnsCopy(t *testing.T) {
	c := NewLogCollector(0)
	c.AddLog("node1", entry("original"))

	logs := c.GetLogs("node1")
	logs[0].Message = "changed"

	assert.Equal(t, "original", c.GetLogs("node1")[0].Message)
}

func TestLogCollector_Clear(t *testing.T) {
	c := NewLogCollector(0)
	c.AddLog("node1", entry("a"))
	c.AddLog("node2", entry("b"))

	c.Clear("node1")
	assert.Nil(t, c.GetLogs("node1"))
	assert.Len(t, c.GetLogs("node2"), 1)
}

func TestLogCollector_Concurrent(t *testing.T) {
	c := NewLogCollector(1000)
	const goroutines = 50
	const perGoroutine = 10

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				c.AddLog("node1", entry("concurrent"))
				_ = c.GetLogs("node1")
			}
		}()
	}
	wg.Wait()

	assert.Len(t, c.GetLogs("node1"), goroutines*perGoroutine)
}
