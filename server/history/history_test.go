package history

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func event(node string, offset time.Duration) Event {
	return Event{
		Kind:      KindPower,
		Node:      node,
		Action:    "on",
		StartedAt: base.Add(offset),
		EndedAt:   base.Add(offset + time.Second),
		Confirmed: true,
	}
}

// assertEventEqual compares events handling time.Time properly.
func assertEventEqual(t *testing.T, expected, actual Event, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, expected.ID, actual.ID, msgAndArgs...)
	assert.Equal(t, expected.Kind, actual.Kind, msgAndArgs...)
	assert.Equal(t, expected.Node, actual.Node, msgAndArgs...)
	assert.Equal(t, expected.Action, actual.Action, msgAndArgs...)
	assert.Equal(t, expected.Confirmed, actual.Confirmed, msgAndArgs...)
	assert.Equal(t, expected.Error, actual.Error, msgAndArgs...)
	assert.True(t, expected.StartedAt.Equal(actual.StartedAt), msgAndArgs...)
	assert.True(t, expected.EndedAt.Equal(actual.EndedAt), msgAndArgs...)
}

func TestCalculateID(t *testing.T) {
	a := event("node1", 0)
	b := event("node1", time.Nanosecond)
	c := event("node2", 0)

	assert.Len(t, a.CalculateID(), 12)
	assert.Equal(t, a.CalculateID(), event("node1", 0).CalculateID())
	assert.NotEqual(t, a.CalculateID(), b.CalculateID())
	assert.NotEqual(t, a.CalculateID(), c.CalculateID())
}

func TestForNode(t *testing.T) {
	events := []Event{event("node1", 0), event("node2", 0), event("node1", time.Hour)}
	assert.Len(t, ForNode(events, "node1"), 2)
	assert.Len(t, ForNode(events, "node3"), 0)
	assert.Len(t, ForNode(events, ""), 3)
}

func TestMemoryStore_Save(t *testing.T) {
	store := NewMemoryStore(0)

	e := event("node1", 0)
	require.NoError(t, store.Save(e))

	events := store.Events()
	require.Len(t, events, 1)

	// ID should have been populated
	e.ID = e.CalculateID()
	assert.Equal(t, e, events[0])
}

func TestMemoryStore_OrderAndLimit(t *testing.T) {
	store := NewMemoryStore(3)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(event("node1", time.Duration(i)*time.Hour)))
	}

	events := store.Events()
	require.Len(t, events, 3)
	assert.True(t, events[0].StartedAt.Equal(base.Add(4*time.Hour)))
	for i := 0; i < len(events)-1; i++ {
		assert.True(t, events[i].StartedAt.After(events[i+1].StartedAt))
	}
}

func TestMemoryStore_EventsReturnsCopy(t *testing.T) {
	store := NewMemoryStore(0)
	require.NoError(t, store.Save(event("node1", 0)))

	events1 := store.Events()
	events1[0].Error = "modified"
	assert.Empty(t, store.Events()[0].Error)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	store := NewMemoryStore(0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Save(event("node1", time.Duration(i)*time.Minute)))
		}()
	}
	wg.Wait()

	assert.Len(t, store.Events(), 10)
}

func TestDiskStore_Save(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, 10, discardLogger())
	require.NoError(t, err)
	assert.Empty(t, store.Events())

	e := event("node1", 0)
	require.NoError(t, store.Save(e))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "2025-03-01T12-00-00-"+e.CalculateID()+".json", files[0].Name())
}

func TestDiskStore_SaveWithoutStartTime(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), 10, discardLogger())
	require.NoError(t, err)

	err = store.Save(Event{Kind: KindPower, Node: "node1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot save event without start time")
}

func TestDiskStore_LoadsExistingEvents(t *testing.T) {
	dir := t.TempDir()

	store1, err := NewDiskStore(dir, 10, discardLogger())
	require.NoError(t, err)
	e := event("node1", 0)
	e.Error = "power on: ipmi: no output"
	require.NoError(t, store1.Save(e))
	require.NoError(t, store1.Save(event("node2", time.Hour)))

	store2, err := NewDiskStore(dir, 10, discardLogger())
	require.NoError(t, err)

	events := store2.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "node2", events[0].Node)
	e.ID = e.CalculateID()
	assertEventEqual(t, e, events[1])
}

func TestDiskStore_MaxCount(t *testing.T) {
	dir := t.TempDir()
	maxCount := 5
	store, err := NewDiskStore(dir, maxCount, discardLogger())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, store.Save(event("node1", time.Duration(i)*time.Hour)))
	}

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, maxCount)

	require.NoError(t, store.Reload())
	events := store.Events()
	require.Len(t, events, maxCount)
	assert.True(t, events[0].StartedAt.Equal(base.Add(9*time.Hour)))
	for i := 0; i < len(events)-1; i++ {
		assert.True(t, events[i].StartedAt.After(events[i+1].StartedAt))
	}
}

func TestDiskStore_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("test"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "subdir"), 0755))

	store, err := NewDiskStore(dir, 10, discardLogger())
	require.NoError(t, err)
	assert.Empty(t, store.Events())
}
