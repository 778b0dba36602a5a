package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockRunner records the node lists it is asked to run.
type mockRunner struct {
	mu       sync.Mutex
	runCount atomic.Int32
	runErr   error
	nodes    [][]string
}

func (m *mockRunner) RunNodes(ctx context.Context, nodes []string) error {
	m.runCount.Add(1)
	m.mu.Lock()
	m.nodes = append(m.nodes, nodes)
	m.mu.Unlock()
	return m.runErr
}

func TestNewCronTrigger(t *testing.T) {
	run := RunnableFunc(func(ctx context.Context) error { return nil })

	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{"every five minutes", "*/5 * * * *", false},
		{"daily at 2am", "0 2 * * *", false},
		{"descriptor", "@hourly", false},
		{"every interval", "@every 30s", false},
		{"empty", "", true},
		{"wrong format", "not a cron spec", true},
		{"too few fields", "0 2 *", true},
		{"seconds field not accepted", "0 0 2 * * *", true},
		{"invalid value", "60 2 * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger, err := NewCronTrigger(tt.spec, run, discardLogger())
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidCronSpec)
				assert.Nil(t, trigger)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.spec, trigger.Spec())
		})
	}
}

func TestCronTrigger_NextRun(t *testing.T) {
	trigger, err := NewCronTrigger("0 2 * * *", RunnableFunc(func(context.Context) error { return nil }), discardLogger())
	require.NoError(t, err)

	nextRun := trigger.NextRun()
	assert.True(t, nextRun.After(time.Now()), "next run should be in the future")
	assert.Equal(t, 2, nextRun.Hour())
	assert.Equal(t, 0, nextRun.Minute())
}

func TestCronTrigger_RunsOnSchedule(t *testing.T) {
	var count atomic.Int32
	run := RunnableFunc(func(ctx context.Context) error {
		count.Add(1)
		return errors.New("errors are logged, not fatal")
	})

	trigger, err := NewCronTrigger("@every 1s", run, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	trigger.Start(ctx)

	assert.Eventually(t, func() bool { return count.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)
}

func TestCronTrigger_CancellationStopsLoop(t *testing.T) {
	var count atomic.Int32
	run := RunnableFunc(func(ctx context.Context) error {
		count.Add(1)
		return nil
	})

	// yearly, so it never fires during the test
	trigger, err := NewCronTrigger("@yearly", run, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	trigger.Start(ctx)
	time.Sleep(10 * time.Millisecond)
	cancel()
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, int32(0), count.Load())
}

func TestCronTrigger_SkipsOverlappingRuns(t *testing.T) {
	var count atomic.Int32
	run := RunnableFunc(func(ctx context.Context) error {
		count.Add(1)
		return nil
	})
	trigger, err := NewCronTrigger("@hourly", run, discardLogger())
	require.NoError(t, err)

	trigger.running.Store(true)
	trigger.executeRun(context.Background())
	assert.Equal(t, int32(0), count.Load())

	trigger.running.Store(false)
	trigger.executeRun(context.Background())
	assert.Equal(t, int32(1), count.Load())
	assert.False(t, trigger.running.Load())
}
