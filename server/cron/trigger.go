// Package cron schedules periodic work, such as node power polling, on
// cron expressions.
//
// A CronTrigger wraps a Runnable and runs it on its schedule until the
// context is cancelled. Runs never overlap: a run that is still in progress
// when the next one is due causes that tick to be skipped.
//
// Example usage:
//
//	trigger, err := cron.NewCronTrigger("*/5 * * * *", poller, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	trigger.Start(ctx)  // Returns immediately, runs in background
//	<-ctx.Done()        // Wait for shutdown signal
package cron

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidCronSpec is returned when the cron specification cannot be parsed.
var ErrInvalidCronSpec = errors.New("invalid cron spec")

// Runnable is implemented by anything that can be triggered by the cron scheduler.
type Runnable interface {
	Run(ctx context.Context) error
}

// RunnableFunc adapts a function to Runnable.
type RunnableFunc func(ctx context.Context) error

// Run calls f(ctx).
func (f RunnableFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// parser accepts standard 5 field expressions and descriptors such as
// "@hourly" or "@every 30s".
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a cron expression.
func ParseSchedule(spec string) (cron.Schedule, error) {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronSpec, err)
	}
	return schedule, nil
}

// CronTrigger executes a Runnable according to a cron schedule.
type CronTrigger struct {
	spec     string
	schedule cron.Schedule
	runnable Runnable
	logger   *slog.Logger
	running  atomic.Bool
}

// NewCronTrigger creates a new CronTrigger with the given cron specification.
// Returns ErrInvalidCronSpec if the specification cannot be parsed.
func NewCronTrigger(spec string, runnable Runnable, logger *slog.Logger) (*CronTrigger, error) {
	schedule, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}

	return &CronTrigger{
		spec:     spec,
		schedule: schedule,
		runnable: runnable,
		logger:   logger.With("schedule", spec),
	}, nil
}

// Spec returns the expression the trigger was created with.
func (ct *CronTrigger) Spec() string {
	return ct.spec
}

// Start launches a goroutine that triggers runs according to the cron schedule.
// Returns immediately. The goroutine exits when ctx is cancelled.
func (ct *CronTrigger) Start(ctx context.Context) {
	go ct.loop(ctx)
}

// NextRun returns the next scheduled run time from now.
func (ct *CronTrigger) NextRun() time.Time {
	return ct.schedule.Next(time.Now())
}

func (ct *CronTrigger) loop(ctx context.Context) {
	for {
		nextRun := ct.schedule.Next(time.Now())
		waitDuration := time.Until(nextRun)

		ct.logger.Debug("waiting for next scheduled run",
			"next_run", nextRun,
			"wait_duration", waitDuration,
		)

		timer := time.NewTimer(waitDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			ct.logger.Info("cron trigger shutting down")
			return
		case <-timer.C:
			go ct.executeRun(ctx)
		}
	}
}

// executeRun runs the runnable unless a previous run is still going.
func (ct *CronTrigger) executeRun(ctx context.Context) {
	if !ct.running.CompareAndSwap(false, true) {
		ct.logger.Warn("previous run still in progress, skipping")
		return
	}
	defer ct.running.Store(false)

	ct.logger.Debug("starting scheduled run")
	if err := ct.runnable.Run(ctx); err != nil {
		ct.logger.Warn("scheduled run completed with error", "error", err)
		return
	}
	ct.logger.Debug("scheduled run completed successfully")
}
