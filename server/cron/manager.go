package cron

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// NodeRunner does the scheduled work for a set of nodes.
type NodeRunner interface {
	RunNodes(ctx context.Context, nodes []string) error
}

// CronTriggerManager owns one CronTrigger per trigger spec.
type CronTriggerManager struct {
	triggers []*CronTrigger
	specs    []TriggerSpec
	logger   *slog.Logger
}

// NewCronTriggerManager creates a CronTriggerManager from a multi-trigger
// specification; see ParseTriggerSpecs for the format.
func NewCronTriggerManager(spec string, runner NodeRunner, logger *slog.Logger, availableNodes []string) (*CronTriggerManager, error) {
	triggerSpecs, err := ParseTriggerSpecs(spec, availableNodes)
	if err != nil {
		return nil, err
	}

	triggers := make([]*CronTrigger, 0, len(triggerSpecs))
	for _, ts := range triggerSpecs {
		nodes := ts.Nodes
		run := RunnableFunc(func(ctx context.Context) error {
			return runner.RunNodes(ctx, nodes)
		})

		trigger, err := NewCronTrigger(ts.CronSpec, run, logger)
		if err != nil {
			return nil, fmt.Errorf("creating trigger for '%s:%s': %w",
				strings.Join(ts.Nodes, nodeListSeparator), ts.CronSpec, err)
		}
		triggers = append(triggers, trigger)
	}

	for i, trigger := range triggers {
		logger.Info("trigger registered",
			"nodes", triggerSpecs[i].Nodes,
			"schedule", triggerSpecs[i].CronSpec,
			"next_run", trigger.NextRun(),
		)
	}

	return &CronTriggerManager{
		triggers: triggers,
		specs:    triggerSpecs,
		logger:   logger,
	}, nil
}

// Start launches all triggers. Each trigger runs in its own goroutine.
// Returns immediately. All goroutines exit when ctx is cancelled.
func (m *CronTriggerManager) Start(ctx context.Context) {
	for _, trigger := range m.triggers {
		trigger.Start(ctx)
	}
}

// Specs returns the parsed trigger specs.
func (m *CronTriggerManager) Specs() []TriggerSpec {
	return m.specs
}

// NextRun returns the earliest scheduled run time across all triggers.
// Returns zero time if there are no triggers.
func (m *CronTriggerManager) NextRun() time.Time {
	var earliest time.Time
	for _, t := range m.triggers {
		next := t.NextRun()
		if earliest.IsZero() || next.Before(earliest) {
			earliest = next
		}
	}
	return earliest
}
