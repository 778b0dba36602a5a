package ipmi

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/baremetal/metrics"
)

// CommandMetrics counts dispatched ipmitool commands. One instance is
// shared by every Driver registered against the same metrics.Registry.
type CommandMetrics struct {
	commands metrics.CounterVec
}

// NewCommandMetrics registers the ipmi_commands_total counter with reg.
func NewCommandMetrics(reg metrics.Registry) (*CommandMetrics, error) {
	cv, err := reg.NewCounterVec(prometheus.CounterOpts{
		Name: "ipmi_commands_total",
		Help: "ipmitool commands dispatched, by category, sub-command and outcome.",
	}, []string{"host", "category", "command", "status"})
	if err != nil {
		return nil, fmt.Errorf("registering ipmi command metrics: %w", err)
	}
	return &CommandMetrics{commands: cv}, nil
}

func (m *CommandMetrics) observe(host string, category Category, command string, status Status) {
	if m == nil {
		return
	}
	m.commands.With(prometheus.Labels{
		"host":     host,
		"category": string(category),
		"command":  command,
		"status":   status.String(),
	}).Inc()
}
