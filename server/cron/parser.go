package cron

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	triggerSeparator  = ";"
	nodesSeparator    = ":"
	nodeListSeparator = ","

	// AllNodes in place of a node list selects every configured node.
	AllNodes = "*"
)

// TriggerSpec is one parsed trigger: the nodes it covers and its schedule.
type TriggerSpec struct {
	Nodes    []string
	CronSpec string
}

// ParseTriggerSpecs parses a multi-trigger specification string.
// The format is: node1,node2:cron_expression;node3:cron_expression2
// A node list of "*" expands to every name in availableNodes.
//
// Example:
//
//	"rack1-u10,rack1-u12:*/5 * * * *;*:@hourly"
//
// Returns an error if any trigger is missing its nodes or cron expression,
// names a node not in availableNodes, repeats a node, or has an invalid
// cron expression.
func ParseTriggerSpecs(spec string, availableNodes []string) ([]TriggerSpec, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("cron spec cannot be empty")
	}

	triggerStrs := strings.Split(spec, triggerSeparator)
	specs := make([]TriggerSpec, 0, len(triggerStrs))

	for _, triggerStr := range triggerStrs {
		triggerStr = strings.TrimSpace(triggerStr)
		if triggerStr == "" {
			continue
		}

		triggerSpec, err := parseSingleTrigger(triggerStr, availableNodes)
		if err != nil {
			return nil, err
		}
		specs = append(specs, triggerSpec)
	}

	if len(specs) == 0 {
		return nil, errors.New("no valid triggers found in cron spec")
	}

	return specs, nil
}

func parseSingleTrigger(triggerStr string, availableNodes []string) (TriggerSpec, error) {
	nodesStr, cronSpec, ok := strings.Cut(triggerStr, nodesSeparator)
	if !ok {
		return TriggerSpec{}, fmt.Errorf("invalid trigger spec: expected format 'nodes:cron', got '%s'", triggerStr)
	}
	nodesStr = strings.TrimSpace(nodesStr)
	cronSpec = strings.TrimSpace(cronSpec)

	if nodesStr == "" {
		return TriggerSpec{}, fmt.Errorf("invalid trigger spec: missing nodes in '%s'", triggerStr)
	}
	if cronSpec == "" {
		return TriggerSpec{}, fmt.Errorf("invalid trigger spec: missing cron schedule in '%s'", triggerStr)
	}

	var nodes []string
	if nodesStr == AllNodes {
		nodes = slices.Clone(availableNodes)
	} else {
		seen := make(map[string]bool)
		for _, n := range strings.Split(nodesStr, nodeListSeparator) {
			n = strings.TrimSpace(n)
			if n == "" {
				continue
			}
			if seen[n] {
				return TriggerSpec{}, fmt.Errorf("invalid trigger spec: duplicate node '%s' in '%s'", n, triggerStr)
			}
			seen[n] = true

			if !slices.Contains(availableNodes, n) {
				return TriggerSpec{}, fmt.Errorf("invalid trigger spec: unknown node '%s' in '%s' (available: %s)",
					n, triggerStr, strings.Join(availableNodes, ", "))
			}
			nodes = append(nodes, n)
		}
	}

	if len(nodes) == 0 {
		return TriggerSpec{}, fmt.Errorf("invalid trigger spec: no valid nodes in '%s'", triggerStr)
	}

	if _, err := ParseSchedule(cronSpec); err != nil {
		return TriggerSpec{}, fmt.Errorf("invalid trigger spec: invalid cron expression in '%s': %w", triggerStr, err)
	}

	return TriggerSpec{
		Nodes:    nodes,
		CronSpec: cronSpec,
	}, nil
}
