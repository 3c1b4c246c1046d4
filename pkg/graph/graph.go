// Package graph validates workflow node graphs and computes their
// execution schedules.
//
// Workflows are authored by end users, so the graph is treated as
// untrusted input: nodes and edges are indexed by id and validation is
// fully iterative, never recursive, so that malformed or cyclic input
// cannot blow the stack.
package graph

import (
	"fmt"
	"sort"

	"github.com/loomhq/loom/pkg/models"
)

// Schedule is a topological execution plan. Levels groups nodes with
// no dependency edges among them; nodes of the same level may run
// concurrently, and a level must not start before every node of the
// previous levels has a terminal state. Ids inside a level are sorted
// ascending for deterministic log ordering.
type Schedule struct {
	Levels [][]string
	Order  []string

	// Incoming maps each node id to the sorted ids of its direct
	// upstream nodes, used for failure propagation.
	Incoming map[string][]string
}

// Plan validates the workflow graph and computes its schedule using
// Kahn's algorithm: repeatedly drain the currently zero-indegree nodes
// as one level and decrement the indegree of their successors. A graph
// that does not drain completely contains a cycle.
func Plan(workflow *models.Workflow) (*Schedule, error) {
	if len(workflow.Nodes) == 0 {
		return nil, &ValidationError{
			Kind:   NoEntryPoint,
			Detail: "workflow has no nodes",
		}
	}

	nodes := make(map[string]*models.Node, len(workflow.Nodes))
	for _, node := range workflow.Nodes {
		nodes[node.ID] = node
	}

	indegree := make(map[string]int, len(nodes))
	successors := make(map[string][]string, len(nodes))
	incoming := make(map[string][]string, len(nodes))

	for id := range nodes {
		indegree[id] = 0
	}

	for _, edge := range workflow.Edges {
		if _, ok := nodes[edge.Source]; !ok {
			return nil, &ValidationError{
				Kind:   DanglingEdge,
				Detail: fmt.Sprintf("edge source %q references a missing node", edge.Source),
			}
		}

		if _, ok := nodes[edge.Target]; !ok {
			return nil, &ValidationError{
				Kind:   DanglingEdge,
				Detail: fmt.Sprintf("edge target %q references a missing node", edge.Target),
			}
		}

		indegree[edge.Target]++
		successors[edge.Source] = append(successors[edge.Source], edge.Target)
		incoming[edge.Target] = append(incoming[edge.Target], edge.Source)
	}

	for id := range incoming {
		sort.Strings(incoming[id])
	}

	schedule := &Schedule{Incoming: incoming}

	roots := make([]string, 0, len(nodes))

	for id, degree := range indegree {
		if degree == 0 {
			roots = append(roots, id)
		}
	}

	remaining := len(nodes)
	ready := append([]string(nil), roots...)

	for len(ready) > 0 {
		sort.Strings(ready)

		level := ready
		ready = make([]string, 0)

		schedule.Levels = append(schedule.Levels, level)
		schedule.Order = append(schedule.Order, level...)
		remaining -= len(level)

		for _, id := range level {
			for _, successor := range successors[id] {
				indegree[successor]--
				if indegree[successor] == 0 {
					ready = append(ready, successor)
				}
			}
		}
	}

	// A cycle is reported before any entry-point complaint: a trigger
	// caught inside a cycle has no zero-indegree root either, and the
	// cycle is the actual defect.
	if remaining > 0 {
		return nil, &ValidationError{
			Kind:   CycleDetected,
			Detail: fmt.Sprintf("%d nodes are unreachable due to a directed cycle", remaining),
		}
	}

	if err := checkEntryPoint(workflow, nodes, roots); err != nil {
		return nil, err
	}

	return schedule, nil
}

// checkEntryPoint requires at least one root trigger node compatible
// with the workflow's declared trigger kind. A trigger node that
// declares its own kind must match; one that does not accepts any.
func checkEntryPoint(workflow *models.Workflow, nodes map[string]*models.Node, roots []string) error {
	for _, id := range roots {
		node := nodes[id]
		if node.Type != models.NodeTypeTrigger {
			continue
		}

		kind, declared := node.Config["kind"].(string)
		if !declared || kind == string(workflow.Trigger.Kind) {
			return nil
		}
	}

	return &ValidationError{
		Kind: NoEntryPoint,
		Detail: fmt.Sprintf(
			"no zero-indegree trigger node compatible with trigger kind %q", workflow.Trigger.Kind),
	}
}
