package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/embedsave/internal/ir"
)

// CycleWarning describes a cycle in the embed graph of a schema.
//
// Embed cycles are legal: the serializer's visited set stops the walk and
// emits identity stubs for records it has already embedded. They are
// reported so that schema authors know which payloads will carry stubs.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["artist", "album", "artist"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeEmbedCycles performs static cycle analysis on the embed graph.
//
// Nodes are models. There is an edge from a model to the target of every
// relationship its serializer embeds. Strongly connected components are
// found with Tarjan's algorithm and each SCC with more than one node, or
// with a self-loop, is reported at info level.
//
// A schema whose embed graph is a DAG returns an empty list.
func AnalyzeEmbedCycles(schema *ir.Schema) []CycleWarning {
	warnings := []CycleWarning{}
	if schema == nil {
		return warnings
	}

	graph := buildEmbedGraph(schema)
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}

	return warnings
}

// dependencyGraph maps model -> models it embeds.
type dependencyGraph map[string][]string

// buildEmbedGraph constructs the embed graph. Every model is a node even
// when it embeds nothing.
func buildEmbedGraph(schema *ir.Schema) dependencyGraph {
	graph := make(dependencyGraph)

	for _, m := range schema.Models {
		if graph[m.Name] == nil {
			graph[m.Name] = []string{}
		}
		sp, ok := schema.Serializer(m.Name)
		if !ok {
			continue
		}
		for _, r := range m.Relationships {
			if sp.Attrs[r.Name].Serialize {
				graph[m.Name] = append(graph[m.Name], r.Type)
			}
		}
	}

	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, where each SCC is a list of model names.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		// Set the depth index for v
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		// Consider successors of v
		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				// Successor w has not yet been visited; recurse on it
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				// Successor w is on stack and hence in the current SCC
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	// Visit all nodes in sorted order so output is deterministic
	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
//
// The path shows the cycle sequence by reconstructing a path through the SCC.
// For self-loops, the path is [model, model].
// For multi-node cycles, the path shows a cycle traversal.
func cycleSCCToWarning(scc []string, graph dependencyGraph) CycleWarning {
	if len(scc) == 1 {
		model := scc[0]
		return CycleWarning{
			Path:    []string{model, model},
			Message: fmt.Sprintf("model %s embeds itself; repeated records are sent as stubs", model),
			Level:   "info",
		}
	}

	path := reconstructCyclePath(scc, graph)

	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("embed cycle %s; repeated records are sent as stubs", strings.Join(path, " -> ")),
		Level:   "info",
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at first node in SCC, follow edges to other SCC members,
// continue until we return to start node.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	// Build set of SCC members for fast lookup
	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	// Start at first node
	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	// Follow edges within SCC until we return to start
	for {
		visited[current] = true

		// Find next SCC member reachable from current
		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			// No more unvisited neighbors in SCC
			break
		}

		path = append(path, next)

		if next == start {
			// Completed the cycle
			break
		}

		current = next
	}

	return path
}
