// SPDX-License-Identifier: MPL-2.0

// Package dag provides the directed graph operations behind module ordering:
// three-colour cycle detection and depth-first post-order topological sorting.
//
// Edges mean "depends on": an edge from A to B says A requires B. Successors
// are visited in the order their edges were added, and roots in the order
// nodes were first added, so every traversal is deterministic for a given
// construction sequence. Traversals use an explicit stack rather than
// recursion, so deep dependency chains cannot exhaust the goroutine stack.
package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	white color = iota // unvisited
	gray               // on the current traversal path
	black              // fully processed
)

// ErrCycle is the sentinel wrapped by CycleError.
var ErrCycle = errors.New("dependency cycle detected")

type (
	color int

	// CycleError indicates that the graph contains a cycle.
	CycleError struct {
		// Walk is the traversal path from the first node of the cycle back to
		// that same node, inclusive at both ends (e.g. [A B C A]).
		Walk []string
	}

	// Graph is a directed graph keyed by node name.
	Graph struct {
		// adjacency maps each node to the nodes it depends on, in edge insertion order.
		adjacency map[string][]string
		// nodes tracks all nodes in insertion order.
		nodes []string
		// nodeSet provides O(1) lookup for node existence.
		nodeSet map[string]bool
	}

	// frame is one entry of the explicit DFS stack.
	frame struct {
		node string
		next int
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCycle, strings.Join(e.Walk, " -> "))
}

// Unwrap returns ErrCycle for errors.Is() compatibility.
func (e *CycleError) Unwrap() error { return ErrCycle }

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// AddNode adds a node to the graph. Adding an existing node is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge records that "from" depends on "to". Both nodes are added if missing.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.adjacency[from] = append(g.adjacency[from], to)
}

// HasNode reports whether name is a node of the graph.
func (g *Graph) HasNode(name string) bool {
	return g.nodeSet[name]
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// FindCycle runs a three-colour depth-first search from every unvisited node
// in insertion order and returns the walk of the first cycle found, or nil.
// The walk starts at the node the back edge points to and ends with it again.
func (g *Graph) FindCycle() []string {
	colors := make(map[string]color, len(g.nodes))

	for _, root := range g.nodes {
		if colors[root] != white {
			continue
		}

		colors[root] = gray
		stack := []frame{{node: root}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			successors := g.adjacency[top.node]
			if top.next == len(successors) {
				colors[top.node] = black
				stack = stack[:len(stack)-1]
				continue
			}

			next := successors[top.next]
			top.next++
			switch colors[next] {
			case white:
				colors[next] = gray
				stack = append(stack, frame{node: next})
			case gray:
				return cycleWalk(stack, next)
			}
		}
	}

	return nil
}

// cycleWalk extracts the path segment starting at repeated from the DFS stack.
func cycleWalk(stack []frame, repeated string) []string {
	start := slices.IndexFunc(stack, func(f frame) bool { return f.node == repeated })
	walk := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		walk = append(walk, f.node)
	}
	return append(walk, repeated)
}

// PostOrder returns the depth-first post-order of everything reachable from
// roots: every node appears after all nodes it depends on. Roots that are not
// graph nodes are emitted as isolated nodes. Cycles do not stop the traversal
// (a back edge is simply skipped); use FindCycle to reject them first.
func (g *Graph) PostOrder(roots ...string) []string {
	visited := make(map[string]bool, len(g.nodes))
	order := make([]string, 0, len(g.nodes))

	for _, root := range roots {
		if visited[root] {
			continue
		}

		visited[root] = true
		stack := []frame{{node: root}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			successors := g.adjacency[top.node]
			if top.next == len(successors) {
				order = append(order, top.node)
				stack = stack[:len(stack)-1]
				continue
			}

			next := successors[top.next]
			top.next++
			if !visited[next] {
				visited[next] = true
				stack = append(stack, frame{node: next})
			}
		}
	}

	return order
}

// TopologicalSort returns every node ordered so that each node comes after
// all of its dependencies. Returns a *CycleError if the graph has a cycle.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}
	if walk := g.FindCycle(); walk != nil {
		return nil, &CycleError{Walk: walk}
	}
	return g.PostOrder(g.nodes...), nil
}
