// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"strconv"
	"testing"
)

func TestTopologicalSort_EmptyGraph(t *testing.T) {
	t.Parallel()
	order, err := New().TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil, got %v", order)
	}
}

func TestTopologicalSort_LinearChain(t *testing.T) {
	t.Parallel()
	g := New()
	// A depends on B, B depends on C.
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"C", "B", "A"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_Diamond(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("A", "C")
	g.AddEdge("B", "D")
	g.AddEdge("C", "D")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Declared order is followed: A -> B -> D, then C.
	expected := []string{"D", "B", "C", "A"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_DependenciesComeFirst(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("app", "render")
	g.AddEdge("app", "ecs")
	g.AddEdge("render", "math")
	g.AddEdge("ecs", "math")
	g.AddEdge("tests", "ecs")
	g.AddNode("tool")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	position := make(map[string]int, len(order))
	for i, n := range order {
		position[n] = i
	}
	for _, node := range g.nodes {
		for _, dep := range g.adjacency[node] {
			if position[dep] >= position[node] {
				t.Errorf("%s (at %d) must come after its dependency %s (at %d)", node, position[node], dep, position[dep])
			}
		}
	}

	again, _ := g.TopologicalSort()
	if !slices.Equal(order, again) {
		t.Errorf("sort is not stable: %v vs %v", order, again)
	}
}

func TestTopologicalSort_Cycle(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("C", "A")

	_, err := g.TopologicalSort()
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if !errors.Is(err, ErrCycle) {
		t.Error("expected errors.Is(err, ErrCycle)")
	}
	expected := []string{"A", "B", "C", "A"}
	if !slices.Equal(cycleErr.Walk, expected) {
		t.Errorf("expected walk %v, got %v", expected, cycleErr.Walk)
	}
}

func TestFindCycle_WalkStartsAtRepeatedNode(t *testing.T) {
	t.Parallel()
	g := New()
	// root -> X -> Y -> Z -> X
	g.AddEdge("root", "X")
	g.AddEdge("X", "Y")
	g.AddEdge("Y", "Z")
	g.AddEdge("Z", "X")

	walk := g.FindCycle()
	expected := []string{"X", "Y", "Z", "X"}
	if !slices.Equal(walk, expected) {
		t.Errorf("expected %v, got %v", expected, walk)
	}
}

func TestFindCycle_SelfLoop(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("A", "A")

	walk := g.FindCycle()
	if !slices.Equal(walk, []string{"A", "A"}) {
		t.Errorf("expected [A A], got %v", walk)
	}
}

func TestFindCycle_DiamondIsNotACycle(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("A", "C")
	g.AddEdge("B", "D")
	g.AddEdge("C", "D")

	if walk := g.FindCycle(); walk != nil {
		t.Errorf("expected no cycle, got %v", walk)
	}
}

func TestPostOrder_SubsetOfRoots(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("C", "D")

	order := g.PostOrder("A")
	if !slices.Equal(order, []string{"B", "A"}) {
		t.Errorf("expected [B A], got %v", order)
	}
}

func TestPostOrder_DeepChainDoesNotRecurse(t *testing.T) {
	t.Parallel()
	g := New()
	const depth = 100000
	for i := range depth - 1 {
		g.AddEdge(strconv.Itoa(i), strconv.Itoa(i+1))
	}

	order := g.PostOrder("0")
	if len(order) != depth {
		t.Fatalf("expected %d nodes, got %d", depth, len(order))
	}
	if order[0] != strconv.Itoa(depth-1) || order[depth-1] != "0" {
		t.Errorf("unexpected ends: first=%s last=%s", order[0], order[depth-1])
	}
	if g.FindCycle() != nil {
		t.Error("unexpected cycle in chain")
	}
}
