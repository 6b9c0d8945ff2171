package onestroke

import "testing"

func TestMoveOutOfBoundsAtGridEdge(t *testing.T) {
	cfg := difficulties["easy"]
	g, err := Generate(cfg, newTestSource(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state := NewState("u1", "c1", cfg, g, 10)
	state.Current = Node{Row: 0, Col: 0}
	if r := state.Move('W'); r != MoveOutOfBounds {
		t.Fatalf("expected out-of-bounds moving up from row 0, got %v", r)
	}
	if r := state.Move('A'); r != MoveOutOfBounds {
		t.Fatalf("expected out-of-bounds moving left from col 0, got %v", r)
	}
}

func TestMoveAlreadyDrawnRejectsRepeat(t *testing.T) {
	a := Node{Row: 0, Col: 0}
	b := Node{Row: 0, Col: 1}
	g := &Graph{
		Rows: 1, Cols: 2,
		Nodes:     map[Node]bool{a: true, b: true},
		Edges:     map[Edge]bool{NewEdge(a, b): true},
		StartNode: a,
	}
	state := NewState("u1", "c1", difficulties["easy"], g, 10)

	if r := state.Move('D'); r != MoveSuccess {
		t.Fatalf("expected first move to succeed, got %v", r)
	}
	if r := state.Move('A'); r != MoveAlreadyDrawn {
		t.Fatalf("expected retracing a drawn edge to be rejected, got %v", r)
	}
	if state.Current != b {
		t.Fatalf("expected a rejected move to leave the position at %+v, got %+v", b, state.Current)
	}
}

func TestMoveNoEdgeWhenGraphLacksConnection(t *testing.T) {
	a := Node{Row: 0, Col: 0}
	b := Node{Row: 0, Col: 1}
	c := Node{Row: 1, Col: 0}
	g := &Graph{
		Rows: 2, Cols: 2,
		Nodes:     map[Node]bool{a: true, b: true, c: true},
		Edges:     map[Edge]bool{NewEdge(a, b): true},
		StartNode: a,
	}
	state := NewState("u1", "c1", difficulties["easy"], g, 10)
	if r := state.Move('S'); r != MoveNoEdge {
		t.Fatalf("expected no edge moving down with no such edge in graph, got %v", r)
	}
}

func TestCompleteOnceAllEdgesDrawn(t *testing.T) {
	a := Node{Row: 0, Col: 0}
	b := Node{Row: 0, Col: 1}
	g := &Graph{
		Rows: 1, Cols: 2,
		Nodes:     map[Node]bool{a: true, b: true},
		Edges:     map[Edge]bool{NewEdge(a, b): true},
		StartNode: a,
	}
	state := NewState("u1", "c1", difficulties["easy"], g, 10)
	if state.Complete() {
		t.Fatal("expected not complete before any move")
	}
	state.Move('D')
	if !state.Complete() {
		t.Fatal("expected complete after drawing the only edge")
	}
}

func TestResetClearsProgressButKeepsGraph(t *testing.T) {
	a := Node{Row: 0, Col: 0}
	b := Node{Row: 0, Col: 1}
	g := &Graph{
		Rows: 1, Cols: 2,
		Nodes:     map[Node]bool{a: true, b: true},
		Edges:     map[Edge]bool{NewEdge(a, b): true},
		StartNode: a,
	}
	state := NewState("u1", "c1", difficulties["easy"], g, 10)
	state.Move('D')
	state.Reset()

	if len(state.Drawn) != 0 {
		t.Fatalf("expected drawn edges cleared, got %v", state.Drawn)
	}
	if state.Current != g.StartNode {
		t.Fatalf("expected position reset to start node, got %+v", state.Current)
	}
	if state.Graph != g {
		t.Fatal("expected reset to keep the same graph")
	}
}
