package onestroke

import (
	"testing"

	"parlor/internal/fairness"
)

func newTestSource(nonce int) *fairness.Source {
	return fairness.NewSource("server", "client", nonce)
}

func TestNewEdgeNormalizesOrder(t *testing.T) {
	a := Node{Row: 0, Col: 0}
	b := Node{Row: 1, Col: 0}
	if NewEdge(a, b) != NewEdge(b, a) {
		t.Fatal("expected NewEdge to be order-independent")
	}
}

func TestGenerateStaysWithinEdgeBounds(t *testing.T) {
	cfg := difficulties["easy"]
	for nonce := 1; nonce <= 20; nonce++ {
		g, err := Generate(cfg, newTestSource(nonce))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if g.TotalEdges() < cfg.MinEdges {
			t.Fatalf("expected at least %d edges, got %d", cfg.MinEdges, g.TotalEdges())
		}
		if g.TotalEdges() > cfg.MaxEdges {
			t.Fatalf("expected at most %d edges, got %d", cfg.MaxEdges, g.TotalEdges())
		}
	}
}

func TestGenerateProducesNodesWithinGrid(t *testing.T) {
	cfg := difficulties["normal"]
	g, err := Generate(cfg, newTestSource(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for n := range g.Nodes {
		if !g.InBounds(n) {
			t.Fatalf("node %+v out of bounds for %dx%d grid", n, cfg.Rows, cfg.Cols)
		}
	}
}

func TestHasEdgeReflectsGeneratedEdges(t *testing.T) {
	cfg := difficulties["easy"]
	g, err := Generate(cfg, newTestSource(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for e := range g.Edges {
		if !g.HasEdge(e.A, e.B) {
			t.Fatalf("expected HasEdge true for generated edge %+v", e)
		}
	}
	if g.HasEdge(Node{Row: 99, Col: 99}, Node{Row: 98, Col: 99}) {
		t.Fatal("expected HasEdge false for nonexistent edge")
	}
}

func TestAdjacencyIsSymmetric(t *testing.T) {
	cfg := difficulties["easy"]
	g, err := Generate(cfg, newTestSource(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	adj := g.Adjacency()
	for e := range g.Edges {
		if !adj[e.A][e.B] || !adj[e.B][e.A] {
			t.Fatalf("expected adjacency to be symmetric for edge %+v", e)
		}
	}
}
