// Package onestroke implements C7: weighted self-avoiding-walk graph
// generation, the WASD move engine, time-decayed reward scoring, and the
// per-difficulty leaderboard, grounded on
// original_source/plugins/one_stroke/{graph_generator,difficulty,session}.py.
package onestroke

import (
	"fmt"

	"parlor/internal/fairness"
)

// Node is a grid coordinate.
type Node struct {
	Row, Col int
}

// Edge is a normalized, comparable pair of adjacent nodes (the Go
// equivalent of the original's frozenset((a, b))).
type Edge struct {
	A, B Node
}

// NewEdge normalizes (a, b) into a consistent key regardless of argument
// order, so edge-set membership checks are order-independent.
func NewEdge(a, b Node) Edge {
	if a.Row > b.Row || (a.Row == b.Row && a.Col > b.Col) {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

// Graph is spec.md §3's One-Stroke Graph.
type Graph struct {
	Rows, Cols int
	Nodes      map[Node]bool
	Edges      map[Edge]bool
	StartNode  Node
}

func (g *Graph) InBounds(n Node) bool {
	return n.Row >= 0 && n.Row < g.Rows && n.Col >= 0 && n.Col < g.Cols
}

func (g *Graph) HasEdge(a, b Node) bool {
	return g.Edges[NewEdge(a, b)]
}

func (g *Graph) TotalEdges() int {
	return len(g.Edges)
}

// Adjacency builds a node -> neighbor-set map from the edge set.
func (g *Graph) Adjacency() map[Node]map[Node]bool {
	adj := make(map[Node]map[Node]bool, len(g.Nodes))
	for n := range g.Nodes {
		adj[n] = make(map[Node]bool)
	}
	for e := range g.Edges {
		adj[e.A][e.B] = true
		adj[e.B][e.A] = true
	}
	return adj
}

var directionDeltas = map[byte]Node{
	'W': {Row: -1, Col: 0},
	'A': {Row: 0, Col: -1},
	'S': {Row: 1, Col: 0},
	'D': {Row: 0, Col: 1},
}

func neighbors(n Node, rows, cols int) []Node {
	out := make([]Node, 0, 4)
	for _, d := range directionDeltas {
		cand := Node{Row: n.Row + d.Row, Col: n.Col + d.Col}
		if cand.Row >= 0 && cand.Row < rows && cand.Col >= 0 && cand.Col < cols {
			out = append(out, cand)
		}
	}
	return out
}

func frontierScore(n Node, edges map[Edge]bool, rows, cols int) int {
	score := 0
	for _, nxt := range neighbors(n, rows, cols) {
		if !edges[NewEdge(n, nxt)] {
			score++
		}
	}
	return score
}

const maxGenerationRetries = 100

// Generate builds a graph via a weighted self-avoiding walk: from a
// random start, repeatedly pick an unused incident edge, weighting each
// candidate by its own remaining-frontier edge count (minimum 1), until
// targetEdges is reached or no legal moves remain. Retries the whole walk
// up to 100 times if the result falls short of cfg.MinEdges.
func Generate(cfg DifficultyConfig, src *fairness.Source) (*Graph, error) {
	for attempt := 0; attempt < maxGenerationRetries; attempt++ {
		start := Node{Row: src.Intn(cfg.Rows), Col: src.Intn(cfg.Cols)}
		current := start
		nodes := map[Node]bool{start: true}
		edges := make(map[Edge]bool)
		targetEdges := cfg.MinEdges + src.Intn(cfg.MaxEdges-cfg.MinEdges+1)

		for i := 0; i < targetEdges; i++ {
			candidates := make([]Node, 0, 4)
			for _, nxt := range neighbors(current, cfg.Rows, cfg.Cols) {
				if !edges[NewEdge(current, nxt)] {
					candidates = append(candidates, nxt)
				}
			}
			if len(candidates) == 0 {
				break
			}

			weights := make([]int, len(candidates))
			for i, nxt := range candidates {
				w := frontierScore(nxt, edges, cfg.Rows, cfg.Cols)
				if w < 1 {
					w = 1
				}
				weights[i] = w
			}

			nxt := candidates[fairness.WeightedPick(src, weights)]
			edges[NewEdge(current, nxt)] = true
			nodes[nxt] = true
			current = nxt
		}

		if len(edges) >= cfg.MinEdges {
			return &Graph{Rows: cfg.Rows, Cols: cfg.Cols, Nodes: nodes, Edges: edges, StartNode: start}, nil
		}
	}
	return nil, fmt.Errorf("could not generate a satisfying one-stroke graph after %d attempts", maxGenerationRetries)
}
