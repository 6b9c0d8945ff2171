package onestroke

import "testing"

func squareGraph() *Graph {
	a := Node{Row: 0, Col: 0}
	b := Node{Row: 0, Col: 1}
	c := Node{Row: 1, Col: 0}
	d := Node{Row: 1, Col: 1}
	return &Graph{
		Rows: 2, Cols: 2,
		Nodes: map[Node]bool{a: true, b: true, c: true, d: true},
		Edges: map[Edge]bool{
			NewEdge(a, b): true,
			NewEdge(a, c): true,
			NewEdge(b, d): true,
			NewEdge(c, d): true,
		},
		StartNode: a,
	}
}

func TestBranchingFactorOnSimpleCycleIsLow(t *testing.T) {
	g := squareGraph()
	bf := branchingFactor(g)
	if bf <= 0 || bf > 1 {
		t.Fatalf("expected branching factor in (0,1], got %v", bf)
	}
}

func TestBridgeRatioOnCycleIsZero(t *testing.T) {
	g := squareGraph()
	if r := bridgeRatio(g); r != 0 {
		t.Fatalf("expected a 4-cycle to have no bridges, got %v", r)
	}
}

func TestOddVertexDistanceZeroWhenEulerCircuit(t *testing.T) {
	g := squareGraph()
	if d := oddVertexDistance(g); d != 0 {
		t.Fatalf("expected 0 odd-vertex distance on an Euler circuit, got %v", d)
	}
}

func TestOddVertexDistanceNonZeroForPath(t *testing.T) {
	a := Node{Row: 0, Col: 0}
	b := Node{Row: 0, Col: 1}
	c := Node{Row: 0, Col: 2}
	g := &Graph{
		Rows: 1, Cols: 3,
		Nodes:     map[Node]bool{a: true, b: true, c: true},
		Edges:     map[Edge]bool{NewEdge(a, b): true, NewEdge(b, c): true},
		StartNode: a,
	}
	if d := oddVertexDistance(g); d <= 0 {
		t.Fatalf("expected a nonzero odd-vertex distance for a simple path, got %v", d)
	}
}

func TestCalculateBaseRewardIsAtLeastOne(t *testing.T) {
	g := squareGraph()
	if r := CalculateBaseReward(g); r < 1 {
		t.Fatalf("expected reward >= 1, got %d", r)
	}
}

func TestTimeDecayFactorIsOneBeforeDelay(t *testing.T) {
	if f := TimeDecayFactor(1, 6.5, 14.42); f != 1 {
		t.Fatalf("expected no decay before delay elapses, got %v", f)
	}
}

func TestTimeDecayFactorShrinksAfterDelay(t *testing.T) {
	f := TimeDecayFactor(60, 6.5, 14.42)
	if f <= 0 || f >= 1 {
		t.Fatalf("expected decay factor in (0,1) well past the delay, got %v", f)
	}
}

func TestApplyTimeDecayFloorsAtZero(t *testing.T) {
	reward := ApplyTimeDecay(10, 5, 5, 100000)
	if reward < 0 {
		t.Fatalf("expected reward to floor at 0, got %d", reward)
	}
}
