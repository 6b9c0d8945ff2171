package onestroke

import "math"

// branchingFactor walks an Euler trail through the graph with a
// Hierholzer-style stack algorithm and returns 1 / average number of
// choices available at each step along the trail, grounded on
// difficulty.py's compute_branching_factor.
func branchingFactor(g *Graph) float64 {
	if len(g.Edges) == 0 {
		return 0
	}

	remaining := make(map[Edge]bool, len(g.Edges))
	for e := range g.Edges {
		remaining[e] = true
	}
	adj := make(map[Node][]Node, len(g.Nodes))
	for e := range g.Edges {
		adj[e.A] = append(adj[e.A], e.B)
		adj[e.B] = append(adj[e.B], e.A)
	}

	start := g.StartNode
	stack := []Node{start}
	choiceCounts := make([]int, 0, len(g.Edges))

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		available := 0
		var next Node
		found := false
		for _, nbr := range adj[cur] {
			if remaining[NewEdge(cur, nbr)] {
				available++
				if !found {
					next = nbr
					found = true
				}
			}
		}
		if !found {
			stack = stack[:len(stack)-1]
			continue
		}
		choiceCounts = append(choiceCounts, available)
		remaining[NewEdge(cur, next)] = false
		stack = append(stack, next)
	}

	if len(choiceCounts) == 0 {
		return 0
	}
	sum := 0
	for _, c := range choiceCounts {
		sum += c
	}
	avg := float64(sum) / float64(len(choiceCounts))
	if avg == 0 {
		return 0
	}
	return 1 / avg
}

// bridgeRatio is the fraction of edges that are bridges, found via a Tarjan
// DFS low-link pass, grounded on difficulty.py's compute_bridge_ratio.
func bridgeRatio(g *Graph) float64 {
	if len(g.Edges) == 0 {
		return 0
	}
	adj := g.Adjacency()

	tin := make(map[Node]int)
	low := make(map[Node]int)
	timer := 0
	bridges := 0

	var dfs func(u Node, parent Node, hasParent bool)
	dfs = func(u Node, parent Node, hasParent bool) {
		timer++
		tin[u] = timer
		low[u] = timer
		usedParentEdge := false
		for v := range adj[u] {
			if hasParent && v == parent && !usedParentEdge {
				usedParentEdge = true
				continue
			}
			if _, seen := tin[v]; seen {
				if low[v] < low[u] {
					low[u] = low[v]
				}
				continue
			}
			dfs(v, u, true)
			if low[v] < low[u] {
				low[u] = low[v]
			}
			if low[v] > tin[u] {
				bridges++
			}
		}
	}
	dfs(g.StartNode, Node{}, false)

	return float64(bridges) / float64(len(g.Edges))
}

// oddVertexDistance is the Manhattan distance between the graph's two
// odd-degree vertices, normalized by (rows+cols-2), or 0 when the graph
// doesn't have exactly two odd-degree vertices (i.e. it already has an
// Euler circuit), per difficulty.py's compute_odd_vertex_distance.
func oddVertexDistance(g *Graph) float64 {
	degree := make(map[Node]int)
	for e := range g.Edges {
		degree[e.A]++
		degree[e.B]++
	}
	var odd []Node
	for n, d := range degree {
		if d%2 == 1 {
			odd = append(odd, n)
		}
	}
	if len(odd) != 2 {
		return 0
	}
	denom := g.Rows + g.Cols - 2
	if denom <= 0 {
		return 0
	}
	dist := abs(odd[0].Row-odd[1].Row) + abs(odd[0].Col-odd[1].Col)
	return float64(dist) / float64(denom)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// visualDensity blends max and average vertex degree, per difficulty.py's
// compute_visual_density.
func visualDensity(g *Graph) float64 {
	degree := make(map[Node]int)
	for e := range g.Edges {
		degree[e.A]++
		degree[e.B]++
	}
	if len(degree) == 0 {
		return 0
	}
	max, sum := 0, 0
	for _, d := range degree {
		sum += d
		if d > max {
			max = d
		}
	}
	avg := float64(sum) / float64(len(degree))
	return float64(max)/4 + avg/4
}

// CalculateBaseReward scores a freshly generated graph, per difficulty.py's
// calculate_reward.
func CalculateBaseReward(g *Graph) int {
	edges := float64(g.TotalEdges())
	branch := branchingFactor(g)
	bridge := bridgeRatio(g)
	oddDist := oddVertexDistance(g)
	density := visualDensity(g)

	reward := edges*edges/300 + branch*1.5 + bridge*6 + oddDist*4 + density
	r := int(reward)
	if r < 1 {
		r = 1
	}
	return r
}

// TimeDecayFactor is exp(-max(0, elapsed-delay)/tau), per difficulty.py's
// calculate_time_decay_factor.
func TimeDecayFactor(elapsedSeconds, delay, tau float64) float64 {
	over := elapsedSeconds - delay
	if over < 0 {
		over = 0
	}
	return math.Exp(-over / tau)
}

// ApplyTimeDecay resolves (delay, tau) from the grid scale and applies the
// decay factor to baseReward, flooring at 0, per difficulty.py's
// apply_time_decay.
func ApplyTimeDecay(baseReward int, rows, cols int, elapsedSeconds float64) int {
	params := decayFor(rows, cols)
	factor := TimeDecayFactor(elapsedSeconds, params.Delay, params.Tau)
	reward := int(math.Round(float64(baseReward) * factor))
	if reward < 0 {
		reward = 0
	}
	return reward
}
