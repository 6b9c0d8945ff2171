package onestroke

import "strings"

// DifficultyConfig bounds graph generation for one grid scale, grounded on
// graph_generator.py's DIFFICULTY_CONFIGS table.
type DifficultyConfig struct {
	Key      string
	Label    string
	Rows     int
	Cols     int
	MinEdges int
	MaxEdges int
}

var difficulties = map[string]DifficultyConfig{
	"easy":   {Key: "easy", Label: "Easy", Rows: 3, Cols: 3, MinEdges: 8, MaxEdges: 11},
	"normal": {Key: "normal", Label: "Normal", Rows: 4, Cols: 4, MinEdges: 18, MaxEdges: 23},
	"hard":   {Key: "hard", Label: "Hard", Rows: 5, Cols: 5, MinEdges: 28, MaxEdges: 36},
}

// DifficultyOrder lists difficulties from easiest to hardest, for menu
// rendering and leaderboard iteration.
var DifficultyOrder = []string{"easy", "normal", "hard"}

// ResolveDifficulty looks up a difficulty by key or label, case-insensitive.
func ResolveDifficulty(name string) (DifficultyConfig, bool) {
	cfg, ok := difficulties[strings.ToLower(strings.TrimSpace(name))]
	return cfg, ok
}

// decayParams is (delay, tau) for calculate_time_decay_factor, keyed by the
// grid's larger dimension, per difficulty.py's per-scale table.
type decayParams struct {
	Delay float64
	Tau   float64
}

var decayByScale = map[int]decayParams{
	3: {Delay: 3, Tau: 7.21},
	4: {Delay: 6.5, Tau: 14.42},
	5: {Delay: 10.5, Tau: 28.84},
}

var defaultDecay = decayParams{Delay: 6.5, Tau: 14.42}

func decayFor(rows, cols int) decayParams {
	scale := rows
	if cols > scale {
		scale = cols
	}
	if d, ok := decayByScale[scale]; ok {
		return d
	}
	return defaultDecay
}
