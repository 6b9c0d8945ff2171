// Package mines implements C6: the 5x5 field generation, reveal state
// machine, binomial-coefficient payout multiplier, and cashout/mine-hit
// settlement, grounded on original_source/plugins/mines/{models,session}.py.
package mines

const (
	GridSize    = 25 // 5x5
	MinMines    = 1
	MaxMines    = 24
	houseEdge   = 0.03
)

// CellState is one grid cell's visibility/content, mirroring
// models.py's BlockType.
type CellState int

const (
	CellEmpty CellState = iota
	CellMine
	CellEmptyShown
	CellMineShown
)

// Field is the 5x5 grid (spec.md §3 Mines Field).
type Field struct {
	Mines []bool // index i is true iff cell i is a mine
	Shown []bool // index i is true iff cell i has been revealed
}

// NewField marks the given mine positions on a fresh 25-cell grid.
func NewField(minePositions []int) *Field {
	f := &Field{Mines: make([]bool, GridSize), Shown: make([]bool, GridSize)}
	for _, p := range minePositions {
		f.Mines[p] = true
	}
	return f
}

// Reveal marks index shown and reports whether it was a mine.
func (f *Field) Reveal(index int) bool {
	f.Shown[index] = true
	return f.Mines[index]
}

// RevealAllMines marks every mine cell shown, for the end-of-game image
// (spec.md §4.5's "reveal all other mines for the final image").
func (f *Field) RevealAllMines() {
	for i, isMine := range f.Mines {
		if isMine {
			f.Shown[i] = true
		}
	}
}

// CellAt reports the display state of a cell for rendering.
func (f *Field) CellAt(index int) CellState {
	switch {
	case f.Mines[index] && f.Shown[index]:
		return CellMineShown
	case f.Mines[index]:
		return CellMine
	case f.Shown[index]:
		return CellEmptyShown
	default:
		return CellEmpty
	}
}

// MineCount returns how many mines are on the field.
func (f *Field) MineCount() int {
	count := 0
	for _, isMine := range f.Mines {
		if isMine {
			count++
		}
	}
	return count
}

// SafeCells returns how many non-mine cells exist.
func (f *Field) SafeCells() int {
	return GridSize - f.MineCount()
}

// Result is C6's persisted row (spec.md §3 Mines Result).
type Result string

const (
	ResultWin     Result = "win"
	ResultLose    Result = "lose"
	ResultCashout Result = "cashout"
	ResultTimeout Result = "timeout"
)

// GameResult is the persisted mines.games row.
type GameResult struct {
	ID            string
	UserID        string
	BetAmount     int64
	Mines         int
	RevealedCount int
	Result        Result
	Winnings      int64
	Timestamp     int64
}

// UserStats is the supplemented per-user aggregate (SPEC_FULL.md §5),
// grounded on original_source/plugins/mines/stats_service.py.
type UserStats struct {
	UserID       string
	TotalGames   int
	Wins         int
	Losses       int
	WinRate      float64
	TotalWagered int64
	NetProfit    int64
	BiggestWin   int64
	BiggestLoss  int64
}
