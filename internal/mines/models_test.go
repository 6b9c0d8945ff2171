package mines

import "testing"

func TestRevealMarksMineShown(t *testing.T) {
	f := NewField([]int{3})
	isMine := f.Reveal(3)
	if !isMine {
		t.Fatal("expected index 3 to be a mine")
	}
	if f.CellAt(3) != CellMineShown {
		t.Fatalf("expected CellMineShown, got %v", f.CellAt(3))
	}
}

func TestRevealMarksEmptyShown(t *testing.T) {
	f := NewField([]int{3})
	isMine := f.Reveal(4)
	if isMine {
		t.Fatal("expected index 4 to be safe")
	}
	if f.CellAt(4) != CellEmptyShown {
		t.Fatalf("expected CellEmptyShown, got %v", f.CellAt(4))
	}
}

func TestRevealAllMinesShowsEveryMine(t *testing.T) {
	f := NewField([]int{1, 2, 3})
	f.RevealAllMines()
	for _, idx := range []int{1, 2, 3} {
		if f.CellAt(idx) != CellMineShown {
			t.Fatalf("expected mine at %d to be shown", idx)
		}
	}
}

func TestSafeCellsExcludesMines(t *testing.T) {
	f := NewField([]int{0, 1, 2, 3, 4})
	if f.SafeCells() != GridSize-5 {
		t.Fatalf("expected %d safe cells, got %d", GridSize-5, f.SafeCells())
	}
}
