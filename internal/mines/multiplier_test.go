package mines

import "testing"

func approxEqual(a, b, tolerance float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}

func TestMultiplierZeroRevealedIsOne(t *testing.T) {
	if m := Multiplier(5, 0); m != 1.0 {
		t.Fatalf("expected multiplier 1.0 at 0 reveals, got %v", m)
	}
}

func TestMultiplierMatchesSpecExample(t *testing.T) {
	// bet=100, mines=5, reveal 3 => (C(20,3)/C(25,3))^-1 * 0.97
	// = (2300/1140) * 0.97 ~= 1.957
	m := Multiplier(5, 3)
	if !approxEqual(m, 1.957, 0.01) {
		t.Fatalf("expected multiplier ~1.957, got %v", m)
	}
}

func TestPayoutFlooredToInteger(t *testing.T) {
	// bet=100 at multiplier ~1.957 (195.70...) floors to payout 195
	p := Payout(100, 5, 3)
	if p != 195 {
		t.Fatalf("expected payout 195, got %d", p)
	}
}

func TestMultiplierIncreasesWithRevealedCount(t *testing.T) {
	m1 := Multiplier(5, 1)
	m2 := Multiplier(5, 2)
	m3 := Multiplier(5, 3)
	if !(m1 < m2 && m2 < m3) {
		t.Fatalf("expected strictly increasing multiplier, got %v %v %v", m1, m2, m3)
	}
}

func TestMultiplierIncreasesWithMoreMines(t *testing.T) {
	low := Multiplier(1, 3)
	high := Multiplier(20, 3)
	if !(low < high) {
		t.Fatalf("expected more mines to yield a higher multiplier at the same reveal count, got %v vs %v", low, high)
	}
}
