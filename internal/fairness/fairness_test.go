package fairness

import "testing"

func TestSourceIsDeterministicForSameSeeds(t *testing.T) {
	a := NewSource("server", "client", 1)
	b := NewSource("server", "client", 1)

	for i := 0; i < 10; i++ {
		av, bv := a.Float64(), b.Float64()
		if av != bv {
			t.Fatalf("draw %d diverged: %v vs %v", i, av, bv)
		}
	}
}

func TestSourceDiffersAcrossNonce(t *testing.T) {
	a := NewSource("server", "client", 1)
	b := NewSource("server", "client", 2)

	if a.Float64() == b.Float64() {
		t.Fatal("expected different nonces to produce different streams")
	}
}

func TestFloat64StaysInRange(t *testing.T) {
	s := NewSource("server", "client", 1)
	for i := 0; i < 1000; i++ {
		v := s.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("draw %d out of [0,1): %v", i, v)
		}
	}
}

func TestIntnStaysInRange(t *testing.T) {
	s := NewSource("server", "client", 1)
	for i := 0; i < 1000; i++ {
		v := s.Intn(25)
		if v < 0 || v >= 25 {
			t.Fatalf("draw %d out of [0,25): %v", i, v)
		}
	}
}

func TestShufflePreservesElements(t *testing.T) {
	s := NewSource("server", "client", 1)
	deck := []int{1, 2, 3, 4, 5, 6, 7, 8}
	orig := append([]int(nil), deck...)

	Shuffle(s, deck)

	sum := 0
	for _, v := range deck {
		sum += v
	}
	origSum := 0
	for _, v := range orig {
		origSum += v
	}
	if sum != origSum {
		t.Fatalf("shuffle changed element set: %v vs %v", deck, orig)
	}
}

func TestWeightedPickRespectsZeroWeights(t *testing.T) {
	s := NewSource("server", "client", 1)
	weights := []int{0, 0, 5}
	for i := 0; i < 100; i++ {
		idx := WeightedPick(s, weights)
		if idx != 2 {
			t.Fatalf("expected only index 2 to ever be picked, got %d", idx)
		}
	}
}
