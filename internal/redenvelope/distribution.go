package redenvelope

import (
	"sort"

	"parlor/internal/core"
	"parlor/internal/fairness"
)

// generateRandomDistribution implements the "random cut" algorithm:
// reserve 1 coin per recipient, cut the remaining pool at count-1 random
// points on [0,1), convert segment proportions to floored integer
// amounts, scatter the rounding remainder randomly, add the reserved
// coin back, then shuffle so claim order doesn't correlate with amount.
func generateRandomDistribution(src *fairness.Source, totalAmount int64, count int) ([]int64, error) {
	if count <= 0 || totalAmount < int64(count) {
		return nil, core.New(core.KindInvalidArgument, "envelope amount must cover at least 1 coin per recipient")
	}
	if count == 1 {
		return []int64{totalAmount}, nil
	}

	reserved := int64(count)
	pool := totalAmount - reserved
	if pool <= 0 {
		amounts := make([]int64, count)
		for i := range amounts {
			amounts[i] = 1
		}
		return amounts, nil
	}

	cuts := make([]float64, count-1)
	for i := range cuts {
		cuts[i] = src.Float64()
	}
	sort.Float64s(cuts)

	proportions := make([]float64, count)
	prev := 0.0
	for i, cut := range cuts {
		proportions[i] = cut - prev
		prev = cut
	}
	proportions[count-1] = 1.0 - prev

	raw := make([]int64, count)
	sum := int64(0)
	for i, p := range proportions {
		amt := int64(p * float64(pool))
		if amt < 0 {
			amt = 0
		}
		raw[i] = amt
		sum += amt
	}

	remainder := pool - sum
	for i := int64(0); i < remainder; i++ {
		idx := src.Intn(count)
		raw[idx]++
	}

	final := make([]int64, count)
	for i, amt := range raw {
		final[i] = amt + 1
	}
	fairness.Shuffle(src, final)
	return final, nil
}
