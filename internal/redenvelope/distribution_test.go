package redenvelope

import (
	"testing"

	"parlor/internal/fairness"
)

func newTestSource(nonce int) *fairness.Source {
	return fairness.NewSource("server", "client", nonce)
}

func TestGenerateRandomDistributionSumsToTotal(t *testing.T) {
	amounts, err := generateRandomDistribution(newTestSource(1), 100, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(amounts) != 7 {
		t.Fatalf("expected 7 amounts, got %d", len(amounts))
	}
	var sum int64
	for _, a := range amounts {
		if a < 1 {
			t.Fatalf("expected every recipient to get at least 1 coin, got %d", a)
		}
		sum += a
	}
	if sum != 100 {
		t.Fatalf("expected amounts to sum to 100, got %d", sum)
	}
}

func TestGenerateRandomDistributionSingleRecipientGetsAll(t *testing.T) {
	amounts, err := generateRandomDistribution(newTestSource(1), 42, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(amounts) != 1 || amounts[0] != 42 {
		t.Fatalf("expected single recipient to get all 42, got %v", amounts)
	}
}

func TestGenerateRandomDistributionMinimumPoolGivesEveryoneOne(t *testing.T) {
	amounts, err := generateRandomDistribution(newTestSource(1), 5, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, a := range amounts {
		if a != 1 {
			t.Fatalf("expected exactly 1 coin per recipient when pool == count, got %v", amounts)
		}
	}
}

func TestGenerateRandomDistributionRejectsUnderfundedEnvelope(t *testing.T) {
	if _, err := generateRandomDistribution(newTestSource(1), 3, 5); err == nil {
		t.Fatal("expected an error when total is less than recipient count")
	}
}

func TestGenerateRandomDistributionVariesAcrossDraws(t *testing.T) {
	a, err := generateRandomDistribution(newTestSource(1), 1000, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := generateRandomDistribution(newTestSource(2), 1000, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("expected different nonces to produce different distributions")
	}
}
