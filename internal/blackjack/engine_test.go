package blackjack

import (
	"testing"

	"parlor/internal/fairness"
)

func newTestShoe() *Shoe {
	return NewShoe(fairness.NewSource("server", "client", 1))
}

func TestHandValueHandlesAces(t *testing.T) {
	h := Hand{Cards: []Card{{Rank: "A"}, {Rank: "K"}}}
	if h.Value() != 21 {
		t.Fatalf("expected A+K to be 21, got %d", h.Value())
	}

	h2 := Hand{Cards: []Card{{Rank: "A"}, {Rank: "A"}, {Rank: "9"}}}
	if h2.Value() != 21 {
		t.Fatalf("expected A+A+9 to be 21 (one ace falls to 1), got %d", h2.Value())
	}

	h3 := Hand{Cards: []Card{{Rank: "A"}, {Rank: "A"}, {Rank: "A"}, {Rank: "9"}}}
	if h3.Value() != 12 {
		t.Fatalf("expected A+A+A+9 to be 12, got %d", h3.Value())
	}
}

func TestDealSettlesOnDoubleNatural(t *testing.T) {
	shoe := &Shoe{cards: []Card{
		{Rank: "A"}, {Rank: "A"}, {Rank: "K"}, {Rank: "K"}, // drawn back-to-front
	}}
	state := &State{Bet: 100}
	outcome := Deal(state, shoe)

	if !outcome.Settled || outcome.Outcome != OutcomePush {
		t.Fatalf("expected both-blackjack push, got %+v", outcome)
	}
}

func TestDealSettlesBlackjackWithOneAndHalfPayout(t *testing.T) {
	shoe := &Shoe{cards: []Card{
		{Rank: "5"}, {Rank: "A"}, {Rank: "4"}, {Rank: "K"},
	}}
	state := &State{Bet: 100}
	outcome := Deal(state, shoe)

	if !outcome.Settled || outcome.Outcome != OutcomeBlackjack {
		t.Fatalf("expected blackjack, got %+v", outcome)
	}
	if outcome.Winnings != 150 {
		t.Fatalf("expected 150 winnings (bet*1.5), got %d", outcome.Winnings)
	}
}

func TestOffersSplitOnMatchingPointValue(t *testing.T) {
	state := &State{Player: Hand{Cards: []Card{{Rank: "8"}, {Rank: "8"}}}}
	if !OffersSplit(state) {
		t.Fatal("expected 8/8 to offer a split")
	}

	state2 := &State{Player: Hand{Cards: []Card{{Rank: "K"}, {Rank: "10"}}}}
	if !OffersSplit(state2) {
		t.Fatal("expected K/10 (both point value 10) to offer a split")
	}

	state3 := &State{Player: Hand{Cards: []Card{{Rank: "8"}, {Rank: "9"}}}}
	if OffersSplit(state3) {
		t.Fatal("expected 8/9 not to offer a split")
	}
}

func TestSettleDealerBustWins(t *testing.T) {
	player := Hand{Cards: []Card{{Rank: "10"}, {Rank: "9"}}}
	dealer := Hand{Cards: []Card{{Rank: "10"}, {Rank: "9"}, {Rank: "5"}}}

	outcome, winnings := Settle(100, &player, &dealer)
	if outcome != OutcomeWin || winnings != 100 {
		t.Fatalf("expected win +100, got %v %d", outcome, winnings)
	}
}

func TestSettlePlayerBustLoses(t *testing.T) {
	player := Hand{Cards: []Card{{Rank: "10"}, {Rank: "9"}, {Rank: "5"}}}
	dealer := Hand{Cards: []Card{{Rank: "10"}, {Rank: "9"}}}

	outcome, winnings := Settle(100, &player, &dealer)
	if outcome != OutcomeBust || winnings != -100 {
		t.Fatalf("expected bust -100, got %v %d", outcome, winnings)
	}
}

func TestSettlePush(t *testing.T) {
	player := Hand{Cards: []Card{{Rank: "10"}, {Rank: "9"}}}
	dealer := Hand{Cards: []Card{{Rank: "10"}, {Rank: "9"}}}

	outcome, winnings := Settle(100, &player, &dealer)
	if outcome != OutcomePush || winnings != 0 {
		t.Fatalf("expected push 0, got %v %d", outcome, winnings)
	}
}

func TestSurrenderWinningsRoundsUp(t *testing.T) {
	if got := SurrenderWinnings(101); got != -51 {
		t.Fatalf("expected ceil(101/2)=51 forfeited, got %d", got)
	}
	if got := SurrenderWinnings(100); got != -50 {
		t.Fatalf("expected 50 forfeited, got %d", got)
	}
}

func TestPlayDealerDrawsToSeventeen(t *testing.T) {
	shoe := &Shoe{cards: []Card{{Rank: "7"}}}
	state := &State{Dealer: Hand{Cards: []Card{{Rank: "5"}, {Rank: "5"}}}}

	PlayDealer(state, shoe)

	if state.Dealer.Value() < 17 {
		t.Fatalf("expected dealer to draw to at least 17, got %d", state.Dealer.Value())
	}
}

func TestSplitCreatesSecondHand(t *testing.T) {
	shoe := &Shoe{cards: []Card{{Rank: "3"}, {Rank: "2"}}}
	state := &State{
		Bet:    100,
		Player: Hand{Cards: []Card{{Rank: "8"}, {Rank: "8"}}},
	}

	Split(state, shoe)

	if state.SplitState != 1 {
		t.Fatal("expected SplitState to be 1 after split")
	}
	if state.Split == nil {
		t.Fatal("expected a split hand to exist")
	}
	if len(state.Player.Cards) != 2 || len(state.Split.Cards) != 2 {
		t.Fatalf("expected both hands to have 2 cards, got %d and %d", len(state.Player.Cards), len(state.Split.Cards))
	}
}

func TestShoeReshufflesBelowThreshold(t *testing.T) {
	src := fairness.NewSource("server", "client", 1)
	shoe := NewShoe(src)
	shoe.cards = shoe.cards[:reshuffleAt-1]

	if !shoe.ReshuffleIfNeeded(src) {
		t.Fatal("expected reshuffle below threshold")
	}
	if len(shoe.cards) != shoeCapacity {
		t.Fatalf("expected full shoe after reshuffle, got %d", len(shoe.cards))
	}
}

func TestShoeDoesNotReshuffleAboveThreshold(t *testing.T) {
	src := fairness.NewSource("server", "client", 1)
	shoe := newTestShoe()

	if shoe.ReshuffleIfNeeded(src) {
		t.Fatal("expected no reshuffle on a full shoe")
	}
}
