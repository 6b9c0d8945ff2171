package blackjack

// DealOutcome reports what the opening deal decided before any player
// input: either the hand is already settled (a natural), or play continues
// and the caller should offer a split if the cards allow it.
type DealOutcome struct {
	Settled  bool
	Outcome  Outcome
	Winnings int64
}

// Deal draws the opening two cards to player and dealer from shoe. The
// caller must hold shoe.Lock() across ReshuffleIfNeeded + Deal so the
// reshuffle decision and the opening deal are one critical section
// (spec.md §5).
func Deal(state *State, shoe *Shoe) DealOutcome {
	state.Player = Hand{}
	state.Dealer = Hand{}
	state.Player.Add(shoe.Draw())
	state.Dealer.Add(shoe.Draw())
	state.Player.Add(shoe.Draw())
	state.Dealer.Add(shoe.Draw())

	if state.Player.Value() != 21 {
		return DealOutcome{}
	}

	if state.Dealer.Value() == 21 {
		return DealOutcome{Settled: true, Outcome: OutcomePush, Winnings: 0}
	}
	return DealOutcome{
		Settled:  true,
		Outcome:  OutcomeBlackjack,
		Winnings: (state.Bet * 3) / 2,
	}
}

// OffersSplit reports whether the player's opening two cards share a
// point value, the precondition to ask "split?" (spec.md §4.4 step 2).
func OffersSplit(state *State) bool {
	return state.Player.SamePointValue()
}

// Split activates the second hand: the caller has already debited the
// matching extra bet. One card is dealt to each hand from the already
//-split pair plus a fresh draw, per spec.md step 2.
func Split(state *State, shoe *Shoe) {
	state.SplitState = 1
	state.SplitBet = state.Bet

	second := Hand{Cards: []Card{state.Player.Cards[1]}}
	state.Player = Hand{Cards: []Card{state.Player.Cards[0]}}

	state.Player.Add(shoe.Draw())
	second.Add(shoe.Draw())
	state.Split = &second
}

// HandResult is the outcome of a finished single hand's player turn,
// before dealer settlement: either it already busted (settled) or it is
// ready to face the dealer.
type HandResult struct {
	Busted bool
}

// Hit draws one card into the given hand (0 = main/only hand, 1 = split
// hand) and reports whether it busted.
func Hit(state *State, handIdx int, shoe *Shoe) HandResult {
	h := handFor(state, handIdx)
	h.Add(shoe.Draw())
	return HandResult{Busted: h.IsBust()}
}

// Double debits (by the caller) an extra bet, draws exactly one card into
// the hand, then the hand stands regardless of its value.
func Double(state *State, handIdx int, shoe *Shoe) HandResult {
	h := handFor(state, handIdx)
	h.Add(shoe.Draw())
	return HandResult{Busted: h.IsBust()}
}

func handFor(state *State, handIdx int) *Hand {
	if handIdx == 1 && state.Split != nil {
		return state.Split
	}
	return &state.Player
}

// PlayDealer draws until the dealer's total reaches at least 17, Aces
// following the same "11 until bust then 1" rule as the player.
func PlayDealer(state *State, shoe *Shoe) {
	for state.Dealer.Value() < 17 {
		state.Dealer.Add(shoe.Draw())
	}
}

// Settle compares one player hand's value to the dealer's and returns
// the outcome and signed winnings against bet, per spec.md §4.4 step 5.
// Call PlayDealer first unless the hand already busted.
func Settle(bet int64, player, dealer *Hand) (Outcome, int64) {
	if player.IsBust() {
		return OutcomeBust, -bet
	}
	if dealer.IsBust() {
		return OutcomeWin, bet
	}
	pv, dv := player.Value(), dealer.Value()
	switch {
	case pv > dv:
		return OutcomeWin, bet
	case pv < dv:
		return OutcomeBust, -bet
	default:
		return OutcomePush, 0
	}
}

// SurrenderWinnings is the fixed settlement for a "q" surrender: half the
// bet forfeited, rounded up (spec.md §4.4 step 3: -⌈bet/2⌉).
func SurrenderWinnings(bet int64) int64 {
	return -((bet + 1) / 2)
}
