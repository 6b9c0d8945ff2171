package blackjack

import (
	"context"
	"fmt"
	"strings"
	"time"

	"parlor/internal/chat"
	"parlor/internal/session"
)

// Turn timeouts: the split offer and every per-hand h/s/d/q prompt. Not
// named by spec.md (which only says "60 s" for the split offer); the
// player-turn window follows the same order of magnitude the teacher's
// own round timers use for a single decision.
const (
	splitOfferTimeout = 60 * time.Second
	playerTurnTimeout = 30 * time.Second
)

type sendFunc = func(context.Context, chat.OutboundEvent) error

// Play drives one blackjack session's entire turn-based dialog from the
// split offer through dealer settlement, suspending only inside
// Engine.Wait/Ask (spec.md §4.3). It is the state-machine orchestrator
// the registry/engine primitives in internal/session were built to carry;
// the dialog shape (ask a prompt, act on the reply, loop) follows
// original_source/plugins/blackjack/session.py's handler chain.
func (s *Service) Play(ctx context.Context, engine *session.Engine[State], send sendFunc) {
	state := engine.State
	shoe := s.ShoeFor(state.ChannelID)

	if OffersSplit(state) {
		s.offerSplit(ctx, engine, shoe, send)
	}

	handCount := 1
	if state.SplitState == 1 {
		handCount = 2
	}

	busted := make([]bool, handCount)
	for h := 0; h < handCount; h++ {
		outcome, settled := s.playHand(ctx, engine, shoe, send, h, handCount == 2)
		if settled {
			// Timeout or surrender already settled (and ended) the whole
			// session; nothing further to play.
			return
		}
		busted[h] = outcome
	}

	anyLive := false
	for _, b := range busted {
		if !b {
			anyLive = true
		}
	}
	if anyLive {
		shoe.Lock()
		PlayDealer(state, shoe)
		shoe.Unlock()
	}

	for h := 0; h < handCount; h++ {
		bet := betFor(state, h)
		if busted[h] {
			_ = s.Settle(ctx, state, OutcomeBust, -bet, handCount == 2)
			continue
		}
		hand := handFor(state, h)
		outcome, winnings := Settle(bet, hand, &state.Dealer)
		_ = s.Settle(ctx, state, outcome, winnings, handCount == 2)
	}
}

func (s *Service) offerSplit(ctx context.Context, engine *session.Engine[State], shoe *Shoe, send sendFunc) {
	state := engine.State
	ev, err := engine.Ask(ctx, splitOfferTimeout,
		fmt.Sprintf("your cards match in value — split for another %d-shard bet? (y/n)", state.Bet),
		send)
	if err != nil || !isYes(ev.Text) {
		return
	}

	u, err := s.ledger.GetUser(ctx, state.UserID)
	if err != nil || u.Balance < state.Bet {
		return
	}
	if err := s.ledger.Cost(ctx, state.UserID, state.Bet, "blackjack_split_bet"); err != nil {
		return
	}

	shoe.Lock()
	Split(state, shoe)
	shoe.Unlock()
}

// playHand drives one hand's h/s/d/q loop. It returns (busted, settled):
// settled is true when the hand's outcome already ended the whole session
// (timeout or surrender), in which case the caller must not proceed to the
// dealer turn or a second Settle call.
func (s *Service) playHand(ctx context.Context, engine *session.Engine[State], shoe *Shoe, send sendFunc, handIdx int, isSplit bool) (busted bool, settled bool) {
	state := engine.State
	firstPlay := true

	for {
		hand := handFor(state, handIdx)
		if hand.Value() >= 21 {
			return hand.IsBust(), false
		}

		prompt := fmt.Sprintf("hand %d: %s (%d) — (h)it, (s)tand%s, or (q) surrender?",
			handIdx+1, handString(hand), hand.Value(), doubleHint(firstPlay, isSplit))
		ev, err := engine.Ask(ctx, playerTurnTimeout, prompt, send)
		if err != nil {
			// Timeout forfeits the bet and ends the session outright
			// (spec.md §4.4 step 7).
			_ = s.Settle(ctx, state, OutcomeTimeout, -betFor(state, handIdx), isSplit)
			return true, true
		}

		switch normalizeAction(ev.Text) {
		case "h":
			r := Hit(state, handIdx, shoe)
			firstPlay = false
			if r.Busted {
				return true, false
			}
			if handFor(state, handIdx).Value() == 21 {
				return false, false
			}
		case "s":
			return false, false
		case "d":
			if !firstPlay || isSplit {
				continue // double only valid on the first play of a non-split hand
			}
			bet := betFor(state, handIdx)
			u, err := s.ledger.GetUser(ctx, state.UserID)
			if err != nil || u.Balance < bet {
				continue
			}
			if err := s.ledger.Cost(ctx, state.UserID, bet, "blackjack_double"); err != nil {
				continue
			}
			state.Doubled[handIdx] = true
			r := Double(state, handIdx, shoe)
			if r.Busted {
				return true, false
			}
			return false, false
		case "q":
			_ = s.Settle(ctx, state, OutcomeSurrender, SurrenderWinnings(betFor(state, handIdx)), isSplit)
			return false, true
		default:
			continue // invalid input, reprompt
		}
	}
}

func betFor(state *State, handIdx int) int64 {
	bet := state.Bet
	if handIdx == 1 {
		bet = state.SplitBet
	}
	if state.Doubled[handIdx] {
		bet *= 2
	}
	return bet
}

func doubleHint(firstPlay, isSplit bool) string {
	if firstPlay && !isSplit {
		return ", (d)ouble"
	}
	return ""
}

func normalizeAction(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return ""
	}
	return string(t[0])
}

func isYes(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == "y" || t == "yes" || t == "是"
}

func handString(h *Hand) string {
	parts := make([]string, len(h.Cards))
	for i, c := range h.Cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
