package mines

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"parlor/internal/chat"
	"parlor/internal/session"
)

// turnTimeout bounds each reveal/cashout prompt; spec.md §4.5 leaves the
// exact window unspecified beyond "Timeout" settling the round.
const turnTimeout = 60 * time.Second

var cashoutWords = map[string]bool{"收手": true, "s": true, "cashout": true, "cash": true}

// Play drives one mines session's reveal/cashout dialog to settlement,
// grounded on original_source/plugins/mines/session.py's turn loop.
func (s *Service) Play(ctx context.Context, engine *session.Engine[State], send func(context.Context, chat.OutboundEvent) error) {
	state := engine.State

	for {
		prompt := "pick a tile 1-25"
		if state.RevealedCount > 0 {
			prompt = fmt.Sprintf("tile 1-25 to reveal, or 收手/s to cash out (current payout %d)",
				Payout(state.Bet, state.Mines, state.RevealedCount))
		}

		ev, err := engine.Ask(ctx, turnTimeout, prompt, send)
		if err != nil {
			_ = s.Timeout(ctx, state)
			return
		}

		text := strings.ToLower(strings.TrimSpace(ev.Text))
		if cashoutWords[text] {
			if _, err := s.Cashout(ctx, state); err != nil {
				continue // e.g. nothing revealed yet: reprompt
			}
			return
		}

		n, err := strconv.Atoi(text)
		if err != nil || n < 1 || n > GridSize {
			continue
		}

		outcome, err := s.Reveal(ctx, state, n-1)
		if err != nil {
			continue
		}
		if outcome.Settled {
			return
		}
	}
}
