package onestroke

import (
	"context"
	"fmt"
	"time"

	"parlor/internal/chat"
	"parlor/internal/session"
)

// moveTimeout bounds each WASD input prompt.
const moveTimeout = 2 * time.Minute

// Play drives one one-stroke session's WASD move dialog to completion or
// abandonment, grounded on original_source/plugins/one_stroke/session.py's
// move loop: each inbound message is a string of WASD (+R/Q) characters
// applied left to right, stopping at the first invalid step.
func (s *Service) Play(ctx context.Context, engine *session.Engine[State], send func(context.Context, chat.OutboundEvent) error) {
	state := engine.State

	for {
		ev, err := engine.Ask(ctx, moveTimeout, "draw with WASD, R to restart, Q to quit", send)
		if err != nil {
			s.Abandon(state.UserID)
			return
		}

		if done := s.applyMoves(ctx, engine, ev.Text, send); done {
			return
		}
	}
}

// applyMoves plays one inbound message's characters left to right,
// stopping at the first invalid step (spec.md §4.6) or on completion.
// Returns true once the session is over (completed, quit, or the move
// stream itself errored).
func (s *Service) applyMoves(ctx context.Context, engine *session.Engine[State], text string, send func(context.Context, chat.OutboundEvent) error) bool {
	state := engine.State

	for i := 0; i < len(text); i++ {
		switch c := upper(text[i]); c {
		case 'R':
			if err := s.Restart(ctx, state); err != nil {
				return false
			}
			_ = send(ctx, chat.OutboundEvent{ChannelID: state.ChannelID, Content: "restarted"})
			return false
		case 'Q':
			s.Abandon(state.UserID)
			_ = send(ctx, chat.OutboundEvent{ChannelID: state.ChannelID, Content: "puzzle abandoned, no reward"})
			return true
		case 'W', 'A', 'S', 'D':
			outcome, err := s.Move(ctx, state, c)
			if err != nil {
				return true
			}
			if outcome.Result != MoveSuccess {
				_ = send(ctx, chat.OutboundEvent{
					ChannelID: state.ChannelID,
					Content:   fmt.Sprintf("step %d (%c) failed: %s", i+1, c, describeResult(outcome.Result)),
				})
				return false
			}
			if outcome.Completed {
				_ = send(ctx, chat.OutboundEvent{
					ChannelID: state.ChannelID,
					Content:   fmt.Sprintf("solved! reward: %d shards", outcome.Reward),
				})
				return true
			}
		default:
			_ = send(ctx, chat.OutboundEvent{
				ChannelID: state.ChannelID,
				Content:   fmt.Sprintf("step %d (%c) ignored: not a WASD/R/Q character", i+1, text[i]),
			})
			return false
		}
	}
	return false
}

func describeResult(r MoveResult) string {
	switch r {
	case MoveNoEdge:
		return "no edge there"
	case MoveAlreadyDrawn:
		return "already drawn"
	case MoveOutOfBounds:
		return "off the grid"
	default:
		return string(r)
	}
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}
