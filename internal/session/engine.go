package session

import (
	"context"
	"time"

	"parlor/internal/chat"
)

// Engine is C4: one live game session's turn-taking primitive. Suspension
// only happens inside wait/ask (spec.md §4.3); the rest of a handler runs
// without yielding.
type Engine[S any] struct {
	UserID    string
	ChannelID string
	State     *S
	CreatedAt time.Time

	inbox chan chat.InboundEvent
}

// ErrTimeout is returned by Wait/Ask when no message arrives before the
// deadline.
var ErrTimeout = timeoutError{}

type timeoutError struct{}

func (timeoutError) Error() string { return "timeout waiting for next message" }

// Wait blocks for the next inbound event routed to this session, or
// until timeout/ctx cancellation elapses first.
func (e *Engine[S]) Wait(ctx context.Context, timeout time.Duration) (chat.InboundEvent, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-e.inbox:
		return ev, nil
	case <-timer.C:
		return chat.InboundEvent{}, ErrTimeout
	case <-ctx.Done():
		return chat.InboundEvent{}, ctx.Err()
	}
}

// Ask sends a transport reply carrying prompt, then waits exactly like
// Wait. send is the caller's outbound delivery function (typically
// chat.Transport.Send bound to this session's channel), kept as a
// parameter so the engine itself never depends on a concrete transport.
func (e *Engine[S]) Ask(ctx context.Context, timeout time.Duration, prompt string, send func(context.Context, chat.OutboundEvent) error) (chat.InboundEvent, error) {
	if send != nil {
		if err := send(ctx, chat.OutboundEvent{ChannelID: e.ChannelID, Content: prompt}); err != nil {
			// Delivery failure is ignored; the wait proceeds
			// regardless.
			_ = err
		}
	}
	return e.Wait(ctx, timeout)
}
