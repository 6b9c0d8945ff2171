package chat

import (
	"context"
	"log"
)

// LogTransport is the default Transport when no real chat adapter is
// wired: it logs every outbound event instead of delivering it anywhere.
// The real platform adapter (Discord/QQ/whatever) is out of scope per
// spec.md's Non-goals; this stands in so cmd/server has something to run
// against out of the box.
type LogTransport struct{}

func (LogTransport) Send(_ context.Context, ev OutboundEvent) error {
	if ev.PassiveRef != nil {
		log.Printf("[CHAT] -> %s (passive ref %s#%d): %s", ev.ChannelID, ev.PassiveRef.MessageID, ev.PassiveRef.Seq, ev.Content)
	} else {
		log.Printf("[CHAT] -> %s: %s", ev.ChannelID, ev.Content)
	}
	return nil
}
