// Package chat defines the boundary between the core and the external
// chat-transport adapter: inbound events the core consumes, outbound events
// it produces. Command parsing, help text, rendering, and the concrete
// transport implementation all live outside this module.
package chat

import (
	"context"
	"time"
)

// MemberEventKind enumerates the membership events a transport can report
// alongside a regular message.
type MemberEventKind string

const (
	MemberJoined      MemberEventKind = "joined"
	MemberLeft        MemberEventKind = "left"
	MemberGuildRemove MemberEventKind = "guild_removed"
)

// MemberEvent carries an optional join/leave/guild-remove notification.
type MemberEvent struct {
	Kind      MemberEventKind
	UserID    string
	AvatarURL string
}

// InboundEvent is the opaque message the transport delivers to the core.
// Only text is parsed, and only at command boundaries.
type InboundEvent struct {
	Platform  string
	ChannelID string
	UserID    string
	MessageID string
	Timestamp time.Time
	Text      string
	ReplyTo   string
	AvatarURL string
	Member    *MemberEvent
}

// PassiveRef is the (message_id, seq) correlation tag a transport may
// require on outbound replies (spec.md §4.2 / GLOSSARY).
type PassiveRef struct {
	MessageID string
	Seq       int
}

// OutboundEvent is a reply the core wants delivered to a channel.
type OutboundEvent struct {
	ChannelID  string
	Content    string
	PassiveRef *PassiveRef
}

// Transport is the external collaborator that actually moves bytes. The
// core never assumes delivery succeeds; Send errors are logged and
// swallowed by callers per spec.md §4.2 ("this is reported but not fatal").
type Transport interface {
	Send(ctx context.Context, ev OutboundEvent) error
}
