// Package commands implements the chat-command dispatch table spec.md §6
// describes and SPEC_FULL.md §7 realizes: a map from command name to
// handler, fed by a normalized, full-width-tolerant parse of inbound
// text, generalizing spec.md §9's "dynamic command dispatch ... maps to a
// table of command handlers."
package commands

import (
	"context"
	"log"
	"strings"

	"parlor/internal/blackjack"
	"parlor/internal/chat"
	"parlor/internal/channels"
	"parlor/internal/config"
	"parlor/internal/correlator"
	"parlor/internal/core"
	"parlor/internal/ledger"
	"parlor/internal/mail"
	"parlor/internal/mines"
	"parlor/internal/nickname"
	"parlor/internal/onestroke"
	"parlor/internal/redenvelope"
)

// Broadcaster is the narrow slice of internal/server.Hub this package
// needs, kept as an interface so commands never imports the HTTP/WS
// surface directly.
type Broadcaster interface {
	Broadcast(kind string, payload any)
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(string, any) {}

// handlerFunc is one command's implementation. It sends its own reply(ies)
// through d.reply rather than returning text, since several commands
// (the three games) keep talking to the user long after the handler
// itself returns.
type handlerFunc func(ctx context.Context, d *Dispatcher, ev chat.InboundEvent, args string) error

// Dispatcher wires every subsystem service to the command table and to
// the passive correlator / channel membership bookkeeping every inbound
// message also triggers, per spec.md §2's data-flow description.
type Dispatcher struct {
	cfg         *config.Config
	transport   chat.Transport
	correlator  *correlator.Correlator
	mirror      *correlator.RedisMirror
	broadcaster Broadcaster
	superusers  map[string]bool

	Ledger     *ledger.Service
	Nickname   *nickname.Service
	Blackjack  *blackjack.Service
	Mines      *mines.Service
	OneStroke  *onestroke.Service
	Envelopes  *redenvelope.Service
	Mail       *mail.Service
	Channels   *channels.Service

	table map[string]handlerFunc
}

// Options bundles the constructor's dependencies.
type Options struct {
	Config      *config.Config
	Transport   chat.Transport
	Correlator  *correlator.Correlator
	Mirror      *correlator.RedisMirror
	Broadcaster Broadcaster
	Superusers  []string

	Ledger    *ledger.Service
	Nickname  *nickname.Service
	Blackjack *blackjack.Service
	Mines     *mines.Service
	OneStroke *onestroke.Service
	Envelopes *redenvelope.Service
	Mail      *mail.Service
	Channels  *channels.Service
}

// New builds a Dispatcher with every command registered.
func New(opts Options) *Dispatcher {
	b := opts.Broadcaster
	if b == nil {
		b = noopBroadcaster{}
	}
	su := make(map[string]bool, len(opts.Superusers))
	for _, id := range opts.Superusers {
		su[id] = true
	}

	d := &Dispatcher{
		cfg:         opts.Config,
		transport:   opts.Transport,
		correlator:  opts.Correlator,
		mirror:      opts.Mirror,
		broadcaster: b,
		superusers:  su,
		Ledger:      opts.Ledger,
		Nickname:    opts.Nickname,
		Blackjack:   opts.Blackjack,
		Mines:       opts.Mines,
		OneStroke:   opts.OneStroke,
		Envelopes:   opts.Envelopes,
		Mail:        opts.Mail,
		Channels:    opts.Channels,
	}
	d.table = d.buildTable()
	return d
}

// Handle is the single entry point every inbound chat event passes
// through: correlator observation, channel-membership bookkeeping,
// session routing for an already-active game, then command dispatch for
// everything else (spec.md §2's data-flow list).
func (d *Dispatcher) Handle(ctx context.Context, ev chat.InboundEvent) {
	d.correlator.Observe(ev)
	if err := d.mirror.Publish(ctx, ev.ChannelID, ev.MessageID, ev.Timestamp); err != nil {
		log.Printf("[COMMANDS] mirror publish: %v", err)
	}

	if ev.Member != nil {
		d.handleMemberEvent(ctx, ev)
		return
	}

	if err := d.Channels.Touch(ctx, ev.ChannelID, ev.UserID, ev.AvatarURL); err != nil {
		log.Printf("[COMMANDS] touch channel membership: %v", err)
	}

	if d.Blackjack.Sessions.Route(ev.UserID, ev) {
		return
	}
	if d.Mines.Sessions.Route(ev.UserID, ev) {
		return
	}
	if d.OneStroke.Sessions.Route(ev.UserID, ev) {
		return
	}

	name, args := parseCommand(ev.Text)
	if name == "" {
		return
	}
	h, ok := d.table[name]
	if !ok {
		return
	}

	if err := h(ctx, d, ev, args); err != nil {
		d.replyError(ctx, ev.ChannelID, err)
	}
}

func (d *Dispatcher) handleMemberEvent(ctx context.Context, ev chat.InboundEvent) {
	switch ev.Member.Kind {
	case chat.MemberJoined:
		if err := d.Channels.Touch(ctx, ev.ChannelID, ev.Member.UserID, ev.Member.AvatarURL); err != nil {
			log.Printf("[COMMANDS] touch on join: %v", err)
		}
	case chat.MemberLeft:
		if err := d.Channels.RemoveMember(ctx, ev.ChannelID, ev.Member.UserID); err != nil {
			log.Printf("[COMMANDS] remove member: %v", err)
		}
	case chat.MemberGuildRemove:
		if err := d.Channels.RemoveChannel(ctx, ev.ChannelID); err != nil {
			log.Printf("[COMMANDS] remove channel: %v", err)
		}
	}
}

// reply sends content to channelID, attaching a passive ref when the
// correlator has an eligible one (spec.md §4.2).
func (d *Dispatcher) reply(ctx context.Context, channelID, content string) {
	out := chat.OutboundEvent{ChannelID: channelID, Content: content}
	if ref, ok := d.correlator.Acquire(channelID); ok {
		out.PassiveRef = ref
	}
	if err := d.transport.Send(ctx, out); err != nil {
		log.Printf("[COMMANDS] send failed (reported, not fatal): %v", err)
	}
}

// sendFunc adapts d.reply to the signature internal/session.Engine.Ask
// expects, for game Play loops to share with this dispatcher's passive-ref
// bookkeeping.
func (d *Dispatcher) sendFunc(ctx context.Context, out chat.OutboundEvent) error {
	if ref, ok := d.correlator.Acquire(out.ChannelID); ok {
		out.PassiveRef = ref
	}
	return d.transport.Send(ctx, out)
}

func (d *Dispatcher) replyError(ctx context.Context, channelID string, err error) {
	kind := core.KindOf(err)
	msg := err.Error()
	if kind == core.KindInternal {
		log.Printf("[COMMANDS] internal error: %v", err)
		msg = "something went wrong, please try again"
	}
	d.reply(ctx, channelID, msg)
}

func (d *Dispatcher) isSuperuser(userID string) bool {
	return d.superusers[userID]
}

// parseCommand splits text's first whitespace-delimited token as the
// command name (normalized) and returns the remainder as args.
func parseCommand(text string) (name, args string) {
	normalized := normalizeText(text)
	trimmed := strings.TrimSpace(normalized)
	if trimmed == "" {
		return "", ""
	}
	parts := strings.SplitN(trimmed, " ", 2)
	name = strings.ToLower(parts[0])
	if len(parts) == 2 {
		args = strings.TrimSpace(parts[1])
	}
	return name, args
}

// normalizeText folds full-width ASCII (U+FF01-U+FF5E, U+3000 space) down
// to their ASCII equivalents. It leaves letter case alone; parseCommand
// lowercases the command name, which together gives spec.md §6's
// "case-insensitive where Latin, full-width tolerant."
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '　':
			b.WriteRune(' ')
		case r >= '！' && r <= '～':
			b.WriteRune(r - 0xFEE0)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
