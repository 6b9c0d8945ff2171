// Package session implements C3 (Session Registry) and C4 (Turn Engine):
// the one-active-game-per-user rule, per-session mutable state, and the
// "wait for next message from this session" suspension primitive every
// game drives its dialog on top of.
package session

import (
	"sync"

	"parlor/internal/chat"
	"parlor/internal/core"
)

// Registry enforces "at most one active session per user" for a single
// game, and owns the map from user_id to that game's session state S.
// Guarded by one mutex so is_in_game / start / end are atomic, per
// spec.md §4.3's "Per-game active_players set and session map" lock rule.
type Registry[S any] struct {
	mu       sync.Mutex
	active   map[string]bool
	sessions map[string]*Engine[S]
}

// NewRegistry builds an empty registry for one game kind.
func NewRegistry[S any]() *Registry[S] {
	return &Registry[S]{
		active:   make(map[string]bool),
		sessions: make(map[string]*Engine[S]),
	}
}

// IsActive reports whether user already has a session in this game.
func (r *Registry[S]) IsActive(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active[userID]
}

// Start atomically checks and marks a user active, returning the new
// Engine wrapping state. Returns core.KindAlreadyInGame if the user
// already has a session.
func (r *Registry[S]) Start(userID, channelID string, state *S) (*Engine[S], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active[userID] {
		return nil, core.New(core.KindAlreadyInGame, "you already have a game in progress")
	}

	e := &Engine[S]{
		UserID:    userID,
		ChannelID: channelID,
		State:     state,
		inbox:     make(chan chat.InboundEvent, 8),
	}
	r.active[userID] = true
	r.sessions[userID] = e
	return e, nil
}

// Get returns the live session for userID, if any.
func (r *Registry[S]) Get(userID string) (*Engine[S], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[userID]
	return e, ok
}

// End atomically clears userID's active flag and session, if present.
// Returns the session for any final cleanup (e.g. refund) the caller
// needs to perform with it.
func (r *Registry[S]) End(userID string) (*Engine[S], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[userID]
	delete(r.active, userID)
	delete(r.sessions, userID)
	return e, ok
}

// Route delivers an inbound event to the owning session's inbox, if the
// user has one active. Returns false if there is no session to route to;
// the caller should then try command dispatch instead.
func (r *Registry[S]) Route(userID string, ev chat.InboundEvent) bool {
	r.mu.Lock()
	e, ok := r.sessions[userID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case e.inbox <- ev:
		return true
	default:
		// Inbox full: the session is not waiting, or is backed up.
		// Drop rather than block the router (spec.md §4.3's suspension
		// points are only inside wait; the router itself never blocks).
		return false
	}
}

// ActiveUserIDs returns a snapshot of every user with a live session, for
// the shutdown refund sweep (spec.md §4.3's cancellation rule).
func (r *Registry[S]) ActiveUserIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}
