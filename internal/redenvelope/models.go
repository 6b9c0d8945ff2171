// Package redenvelope implements C8: pre-split "random cut" amount
// vectors, at-most-once per-user claims, TTL refund, and the lucky-king
// announcement, grounded on
// original_source/plugins/red_envelope/service.go.
package redenvelope

import "time"

const expireAfter = 24 * time.Hour

// Envelope is spec.md §3's persisted Red Envelope.
type Envelope struct {
	ID              int64
	CreatorID       string
	ChannelID       string
	ChannelIndex    int
	Title           string
	TotalAmount     int64
	RemainingAmount int64
	TotalCount      int
	RemainingCount  int
	PendingAmounts  []int64
	CreatedAt       time.Time
	ExpiresAt       time.Time
	IsExpired       bool
}

func (e *Envelope) expiredAt(now time.Time) bool {
	return e.IsExpired || !now.Before(e.ExpiresAt)
}

// Claim is one user's successful draw against an envelope.
type Claim struct {
	ID         int64
	EnvelopeID int64
	UserID     string
	Amount     int64
	ClaimedAt  time.Time
}

// ClaimStatus is the outcome of a claim attempt, the Go translation of
// service.py:claim_envelope's string-tag return value.
type ClaimStatus string

const (
	ClaimSuccess   ClaimStatus = "success"
	ClaimNoActive  ClaimStatus = "no_active"
	ClaimNotFound  ClaimStatus = "not_found"
	ClaimExpired   ClaimStatus = "expired"
	ClaimEmpty     ClaimStatus = "empty"
	ClaimAlready   ClaimStatus = "already"
)

// CompletionInfo is populated only on the claim that drains an envelope
// to zero, per spec.md §4.7's lucky-king announcement.
type CompletionInfo struct {
	CreatorID       string
	DrainedAfter    time.Duration
	LuckyUserID     string
	LuckyAmount     int64
}
