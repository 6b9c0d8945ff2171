// Package core carries the error-kind contract shared by every command
// handler (spec.md §7): the kind is the contract, the human string is the
// game's to choose.
package core

import "errors"

// Kind enumerates the error kinds a command handler can surface to a user.
type Kind string

const (
	KindInsufficientBalance Kind = "insufficient_balance"
	KindInvalidAmount       Kind = "invalid_amount"
	KindInvalidArgument     Kind = "invalid_argument"
	KindAlreadyInGame       Kind = "already_in_game"
	KindNotInGame           Kind = "not_in_game"
	KindNotFound            Kind = "not_found"
	KindExpired             Kind = "expired"
	KindAlreadyClaimed      Kind = "already_claimed"
	KindEmpty               Kind = "empty"
	KindTimeout             Kind = "timeout"
	KindDuplicateNickname   Kind = "duplicate_nickname"
	KindNicknameTooLong     Kind = "nickname_too_long"
	KindOverdraftOnSet      Kind = "overdraft_on_set"
	KindInternal            Kind = "internal_error"
)

// Error pairs a Kind with a human-facing message. Expected errors
// (preconditions, bad user input) are constructed directly; internal
// failures are wrapped with Wrap so the original error survives in logs
// without leaking into the user-facing text.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an expected, user-facing error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an internal_error that carries the underlying cause for logs.
func Wrap(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal_error", cause: err}
}

// KindOf extracts the Kind of err, defaulting to KindInternal for anything
// that isn't one of ours.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
