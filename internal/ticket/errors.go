package ticket

import (
	"errors"
	"time"
)

// Kind classifies why a ticket could not be decoded or admitted.  The
// values are stable and are sent to the scanning surface verbatim.
type Kind string

const (
	// Credential-level, raised while decoding.
	KindMalformed        Kind = "MALFORMED"
	KindSignatureInvalid Kind = "SIGNATURE_INVALID"
	KindExpired          Kind = "EXPIRED"
	KindWrongType        Kind = "WRONG_TYPE"

	// Identity-level.
	KindBookingNotFound           Kind = "BOOKING_NOT_FOUND"
	KindCredentialBookingMismatch Kind = "CREDENTIAL_BOOKING_MISMATCH"

	// Status-level.
	KindBookingCancelled Kind = "BOOKING_CANCELLED"
	KindAlreadyCheckedIn Kind = "ALREADY_CHECKED_IN"

	// Time-window-level.
	KindNotYetOpen   Kind = "CHECK_IN_NOT_YET_OPEN"
	KindWindowClosed Kind = "CHECK_IN_WINDOW_CLOSED"
)

// Error is a ticket rejection.  At carries the timestamp the operator needs
// to explain the rejection: when check-in opens, when it closed, or when the
// booking was already checked in.  It is zero for the other kinds.
type Error struct {
	Kind    Kind
	Message string
	At      time.Time
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind, so callers can write
// errors.Is(err, &ticket.Error{Kind: ticket.KindExpired}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func wrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the Kind of a ticket rejection, or "" when err is not one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRejection reports whether err is an expected ticket outcome rather than
// an infrastructure fault.
func IsRejection(err error) bool {
	return KindOf(err) != ""
}
