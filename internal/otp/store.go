// Package otp implements one-time email verification codes: a code is
// sent, checked with a bounded number of attempts before it expires, and a
// successful check marks the email as verified until it is consumed by
// registration.
package otp

import (
	"context"
	"errors"
	"time"
)

// Record is the state kept per email address.
type Record struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
	Verified  bool      `json:"verified"`
}

// ErrNoRecord is returned by a Store when nothing is stored for a key.
var ErrNoRecord = errors.New("otp: no record")

// Store persists records by email.  Implementations must drop records once
// ExpiresAt has passed; Get may still return an expired record that has
// not been swept yet.
type Store interface {
	Save(ctx context.Context, email string, rec Record) error
	Get(ctx context.Context, email string) (Record, error)
	Delete(ctx context.Context, email string) error
}
