// Package ticket issues and verifies admission tickets.  A ticket is a
// signed, self-contained credential for one booking, rendered as a QR code
// and checked at the door against the booking record.
package ticket

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TypeEventTicket is the discriminant carried by every admission
// credential.  Tokens signed with the same key for other purposes (for
// example session tokens when QR_TICKET_SECRET falls back to JWT_SECRET)
// carry a different type and are rejected.
const TypeEventTicket = "EVENT_TICKET"

// DefaultTTL is how long a ticket stays valid after issuance.  It has to
// outlast the longest lead time between booking and event.
const DefaultTTL = 100 * 24 * time.Hour

// Credential is the payload of a ticket.  Email and Name are display-only
// and play no part in verification.
type Credential struct {
	BookingID string
	UserID    string
	EventID   string
	Email     string
	Name      string
	IssuedAt  time.Time
	Type      string
}

type ticketClaims struct {
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
	EventID   string `json:"eventId"`
	Email     string `json:"userEmail,omitempty"`
	Name      string `json:"userName,omitempty"`
	Type      string `json:"type"`
	jwt.RegisteredClaims
}

// Codec signs credentials into tokens and verifies them back.  It holds
// the symmetric signing key and is safe for concurrent use.
type Codec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// CodecOption customises a Codec.
type CodecOption func(*Codec)

// WithClock replaces the time source used for expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

// ErrMissingKey is returned when no signing key is configured.
var ErrMissingKey = errors.New("ticket: signing key is not configured")

// NewCodec builds a Codec.  A zero ttl selects DefaultTTL.
func NewCodec(secret string, ttl time.Duration, opts ...CodecOption) (*Codec, error) {
	if secret == "" {
		return nil, ErrMissingKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Codec{key: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the validity horizon of issued tokens.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Encode signs cred.  IssuedAt is truncated to whole seconds, the
// resolution of the iat claim.  An empty Type defaults to TypeEventTicket.
func (c *Codec) Encode(cred Credential) (string, error) {
	if cred.BookingID == "" {
		return "", errors.New("ticket: credential has no booking id")
	}
	typ := cred.Type
	if typ == "" {
		typ = TypeEventTicket
	}
	iat := cred.IssuedAt.UTC().Truncate(time.Second)
	claims := ticketClaims{
		BookingID: cred.BookingID,
		UserID:    cred.UserID,
		EventID:   cred.EventID,
		Email:     cred.Email,
		Name:      cred.Name,
		Type:      typ,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(c.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// Decode verifies token and returns its credential.  Surrounding whitespace
// from scanners or copy-paste is ignored.  Failures are *Error values of
// kind KindMalformed, KindSignatureInvalid, KindExpired or KindWrongType.
func (c *Codec) Decode(token string) (Credential, error) {
	raw := strings.TrimSpace(token)
	if raw == "" {
		return Credential{}, newError(KindMalformed, "ticket is empty")
	}

	claims := new(ticketClaims)
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Credential{}, classify(err)
	}

	if claims.Type != TypeEventTicket {
		return Credential{}, newError(KindWrongType, "token is not an event ticket")
	}
	if claims.BookingID == "" {
		return Credential{}, newError(KindMalformed, "ticket has no booking id")
	}

	cred := Credential{
		BookingID: claims.BookingID,
		UserID:    claims.UserID,
		EventID:   claims.EventID,
		Email:     claims.Email,
		Name:      claims.Name,
		Type:      claims.Type,
	}
	if claims.IssuedAt != nil {
		cred.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	return cred, nil
}

// classify maps a jwt parse error onto a ticket Kind.  Signature problems
// are checked before expiry because the parser verifies the signature
// before it validates claims.
func classify(err error) *Error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return wrapError(KindMalformed, "ticket format is malformed", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return wrapError(KindSignatureInvalid, "ticket signature is invalid", err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return wrapError(KindExpired, "ticket has expired", err)
	}
	return wrapError(KindMalformed, "ticket could not be read", err)
}
