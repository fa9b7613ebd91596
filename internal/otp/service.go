package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("otp: no code was requested for this email")
	ErrExpired         = errors.New("otp: code has expired")
	ErrTooManyAttempts = errors.New("otp: too many attempts")
	ErrInvalidCode     = errors.New("otp: code is incorrect")
)

// Sender delivers a code to its recipient.
type Sender interface {
	SendCode(ctx context.Context, email, code string, expiresAt time.Time) error
}

// Service issues and checks codes.
type Service struct {
	store       Store
	sender      Sender
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
	logger      *slog.Logger
	generate    func() (string, error)
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithGenerator replaces the random code generator.
func WithGenerator(gen func() (string, error)) Option { return func(s *Service) { s.generate = gen } }

// NewService returns a Service.  ttl and maxAttempts fall back to ten
// minutes and five attempts when not positive.
func NewService(store Store, sender Sender, ttl time.Duration, maxAttempts int, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("otp: store is required")
	}
	if sender == nil {
		return nil, errors.New("otp: sender is required")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	s := &Service{
		store:       store,
		sender:      sender,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		now:         time.Now,
		logger:      slog.Default(),
		generate:    sixDigits,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func normalize(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Send creates a fresh code for email, replacing any previous one, and
// hands it to the Sender.  It returns the code's expiry.
func (s *Service) Send(ctx context.Context, email string) (time.Time, error) {
	email = normalize(email)
	code, err := s.generate()
	if err != nil {
		return time.Time{}, fmt.Errorf("otp: generate: %w", err)
	}
	expiresAt := s.now().Add(s.ttl)
	if err := s.store.Save(ctx, email, Record{Code: code, ExpiresAt: expiresAt}); err != nil {
		return time.Time{}, err
	}
	if err := s.sender.SendCode(ctx, email, code, expiresAt); err != nil {
		_ = s.store.Delete(ctx, email)
		return time.Time{}, fmt.Errorf("otp: send: %w", err)
	}
	s.logger.InfoContext(ctx, "otp sent", "email", email)
	return expiresAt, nil
}

// Verify checks code against the stored one.  A wrong code counts as an
// attempt; once maxAttempts wrong codes were given, or the code expired,
// the record is removed and a new code must be requested.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	email = normalize(email)
	rec, err := s.load(ctx, email)
	if err != nil {
		return err
	}
	if rec.Attempts >= s.maxAttempts {
		_ = s.store.Delete(ctx, email)
		return ErrTooManyAttempts
	}
	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(strings.TrimSpace(code))) != 1 {
		rec.Attempts++
		if rec.Attempts >= s.maxAttempts {
			_ = s.store.Delete(ctx, email)
			return ErrTooManyAttempts
		}
		if err := s.store.Save(ctx, email, rec); err != nil {
			return err
		}
		return ErrInvalidCode
	}
	rec.Verified = true
	return s.store.Save(ctx, email, rec)
}

// IsVerified reports whether email passed Verify and has not expired or
// been removed since.
func (s *Service) IsVerified(ctx context.Context, email string) (bool, error) {
	rec, err := s.load(ctx, normalize(email))
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrExpired):
		return false, nil
	case err != nil:
		return false, err
	}
	return rec.Verified, nil
}

// Remove forgets email, typically after registration consumed it.
func (s *Service) Remove(ctx context.Context, email string) error {
	return s.store.Delete(ctx, normalize(email))
}

func (s *Service) load(ctx context.Context, email string) (Record, error) {
	rec, err := s.store.Get(ctx, email)
	if errors.Is(err, ErrNoRecord) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	if !s.now().Before(rec.ExpiresAt) {
		_ = s.store.Delete(ctx, email)
		return Record{}, ErrExpired
	}
	return rec, nil
}

func sixDigits() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
