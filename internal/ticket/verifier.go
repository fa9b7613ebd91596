package ticket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/iliyamo/club-event-ticketing/internal/model"
	"github.com/iliyamo/club-event-ticketing/internal/repository"
)

// ErrNoOperator is returned when Verify is called without an operator.
var ErrNoOperator = errors.New("ticket: operator identity is required")

// OutcomeCheckedIn is reported to VerifyMetrics for successful check-ins.
// Rejections are reported by their Kind and infrastructure faults as
// OutcomeError.
const (
	OutcomeCheckedIn = "CHECKED_IN"
	OutcomeError     = "ERROR"
)

// Operator identifies the staff member scanning tickets.  Role gating
// happens before Verify is called; the operator is recorded for audit.
type Operator struct {
	UserID string
	Role   string
}

// CheckInResult is returned for an admitted guest.
type CheckInResult struct {
	Booking     model.BookingDetail
	CheckedInAt time.Time
}

// VerifyMetrics receives one observation per Verify call.
type VerifyMetrics interface {
	CheckInOutcome(outcome string, elapsed time.Duration)
}

// Verifier admits guests by checking a presented ticket against the
// booking record and marking the booking checked in.
type Verifier struct {
	codec   *Codec
	store   BookingStore
	window  Window
	now     func() time.Time
	logger  *slog.Logger
	metrics VerifyMetrics
}

// VerifierOption customises a Verifier.
type VerifierOption func(*Verifier)

func WithWindow(w Window) VerifierOption {
	return func(v *Verifier) { v.window = w }
}

func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.now = now }
}

func WithVerifierLogger(l *slog.Logger) VerifierOption {
	return func(v *Verifier) { v.logger = l }
}

func WithVerifierMetrics(m VerifyMetrics) VerifierOption {
	return func(v *Verifier) { v.metrics = m }
}

// NewVerifier returns a Verifier using DefaultWindow unless overridden.
func NewVerifier(codec *Codec, store BookingStore, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		codec:  codec,
		store:  store,
		window: DefaultWindow(),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks presented and, when it admits, transitions the booking to
// CHECKED_IN.  Every expected refusal is a *Error; any other error is an
// infrastructure fault.
//
// A presented token that differs from the stored one but decodes to this
// booking replaces the stored token before status and window are checked.
// The stored token is a convenience copy; the signature is what counts.
func (v *Verifier) Verify(ctx context.Context, presented string, op Operator) (res *CheckInResult, err error) {
	ctx, span := tracer.Start(ctx, "ticket.Verify")
	start := time.Now()
	defer func() {
		outcome := OutcomeCheckedIn
		if err != nil {
			outcome = OutcomeError
			if k := KindOf(err); k != "" {
				outcome = string(k)
			} else {
				span.RecordError(err)
				span.SetStatus(codes.Error, "verify failed")
			}
		}
		span.SetAttributes(attribute.String("checkin.outcome", outcome))
		span.End()
		if v.metrics != nil {
			v.metrics.CheckInOutcome(outcome, time.Since(start))
		}
	}()

	if op.UserID == "" {
		return nil, ErrNoOperator
	}
	span.SetAttributes(attribute.String("operator.id", op.UserID))

	cred, err := v.codec.Decode(presented)
	if err != nil {
		v.logger.InfoContext(ctx, "ticket rejected", "operator_id", op.UserID, "kind", KindOf(err))
		return nil, err
	}
	span.SetAttributes(attribute.String("booking.id", cred.BookingID))

	b, err := v.store.FindByID(ctx, cred.BookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindBookingNotFound, "booking not found")
		}
		return nil, fmt.Errorf("ticket: load booking %s: %w", cred.BookingID, err)
	}
	if b.ID != cred.BookingID {
		return nil, newError(KindCredentialBookingMismatch, "ticket does not belong to this booking")
	}

	token := strings.TrimSpace(presented)
	if token != strings.TrimSpace(b.QRToken) {
		if err := v.store.UpdateStoredToken(ctx, b.ID, token); err != nil {
			return nil, fmt.Errorf("ticket: reconcile stored token for %s: %w", b.ID, err)
		}
		b.QRToken = token
		v.logger.InfoContext(ctx, "stored ticket replaced by presented ticket",
			"booking_id", b.ID, "operator_id", op.UserID)
	}

	if err := statusError(b); err != nil {
		v.logger.InfoContext(ctx, "ticket rejected", "booking_id", b.ID, "operator_id", op.UserID, "kind", KindOf(err))
		return nil, err
	}

	now := v.now().UTC().Truncate(time.Second)
	if err := v.window.Check(b.Event.Date, now); err != nil {
		v.logger.InfoContext(ctx, "ticket rejected", "booking_id", b.ID, "operator_id", op.UserID, "kind", KindOf(err))
		return nil, err
	}

	updated, err := v.store.MarkCheckedIn(ctx, b.ID, b.Status, now)
	if errors.Is(err, repository.ErrConflict) {
		// Another scan or a cancellation got there first.
		cur, rerr := v.store.FindByID(ctx, b.ID)
		if rerr != nil {
			return nil, fmt.Errorf("ticket: reload booking %s: %w", b.ID, rerr)
		}
		if serr := statusError(cur); serr != nil {
			v.logger.InfoContext(ctx, "ticket rejected", "booking_id", b.ID, "operator_id", op.UserID, "kind", KindOf(serr))
			return nil, serr
		}
		return nil, fmt.Errorf("ticket: booking %s changed from %s to %s during check-in: %w",
			b.ID, b.Status, cur.Status, err)
	}
	if err != nil {
		return nil, fmt.Errorf("ticket: mark booking %s checked in: %w", b.ID, err)
	}

	v.logger.InfoContext(ctx, "guest checked in",
		"booking_id", b.ID, "event_id", b.EventID, "operator_id", op.UserID, "operator_role", op.Role)
	return &CheckInResult{Booking: *updated, CheckedInAt: now}, nil
}

func statusError(b *model.BookingDetail) error {
	switch b.Status {
	case model.BookingCancelled:
		return newError(KindBookingCancelled, "booking has been cancelled")
	case model.BookingCheckedIn:
		e := newError(KindAlreadyCheckedIn, "ticket has already been used")
		if b.CheckedInAt != nil {
			e.At = b.CheckedInAt.UTC()
		}
		return e
	}
	return nil
}
