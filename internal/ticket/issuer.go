package ticket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/iliyamo/club-event-ticketing/internal/model"
)

var tracer = otel.Tracer("github.com/iliyamo/club-event-ticketing/internal/ticket")

// ErrNotIssuable is returned when a ticket is requested for a booking that
// can no longer be admitted.
var ErrNotIssuable = errors.New("ticket: booking is not eligible for a ticket")

// Ticket is what the booking owner receives: the token to persist on the
// booking and the QR image to show or send.
type Ticket struct {
	Token string
	PNG   []byte
}

// DataURL returns the QR image as a data: URL, or "" when there is no
// image.
func (t *Ticket) DataURL() string {
	if len(t.PNG) == 0 {
		return ""
	}
	return DataURL(t.PNG)
}

// IssueMetrics is the subset of metrics the issuer reports to.
type IssueMetrics interface {
	TicketIssued()
}

// Issuer creates tickets for bookings.
type Issuer struct {
	codec   *Codec
	now     func() time.Time
	logger  *slog.Logger
	metrics IssueMetrics
}

// IssuerOption customises an Issuer.
type IssuerOption func(*Issuer)

func WithIssuerClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) { i.now = now }
}

func WithIssuerLogger(l *slog.Logger) IssuerOption {
	return func(i *Issuer) { i.logger = l }
}

func WithIssuerMetrics(m IssueMetrics) IssuerOption {
	return func(i *Issuer) { i.metrics = m }
}

// NewIssuer returns an Issuer signing with codec.
func NewIssuer(codec *Codec, opts ...IssuerOption) *Issuer {
	i := &Issuer{codec: codec, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Sign signs a credential for b.  holder supplies the display fields
// embedded in the credential and may be zero.  Uniqueness of the booking
// itself is the caller's concern; signing twice for the same booking
// yields two equally valid tokens.
func (i *Issuer) Sign(ctx context.Context, b model.Booking, holder model.UserSummary) (string, error) {
	_, span := tracer.Start(ctx, "ticket.Sign")
	defer span.End()
	span.SetAttributes(attribute.String("booking.id", b.ID))

	if !b.Status.Admissible() {
		span.SetStatus(codes.Error, "booking not admissible")
		return "", fmt.Errorf("%w: status %s", ErrNotIssuable, b.Status)
	}

	token, err := i.codec.Encode(Credential{
		BookingID: b.ID,
		UserID:    b.UserID,
		EventID:   b.EventID,
		Email:     holder.Email,
		Name:      holder.FullName(),
		IssuedAt:  i.now(),
		Type:      TypeEventTicket,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sign ticket")
		return "", fmt.Errorf("ticket: sign: %w", err)
	}

	if i.metrics != nil {
		i.metrics.TicketIssued()
	}
	i.logger.InfoContext(ctx, "ticket issued", "booking_id", b.ID, "event_id", b.EventID)
	return token, nil
}

// Issue signs a credential for b and renders it as a QR code.
func (i *Issuer) Issue(ctx context.Context, b model.Booking, holder model.UserSummary) (*Ticket, error) {
	token, err := i.Sign(ctx, b, holder)
	if err != nil {
		return nil, err
	}
	png, err := RenderQR(token)
	if err != nil {
		return nil, err
	}
	return &Ticket{Token: token, PNG: png}, nil
}
