package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/club-event-ticketing/internal/model"
	"github.com/iliyamo/club-event-ticketing/internal/queue"
	"github.com/iliyamo/club-event-ticketing/internal/repository"
	"github.com/iliyamo/club-event-ticketing/internal/ticket"
)

// BookingPublisher announces confirmed bookings to the notification worker.
type BookingPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// TicketSigner signs the ticket credential of a new booking.
type TicketSigner interface {
	Sign(ctx context.Context, b model.Booking, holder model.UserSummary) (string, error)
}

// BookingMetrics is notified of every booking created.
type BookingMetrics interface {
	BookingCreated()
}

// BookingHandler groups what is needed to book an event, list and cancel
// bookings, and show a booking's ticket.  All methods assume JWTAuth has
// run.  Booking and signing the ticket share one transaction so a booking
// never exists without its ticket; the QR image is rendered after commit.
type BookingHandler struct {
	Bookings  *repository.BookingRepo
	Events    *repository.EventRepo
	Users     Users
	Signer    TicketSigner
	Render    func(token string) ([]byte, error) // nil means ticket.RenderQR
	Publisher BookingPublisher // nil disables notifications
	Metrics   BookingMetrics   // may be nil
	Logger    *slog.Logger
	Now       func() time.Time
}

func NewBookingHandler(bookings *repository.BookingRepo, events *repository.EventRepo, users Users, signer TicketSigner, pub BookingPublisher, m BookingMetrics, logger *slog.Logger) *BookingHandler {
	if bookings == nil || events == nil || users == nil || signer == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BookingHandler{
		Bookings:  bookings,
		Events:    events,
		Users:     users,
		Signer:    signer,
		Render:    ticket.RenderQR,
		Publisher: pub,
		Metrics:   m,
		Logger:    logger,
		Now:       time.Now,
	}
}

var errNotBookable = errors.New("event is not open for booking")

type ticketPart struct {
	Token       string `json:"token"`
	QRCodeImage string `json:"qr_code_image,omitempty"`
}

func (h *BookingHandler) renderQR(token string) ([]byte, error) {
	if h.Render != nil {
		return h.Render(token)
	}
	return ticket.RenderQR(token)
}

// BookEvent handles POST /v1/events/:id/book.  The event must be approved
// and upcoming, the user must not already hold a booking for it, and a
// seat must be left.  The response carries the booking and its ticket.
func (h *BookingHandler) BookEvent(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID := pathID(c, "id")
	if eventID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx := c.Request().Context()

	holder, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		h.Logger.ErrorContext(ctx, "booking: load user failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	b, ev, err := h.book(ctx, userID, eventID, holder.Summary())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case errors.Is(err, errNotBookable):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrEventStarted):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event has already started"})
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "you have already booked this event"})
	case errors.Is(err, repository.ErrSoldOut):
		return c.JSON(http.StatusConflict, echo.Map{"error": "event is sold out"})
	case err != nil:
		h.Logger.ErrorContext(ctx, "booking: create failed", "event_id", eventID, "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
	}

	if h.Metrics != nil {
		h.Metrics.BookingCreated()
	}
	t := &ticket.Ticket{Token: b.QRToken}
	if png, err := h.renderQR(b.QRToken); err != nil {
		h.Logger.WarnContext(ctx, "booking: ticket image not rendered", "booking_id", b.ID, "error", err)
	} else {
		t.PNG = png
	}
	h.publishConfirmed(ctx, b, ev, holder, t)

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "booking confirmed",
		"booking": b,
		"event":   ev.Summary(),
		"ticket":  ticketPart{Token: t.Token, QRCodeImage: t.DataURL()},
	})
}

// book runs the booking transaction: lock the event row, check it is
// bookable, insert the booking, sign its ticket and store the token.
func (h *BookingHandler) book(ctx context.Context, userID, eventID string, holder model.UserSummary) (*model.Booking, *model.Event, error) {
	tx, err := h.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ev, err := h.Events.GetForUpdateTx(ctx, tx, eventID)
	if err != nil {
		return nil, nil, err
	}
	if ev.Status != model.EventApproved {
		return nil, nil, errNotBookable
	}
	if !h.Now().Before(ev.Date) {
		return nil, nil, repository.ErrEventStarted
	}
	exists, err := h.Bookings.ExistsForUserEventTx(ctx, tx, userID, eventID)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, repository.ErrDuplicate
	}
	if ev.MaxSeats > 0 {
		taken, err := h.Bookings.CountActiveForEventTx(ctx, tx, eventID)
		if err != nil {
			return nil, nil, err
		}
		if taken >= ev.MaxSeats {
			return nil, nil, repository.ErrSoldOut
		}
	}

	b := &model.Booking{
		ID:      uuid.NewString(),
		UserID:  userID,
		EventID: eventID,
		Status:  model.BookingConfirmed,
	}
	if err := h.Bookings.CreateTx(ctx, tx, b); err != nil {
		return nil, nil, err
	}
	token, err := h.Signer.Sign(ctx, *b, holder)
	if err != nil {
		return nil, nil, err
	}
	if err := h.Bookings.SetStoredTokenTx(ctx, tx, b.ID, token); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	committed = true
	b.QRToken = token
	return b, ev, nil
}

// publishConfirmed runs after commit.  A failed publish is logged; the
// booking stands.
func (h *BookingHandler) publishConfirmed(ctx context.Context, b *model.Booking, ev *model.Event, u *model.User, t *ticket.Ticket) {
	if h.Publisher == nil {
		return
	}
	msg := queue.BookingConfirmedEvent{
		BookingID:   b.ID,
		UserID:      b.UserID,
		EventID:     b.EventID,
		Email:       u.Email,
		Name:        u.Summary().FullName(),
		EventTitle:  ev.Title,
		Venue:       ev.Venue,
		ClubName:    ev.ClubName,
		EventDate:   ev.Date.UTC(),
		TicketToken: t.Token,
		QRCodeImage: t.DataURL(),
		ConfirmedAt: b.CreatedAt,
	}
	if err := h.Publisher.PublishBookingConfirmed(ctx, msg); err != nil {
		h.Logger.WarnContext(ctx, "booking: confirmation not published", "booking_id", b.ID, "error", err)
	}
}

// MyBookings handles GET /v1/my-bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Bookings.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}

// CancelBooking handles PATCH /v1/bookings/:id/cancel.  Only the owner may
// cancel, only before the event starts, and never after check-in.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := pathID(c, "id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx := c.Request().Context()
	err = h.Bookings.CancelForUser(ctx, id, userID, h.Now().UTC())
	switch {
	case err == nil:
		h.Logger.InfoContext(ctx, "booking cancelled", "booking_id", id, "user_id", userID)
		return c.JSON(http.StatusOK, echo.Map{"message": "booking cancelled"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking can no longer be cancelled"})
	case errors.Is(err, repository.ErrEventStarted):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot cancel after the event has started"})
	}
	h.Logger.ErrorContext(ctx, "booking: cancel failed", "booking_id", id, "error", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
}

// Ticket handles GET /v1/bookings/:id/ticket and writes the stored ticket
// as a PNG QR code.
func (h *BookingHandler) Ticket(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := pathID(c, "id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Bookings.GetForUser(c.Request().Context(), id, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if b.Status == model.BookingCancelled {
		return c.JSON(http.StatusGone, echo.Map{"error": "booking has been cancelled"})
	}
	if b.QRToken == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no ticket has been issued for this booking"})
	}
	png, err := h.renderQR(b.QRToken)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to render ticket"})
	}
	return c.Blob(http.StatusOK, "image/png", png)
}
