package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/club-event-ticketing/internal/middleware"
	"github.com/iliyamo/club-event-ticketing/internal/ticket"
)

// TicketVerifier admits a presented ticket.  *ticket.Verifier implements it.
type TicketVerifier interface {
	Verify(ctx context.Context, presented string, op ticket.Operator) (*ticket.CheckInResult, error)
}

// CheckInHandler serves the door-scanning endpoint.
type CheckInHandler struct {
	Verifier TicketVerifier
	Logger   *slog.Logger
}

func NewCheckInHandler(v TicketVerifier, logger *slog.Logger) *CheckInHandler {
	if v == nil {
		panic("nil verifier passed to NewCheckInHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckInHandler{Verifier: v, Logger: logger}
}

type verifyQRReq struct {
	QRCode string `json:"qr_code"`
}

// kindStatus maps rejection kinds to HTTP status codes.
var kindStatus = map[ticket.Kind]int{
	ticket.KindMalformed:                 http.StatusBadRequest,
	ticket.KindSignatureInvalid:          http.StatusBadRequest,
	ticket.KindExpired:                   http.StatusBadRequest,
	ticket.KindWrongType:                 http.StatusBadRequest,
	ticket.KindBookingNotFound:           http.StatusNotFound,
	ticket.KindCredentialBookingMismatch: http.StatusBadRequest,
	ticket.KindBookingCancelled:          http.StatusBadRequest,
	ticket.KindAlreadyCheckedIn:          http.StatusConflict,
	ticket.KindNotYetOpen:                http.StatusBadRequest,
	ticket.KindWindowClosed:              http.StatusBadRequest,
}

// VerifyQR handles POST /v1/bookings/verify-qr.  The body carries the
// scanned token as "qr_code".  On success the booking is checked in and
// returned with its event and holder.  Rejections answer with the kind in
// "error" and, where relevant, the timestamp that explains it.
func (h *CheckInHandler) VerifyQR(c echo.Context) error {
	var req verifyQRReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.QRCode) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "qr_code is required"})
	}
	op := ticket.Operator{UserID: middleware.UserID(c), Role: middleware.Role(c)}

	ctx := c.Request().Context()
	res, err := h.Verifier.Verify(ctx, req.QRCode, op)
	if err != nil {
		var te *ticket.Error
		if errors.As(err, &te) {
			return c.JSON(statusFor(te.Kind), rejectionBody(te))
		}
		if errors.Is(err, ticket.ErrNoOperator) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		h.Logger.ErrorContext(ctx, "check-in failed", "operator_id", op.UserID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-in failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":       "check-in successful",
		"booking":       res.Booking,
		"checked_in_at": res.CheckedInAt.UTC(),
	})
}

func statusFor(k ticket.Kind) int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusBadRequest
}

func rejectionBody(te *ticket.Error) echo.Map {
	body := echo.Map{"error": string(te.Kind), "message": te.Error()}
	if te.At.IsZero() {
		return body
	}
	switch te.Kind {
	case ticket.KindNotYetOpen:
		body["check_in_opens_at"] = te.At.UTC()
	case ticket.KindWindowClosed:
		body["check_in_closed_at"] = te.At.UTC()
	case ticket.KindAlreadyCheckedIn:
		body["checked_in_at"] = te.At.UTC()
	}
	return body
}
