package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/club-event-ticketing/internal/model"
	"github.com/iliyamo/club-event-ticketing/internal/repository"
	"github.com/iliyamo/club-event-ticketing/internal/ticket"
)

// EventFinder looks events up by ID.
type EventFinder interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// EventHandler serves public event pages.
type EventHandler struct {
	Events EventFinder
	Window ticket.Window
}

func NewEventHandler(events EventFinder, w ticket.Window) *EventHandler {
	return &EventHandler{Events: events, Window: w}
}

type eventResp struct {
	*model.Event
	CheckInOpensAt  time.Time `json:"check_in_opens_at"`
	CheckInClosesAt time.Time `json:"check_in_closes_at"`
}

// GetEvent handles GET /v1/events/:id.  Alongside the event it reports the
// check-in window so guests know when to arrive.
func (h *EventHandler) GetEvent(c echo.Context) error {
	id := pathID(c, "id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ev, err := h.Events.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	opens, closes := h.Window.Bounds(ev.Date)
	return c.JSON(http.StatusOK, eventResp{Event: ev, CheckInOpensAt: opens.UTC(), CheckInClosesAt: closes.UTC()})
}
