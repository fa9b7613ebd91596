package ticket

import (
	"context"
	"time"

	"github.com/iliyamo/club-event-ticketing/internal/model"
)

//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks

// BookingStore is the slice of booking persistence the verifier needs.
//
// FindByID returns repository.ErrNotFound when no booking has the id.
// MarkCheckedIn must only succeed when the stored status still equals
// expected, and returns repository.ErrConflict otherwise.
type BookingStore interface {
	FindByID(ctx context.Context, id string) (*model.BookingDetail, error)
	UpdateStoredToken(ctx context.Context, id, token string) error
	MarkCheckedIn(ctx context.Context, id string, expected model.BookingStatus, at time.Time) (*model.BookingDetail, error)
}
