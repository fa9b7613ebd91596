package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/club-event-ticketing/internal/model"
)

// EventRepo reads events.  Event CRUD belongs to the club management side
// of the application; the booking flow only needs lookups.
type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying sql.DB.
func (r *EventRepo) DB() *sql.DB { return r.db }

const eventSelect = `SELECT e.id, e.club_id, e.title, COALESCE(e.description, ''), e.venue, e.date,
       e.max_seats, e.price_cents, e.status, COALESCE(c.name, ''), e.created_at, e.updated_at
FROM events e
LEFT JOIN clubs c ON c.id = e.club_id
WHERE e.id = ?`

func scanEvent(row rowScanner) (*model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.ClubID, &e.Title, &e.Description, &e.Venue, &e.Date,
		&e.MaxSeats, &e.PriceCents, &e.Status, &e.ClubName, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetByID returns the event with its club name, or ErrNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx, eventSelect, id))
}

// GetForUpdateTx loads the event and locks its row until tx ends.  Seat
// accounting for concurrent bookings of the same event is serialised on
// this lock.
func (r *EventRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.Event, error) {
	return scanEvent(tx.QueryRowContext(ctx, eventSelect+` FOR UPDATE`, id))
}
