package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/club-event-ticketing/internal/model"
)

// BookingRepo provides access to the bookings table.  It is the booking
// store behind check-in: reads join the event, club and user rows needed
// to display a result, and the only check-in write is a conditional
// update guarded by the status the caller observed.  All timestamps are
// stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying sql.DB so callers can begin transactions
// spanning several repositories.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingDetailSelect = `SELECT b.id, b.user_id, b.event_id, b.status, COALESCE(b.qr_code, ''),
       b.checked_in_at, b.created_at, b.updated_at,
       e.id, e.title, e.date, e.venue, COALESCE(c.name, ''),
       u.id, u.first_name, u.last_name, u.email
FROM bookings b
JOIN events e ON e.id = b.event_id
LEFT JOIN clubs c ON c.id = e.club_id
JOIN users u ON u.id = b.user_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBookingDetail(row rowScanner) (*model.BookingDetail, error) {
	var (
		d         model.BookingDetail
		checkedIn sql.NullTime
	)
	err := row.Scan(
		&d.ID, &d.UserID, &d.EventID, &d.Status, &d.QRToken,
		&checkedIn, &d.CreatedAt, &d.UpdatedAt,
		&d.Event.ID, &d.Event.Title, &d.Event.Date, &d.Event.Venue, &d.Event.ClubName,
		&d.User.ID, &d.User.FirstName, &d.User.LastName, &d.User.Email,
	)
	if err != nil {
		return nil, err
	}
	if checkedIn.Valid {
		t := checkedIn.Time.UTC()
		d.CheckedInAt = &t
	}
	return &d, nil
}

// FindByID returns a booking with its event and user details.  It returns
// ErrNotFound when no booking has the id.
func (r *BookingRepo) FindByID(ctx context.Context, id string) (*model.BookingDetail, error) {
	d, err := scanBookingDetail(r.db.QueryRowContext(ctx, bookingDetailSelect+` WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// GetForUser returns a booking owned by userID.  It returns ErrNotFound
// when the booking does not exist and ErrForbidden when it belongs to
// someone else.
func (r *BookingRepo) GetForUser(ctx context.Context, id, userID string) (*model.BookingDetail, error) {
	d, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, ErrForbidden
	}
	return d, nil
}

// ListByUser returns every booking of userID, soonest event first.  It
// returns an empty slice when the user has none.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, bookingDetailSelect+` WHERE b.user_id = ? ORDER BY e.date ASC, b.created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.BookingDetail, 0)
	for rows.Next() {
		d, err := scanBookingDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// UpdateStoredToken overwrites the stored ticket token of a booking.
func (r *BookingRepo) UpdateStoredToken(ctx context.Context, id, token string) error {
	const q = `UPDATE bookings SET qr_code = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, token, id)
	return err
}

// MarkCheckedIn moves a booking to CHECKED_IN provided its status is still
// expected.  Exactly one of several concurrent callers observing the same
// status succeeds; the others get ErrConflict.  The updated booking is
// returned on success.
func (r *BookingRepo) MarkCheckedIn(ctx context.Context, id string, expected model.BookingStatus, at time.Time) (*model.BookingDetail, error) {
	const q = `UPDATE bookings
               SET status = ?, checked_in_at = ?, updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, model.BookingCheckedIn, at.UTC(), id, expected)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrConflict
	}
	return r.FindByID(ctx, id)
}

// CreateTx inserts b within tx.  The caller supplies the ID.  A second
// booking for the same user and event yields ErrDuplicate.  The caller
// must commit or roll back the transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (id, user_id, event_id, status, qr_code, created_at, updated_at)
               VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, ?)`
	now := time.Now().UTC().Truncate(time.Second)
	if _, err := tx.ExecContext(ctx, q, b.ID, b.UserID, b.EventID, b.Status, b.QRToken, now, now); err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	b.CreatedAt, b.UpdatedAt = now, now
	return nil
}

// SetStoredTokenTx writes the issued ticket token within tx.
func (r *BookingRepo) SetStoredTokenTx(ctx context.Context, tx *sql.Tx, id, token string) error {
	_, err := tx.ExecContext(ctx, `UPDATE bookings SET qr_code = ? WHERE id = ?`, token, id)
	return err
}

// ExistsForUserEventTx reports whether userID already has a booking for
// eventID in any status.  A cancelled booking still occupies the
// (user_id, event_id) unique key.
func (r *BookingRepo) ExistsForUserEventTx(ctx context.Context, tx *sql.Tx, userID, eventID string) (bool, error) {
	const q = `SELECT COUNT(*) FROM bookings WHERE user_id = ? AND event_id = ?`
	var n int
	if err := tx.QueryRowContext(ctx, q, userID, eventID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountActiveForEventTx counts bookings of eventID that still occupy a
// seat, i.e. everything except cancellations.
func (r *BookingRepo) CountActiveForEventTx(ctx context.Context, tx *sql.Tx, eventID string) (uint32, error) {
	const q = `SELECT COUNT(*) FROM bookings WHERE event_id = ? AND status <> ?`
	var n uint32
	err := tx.QueryRowContext(ctx, q, eventID, model.BookingCancelled).Scan(&n)
	return n, err
}

// CancelForUser cancels a booking owned by userID before its event starts.
// It returns ErrNotFound, ErrForbidden, ErrEventStarted, or ErrConflict
// when the booking is already cancelled or checked in.  The row is locked
// for the duration so a concurrent check-in cannot interleave.
func (r *BookingRepo) CancelForUser(ctx context.Context, id, userID string, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const sel = `SELECT b.user_id, b.status, e.date
                 FROM bookings b JOIN events e ON e.id = b.event_id
                 WHERE b.id = ? FOR UPDATE`
	var (
		owner  string
		status model.BookingStatus
		date   time.Time
	)
	if err := tx.QueryRowContext(ctx, sel, id).Scan(&owner, &status, &date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if owner != userID {
		return ErrForbidden
	}
	if !status.Admissible() {
		return ErrConflict
	}
	if !now.Before(date) {
		return ErrEventStarted
	}
	const upd = `UPDATE bookings SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd, model.BookingCancelled, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
