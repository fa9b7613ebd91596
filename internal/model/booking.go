package model

import "time"

// BookingStatus enumerates the states a booking can be in.  CONFIRMED and
// PENDING bookings are admissible at the door; CANCELLED and CHECKED_IN are
// terminal.
type BookingStatus string

const (
    BookingPending   BookingStatus = "PENDING"
    BookingConfirmed BookingStatus = "CONFIRMED"
    BookingCancelled BookingStatus = "CANCELLED"
    BookingCheckedIn BookingStatus = "CHECKED_IN"
)

// Admissible reports whether a booking in this status may still be checked in.
func (s BookingStatus) Admissible() bool {
    return s != BookingCancelled && s != BookingCheckedIn
}

// Booking records a user's seat at an event.  One booking exists per user
// per event.
//
// Fields:
//  ID          – primary key (UUID string).
//  UserID      – user who booked.
//  EventID     – event being attended.
//  Status      – see BookingStatus.
//  QRToken     – serialized ticket credential last issued or accepted for
//                this booking.  It is a cache for display and audit; the
//                signature on a presented token is what admits a guest.
//  CheckedInAt – set exactly once when the guest is admitted.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Booking struct {
    ID          string        `json:"id"`            // bookings.id
    UserID      string        `json:"user_id"`       // bookings.user_id
    EventID     string        `json:"event_id"`      // bookings.event_id
    Status      BookingStatus `json:"status"`        // bookings.status
    QRToken     string        `json:"-"`             // bookings.qr_code
    CheckedInAt *time.Time    `json:"checked_in_at"` // bookings.checked_in_at (nullable)
    CreatedAt   time.Time     `json:"created_at"`    // bookings.created_at
    UpdatedAt   time.Time     `json:"updated_at"`    // bookings.updated_at
}

// BookingDetail is a booking joined with the event, club and user fields
// shown to the operator at the door and to the owner in their booking list.
type BookingDetail struct {
    Booking
    Event EventSummary `json:"event"`
    User  UserSummary  `json:"user"`
}
