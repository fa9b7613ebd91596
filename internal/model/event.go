package model

import "time"

// EventStatus is the moderation state of an event.  Only APPROVED events
// accept bookings.
type EventStatus string

const (
    EventPending  EventStatus = "PENDING"
    EventApproved EventStatus = "APPROVED"
    EventRejected EventStatus = "REJECTED"
)

// Event is a club event that users book seats for.  Date is the start time
// and anchors the check-in window.
type Event struct {
    ID          string      `json:"id"`          // events.id
    ClubID      string      `json:"club_id"`     // events.club_id
    Title       string      `json:"title"`       // events.title
    Description string      `json:"description"` // events.description
    Venue       string      `json:"venue"`       // events.venue
    Date        time.Time   `json:"date"`        // events.date
    MaxSeats    uint32      `json:"max_seats"`   // events.max_seats
    PriceCents  uint32      `json:"price_cents"` // events.price_cents
    Status      EventStatus `json:"status"`      // events.status
    ClubName    string      `json:"club_name"`   // clubs.name (joined)
    CreatedAt   time.Time   `json:"created_at"`  // events.created_at
    UpdatedAt   time.Time   `json:"updated_at"`  // events.updated_at
}

// EventSummary carries the display subset of an event.
type EventSummary struct {
    ID       string    `json:"id"`
    Title    string    `json:"title"`
    Date     time.Time `json:"date"`
    Venue    string    `json:"venue"`
    ClubName string    `json:"club_name"`
}

// Summary returns the display subset of e.
func (e Event) Summary() EventSummary {
    return EventSummary{ID: e.ID, Title: e.Title, Date: e.Date, Venue: e.Venue, ClubName: e.ClubName}
}
