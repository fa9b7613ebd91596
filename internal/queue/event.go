// Package queue defines message payloads exchanged over the message broker
// and the background consumer that delivers them.
package queue

import "time"

// Queue names.  Messages are published to the default exchange with the
// queue name as routing key.
const (
	BookingConfirmedQueue = "booking.confirmed"
	OTPRequestedQueue     = "otp.requested"
)

// BookingConfirmedEvent is published after a booking and its ticket were
// committed.  It carries everything the notification worker needs to send
// the ticket without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID   string    `json:"booking_id"`
	UserID      string    `json:"user_id"`
	EventID     string    `json:"event_id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	EventTitle  string    `json:"event_title"`
	Venue       string    `json:"venue"`
	ClubName    string    `json:"club_name"`
	EventDate   time.Time `json:"event_date"`
	TicketToken string    `json:"ticket_token"`
	QRCodeImage string    `json:"qr_code_image"` // data:image/png;base64,...
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// OTPRequestedEvent asks the notification worker to deliver a
// verification code.
type OTPRequestedEvent struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}
