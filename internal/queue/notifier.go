package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Notifier delivers consumed messages to people.  Real email/SMS delivery
// lives outside this service; FileNotifier records what would be sent.
type Notifier interface {
	BookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error
	OTPRequested(ctx context.Context, ev OTPRequestedEvent) error
}

// FileNotifier appends one human-readable line per notification to a log
// file, creating its directory on first use.
type FileNotifier struct {
	mu   sync.Mutex
	path string
}

func NewFileNotifier(path string) *FileNotifier {
	return &FileNotifier{path: path}
}

func (n *FileNotifier) BookingConfirmed(_ context.Context, ev BookingConfirmedEvent) error {
	line := fmt.Sprintf("[%s] Booking confirmed | booking_id=%s | user_id=%s | event_id=%s | to=%q | event=%q | club=%q | venue=%q | date=%s | ticket_bytes=%d\n",
		ev.ConfirmedAt.UTC().Format(time.RFC3339), ev.BookingID, ev.UserID, ev.EventID,
		ev.Email, ev.EventTitle, ev.ClubName, ev.Venue, ev.EventDate.UTC().Format(time.RFC3339), len(ev.TicketToken))
	return n.append(line)
}

func (n *FileNotifier) OTPRequested(_ context.Context, ev OTPRequestedEvent) error {
	line := fmt.Sprintf("[%s] Verification code | to=%q | code=%s | expires_at=%s\n",
		time.Now().UTC().Format(time.RFC3339), ev.Email, ev.Code, ev.ExpiresAt.UTC().Format(time.RFC3339))
	return n.append(line)
}

func (n *FileNotifier) append(line string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(n.path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(n.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// DirectSender delivers OTP codes straight to a Notifier.  It is used when
// no broker is configured.
type DirectSender struct {
	Notifier Notifier
}

func (s DirectSender) SendCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	return s.Notifier.OTPRequested(ctx, OTPRequestedEvent{Email: email, Code: code, ExpiresAt: expiresAt})
}
