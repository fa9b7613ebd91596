package ticket

import "time"

// Default check-in window around the event start.
const (
	DefaultOpensBefore = 20 * time.Hour
	DefaultClosesAfter = 2 * time.Hour
)

// Window is the admission interval [date-OpensBefore, date+ClosesAfter].
// Both bounds are inclusive.
type Window struct {
	OpensBefore time.Duration
	ClosesAfter time.Duration
}

// DefaultWindow returns the standard 20h/2h window.
func DefaultWindow() Window {
	return Window{OpensBefore: DefaultOpensBefore, ClosesAfter: DefaultClosesAfter}
}

// Bounds returns when check-in opens and closes for an event starting at date.
func (w Window) Bounds(date time.Time) (opensAt, closesAt time.Time) {
	return date.Add(-w.OpensBefore), date.Add(w.ClosesAfter)
}

// Check returns a KindNotYetOpen or KindWindowClosed *Error carrying the
// relevant bound when now falls outside the window, and nil otherwise.
func (w Window) Check(date, now time.Time) error {
	opensAt, closesAt := w.Bounds(date)
	if now.Before(opensAt) {
		return &Error{
			Kind:    KindNotYetOpen,
			Message: "check-in has not opened yet",
			At:      opensAt.UTC(),
		}
	}
	if now.After(closesAt) {
		return &Error{
			Kind:    KindWindowClosed,
			Message: "check-in window has closed",
			At:      closesAt.UTC(),
		}
	}
	return nil
}
