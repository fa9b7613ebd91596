// Package repository holds the MySQL data access layer.  The sentinel
// errors below are shared across repositories so that higher layers can
// tell failure scenarios apart without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
// Handlers translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be applied because the
// row is no longer in the state the caller expected, for example a
// conditional check-in that lost a race or a cancellation of a booking
// that was already used.  Handlers translate this into an HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert violates a unique key: a second
// booking for the same user and event, or an email already registered.
var ErrDuplicate = errors.New("duplicate")

// ErrSoldOut is returned when an event has no seats left.
var ErrSoldOut = errors.New("event is sold out")

// ErrEventStarted is returned when a booking can no longer be changed
// because its event has already begun.
var ErrEventStarted = errors.New("event has already started")

// isDuplicateKey reports whether err is MySQL error 1062 (ER_DUP_ENTRY).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
