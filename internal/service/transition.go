package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/scanbite/api/internal/database"
)

// ErrInvalidTransition is returned for any status move outside the allowed
// set. It is recoverable: the caller re-reads and retries or gives up.
var ErrInvalidTransition = errors.New("invalid status transition")

// allowedTransitions defines valid order status transitions.
// Key is current status, value is the set of statuses it can move to.
// This table is the single source of truth for "next status" logic; nothing
// else in the codebase decides transitions.
var allowedTransitions = map[database.OrderStatus][]database.OrderStatus{
	database.OrderStatusPENDING:   {database.OrderStatusCONFIRMED, database.OrderStatusCANCELLED},
	database.OrderStatusCONFIRMED: {database.OrderStatusPREPARING, database.OrderStatusCANCELLED},
	database.OrderStatusPREPARING: {database.OrderStatusREADY, database.OrderStatusCANCELLED},
	database.OrderStatusREADY:     {database.OrderStatusSERVED, database.OrderStatusCANCELLED},
	database.OrderStatusSERVED:    {database.OrderStatusCOMPLETED},
}

// ValidateTransition checks whether current may move to next.
// COMPLETED and CANCELLED have no entry, so they absorb every request.
func ValidateTransition(current, next database.OrderStatus) error {
	allowed, ok := allowedTransitions[current]
	if !ok {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, current)
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidTransition, current, next)
}

// IsValidOrderStatus reports whether s names a known status at all.
func IsValidOrderStatus(s database.OrderStatus) bool {
	switch s {
	case database.OrderStatusPENDING, database.OrderStatusCONFIRMED,
		database.OrderStatusPREPARING, database.OrderStatusREADY,
		database.OrderStatusSERVED, database.OrderStatusCOMPLETED,
		database.OrderStatusCANCELLED:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition can succeed from s.
func IsTerminal(s database.OrderStatus) bool {
	return s == database.OrderStatusCOMPLETED || s == database.OrderStatusCANCELLED
}

// FormatAge renders "time since creation" the way every dashboard shows it:
// whole minutes, "Just now" under a minute, minutes under an hour, then
// hours and minutes.
func FormatAge(createdAt, now time.Time) string {
	mins := int(now.Sub(createdAt).Minutes())
	if mins < 1 {
		return "Just now"
	}
	if mins < 60 {
		return fmt.Sprintf("%dm ago", mins)
	}
	return fmt.Sprintf("%dh %dm ago", mins/60, mins%60)
}
