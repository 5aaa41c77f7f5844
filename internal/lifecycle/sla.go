package lifecycle

import (
	"time"

	"github.com/studiodesk/support-tickets/internal/domain"
)

// Evaluate reports whether t has breached its SLA at now: a due time is set,
// it has passed, and the ticket is neither resolved nor closed.
func Evaluate(t *domain.Ticket, now time.Time) bool {
	if t == nil || t.SLADueAt == nil {
		return false
	}
	return now.After(*t.SLADueAt) && !t.Status.IsSettled()
}

// Refresh recomputes the cached breach flag on t and returns it.
func Refresh(t *domain.Ticket, now time.Time) bool {
	if t == nil {
		return false
	}
	t.SLABreached = Evaluate(t, now)
	return t.SLABreached
}

// DueAt returns the SLA deadline for a ticket opened at start.
func DueAt(start time.Time, window time.Duration) time.Time {
	return start.Add(window)
}
