// Package lifecycle holds the ticket status state machine, the audit diff
// engine and SLA evaluation. Everything here is pure: callers pass the clock.
package lifecycle

import (
	"time"

	"github.com/studiodesk/support-tickets/internal/domain"
	apperrors "github.com/studiodesk/support-tickets/pkg/util/errorutil"
)

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew: {
		domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusPendingCustomer,
		domain.TicketStatusResolved, domain.TicketStatusClosed,
	},
	domain.TicketStatusAssigned: {
		domain.TicketStatusNew, domain.TicketStatusInProgress, domain.TicketStatusPendingCustomer,
		domain.TicketStatusResolved, domain.TicketStatusClosed,
	},
	domain.TicketStatusInProgress: {
		domain.TicketStatusAssigned, domain.TicketStatusPendingCustomer,
		domain.TicketStatusResolved, domain.TicketStatusClosed,
	},
	domain.TicketStatusPendingCustomer: {
		domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed,
	},
	domain.TicketStatusResolved: {
		domain.TicketStatusInProgress, domain.TicketStatusClosed, domain.TicketStatusReopened,
	},
	domain.TicketStatusClosed: {
		domain.TicketStatusReopened,
	},
	domain.TicketStatusReopened: {
		domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusPendingCustomer,
		domain.TicketStatusResolved, domain.TicketStatusClosed,
	},
}

// CanTransition reports whether a ticket in current may move to next.
func CanTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseStatus validates a raw status string from a request body.
func ParseStatus(raw string) (domain.TicketStatus, error) {
	status := domain.TicketStatus(raw)
	if !status.Valid() {
		return "", apperrors.NewValidationError("unknown status", map[string]any{
			"status":  raw,
			"allowed": domain.TicketStatuses,
		})
	}
	return status, nil
}

// Transition moves t to next and stamps lifecycle timestamps. It returns the
// timestamp fields it touched so the audit trail can include them. Setting the
// current status again is a no-op.
func Transition(t *domain.Ticket, next domain.TicketStatus, now time.Time) ([]domain.TicketField, error) {
	if !next.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": string(next)})
	}
	if t.Status == next {
		return nil, nil
	}
	if !CanTransition(t.Status, next) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": t.Status,
			"to":   next,
		})
	}

	var stamped []domain.TicketField
	stamp := func(field **time.Time, name domain.TicketField) {
		if *field == nil {
			ts := now
			*field = &ts
			stamped = append(stamped, name)
		}
	}

	switch next {
	case domain.TicketStatusInProgress, domain.TicketStatusPendingCustomer:
		stamp(&t.FirstResponseAt, domain.FieldFirstResponseAt)
	case domain.TicketStatusResolved:
		stamp(&t.FirstResponseAt, domain.FieldFirstResponseAt)
		stamp(&t.ResolvedAt, domain.FieldResolvedAt)
	case domain.TicketStatusClosed:
		stamp(&t.ResolvedAt, domain.FieldResolvedAt)
		stamp(&t.ClosedAt, domain.FieldClosedAt)
	case domain.TicketStatusReopened:
		ts := now
		t.ReopenedAt = &ts
		stamped = append(stamped, domain.FieldReopenedAt)
		if t.ResolvedAt != nil {
			t.ResolvedAt = nil
			stamped = append(stamped, domain.FieldResolvedAt)
		}
		if t.ClosedAt != nil {
			t.ClosedAt = nil
			stamped = append(stamped, domain.FieldClosedAt)
		}
	}
	t.Status = next
	return stamped, nil
}

// Close moves t to closed the way the owner close path does: resolvedAt and
// closedAt are both set to now regardless of earlier values. Closing a closed
// ticket re-stamps both.
func Close(t *domain.Ticket, now time.Time) ([]domain.TicketField, error) {
	if t.Status != domain.TicketStatusClosed && !CanTransition(t.Status, domain.TicketStatusClosed) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": t.Status,
			"to":   domain.TicketStatusClosed,
		})
	}
	resolved, closed := now, now
	t.ResolvedAt = &resolved
	t.ClosedAt = &closed
	t.Status = domain.TicketStatusClosed
	return []domain.TicketField{domain.FieldResolvedAt, domain.FieldClosedAt}, nil
}
