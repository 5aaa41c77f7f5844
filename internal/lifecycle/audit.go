package lifecycle

import (
	"time"

	"github.com/studiodesk/support-tickets/internal/domain"
)

// CreatedEntry builds the single history row written when a ticket is created.
func CreatedEntry(t *domain.Ticket, actorID *string, now time.Time) domain.TicketHistory {
	field := domain.FieldStatus
	marker := domain.TicketCreatedMarker
	return domain.TicketHistory{
		TicketID:        t.ID,
		ChangedByUserID: actorID,
		Action:          domain.HistoryActionCreated,
		FieldChanged:    &field,
		NewValue:        &marker,
		CreatedAt:       now,
	}
}

// Diff compares before and after on each of fields and returns one updated
// row per field whose stringified value differs. Unset and empty-string are
// different values. Duplicate field names are diffed once.
func Diff(before, after *domain.Ticket, fields []domain.TicketField, actorID *string, now time.Time) []domain.TicketHistory {
	seen := make(map[domain.TicketField]struct{}, len(fields))
	var entries []domain.TicketHistory
	for _, field := range fields {
		if _, dup := seen[field]; dup {
			continue
		}
		seen[field] = struct{}{}

		oldValue := before.StringValue(field)
		newValue := after.StringValue(field)
		if sameValue(oldValue, newValue) {
			continue
		}
		f := field
		entries = append(entries, domain.TicketHistory{
			TicketID:        after.ID,
			ChangedByUserID: actorID,
			Action:          domain.HistoryActionUpdated,
			FieldChanged:    &f,
			OldValue:        oldValue,
			NewValue:        newValue,
			CreatedAt:       now,
		})
	}
	return entries
}

func sameValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
