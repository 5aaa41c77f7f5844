package domain

import "time"

// HistoryAction captures what kind of mutation a history entry records.
type HistoryAction string

const (
	HistoryActionCreated HistoryAction = "created"
	HistoryActionUpdated HistoryAction = "updated"
)

// TicketCreatedMarker is the new value written on the creation entry.
const TicketCreatedMarker = "Ticket created"

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID              string
	TicketID        string
	ChangedByUserID *string
	Action          HistoryAction
	FieldChanged    *TicketField
	OldValue        *string
	NewValue        *string
	CreatedAt       time.Time
}
