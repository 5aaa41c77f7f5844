package events

import (
	"time"

	"github.com/studiodesk/support-tickets/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketClosed        EventType = "ticket_closed"
	EventSettingsChanged     EventType = "integration_settings_changed"
)

// AllEventTypes lists every type a forwarder should subscribe to.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketUpdated,
	EventTicketStatusChanged,
	EventTicketClosed,
	EventSettingsChanged,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	ActorID   *string     `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	StudioID     string                `json:"studio_id"`
	CategoryID   string                `json:"category_id"`
	Priority     domain.TicketPriority `json:"priority"`
	Source       domain.TicketSource   `json:"source"`
	Status       domain.TicketStatus   `json:"status"`
	Origin       domain.OriginKind     `json:"origin"`
	Title        string                `json:"title"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	Fields []domain.TicketField `json:"fields"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	ResolutionSummary string `json:"resolution_summary"`
	SLABreached       bool   `json:"sla_breached"`
}

// SettingsChangedPayload payload.
type SettingsChangedPayload struct {
	Section string `json:"section"`
	Version int64  `json:"version"`
}
