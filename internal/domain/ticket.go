package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew             TicketStatus = "new"
	TicketStatusAssigned        TicketStatus = "assigned"
	TicketStatusInProgress      TicketStatus = "in_progress"
	TicketStatusPendingCustomer TicketStatus = "pending_customer"
	TicketStatusResolved        TicketStatus = "resolved"
	TicketStatusClosed          TicketStatus = "closed"
	TicketStatusReopened        TicketStatus = "reopened"
)

// TicketStatuses lists every known status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusAssigned,
	TicketStatusInProgress,
	TicketStatusPendingCustomer,
	TicketStatusResolved,
	TicketStatusClosed,
	TicketStatusReopened,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, known := range TicketStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsSettled reports whether the ticket no longer accrues SLA time.
func (s TicketStatus) IsSettled() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// TicketSource records the channel a ticket arrived through.
type TicketSource string

const (
	TicketSourceInPerson TicketSource = "in-person"
	TicketSourcePhone    TicketSource = "phone"
	TicketSourceEmail    TicketSource = "email"
	TicketSourceApp      TicketSource = "app"
	TicketSourceWebsite  TicketSource = "website"
	TicketSourceWebhook  TicketSource = "webhook"
	TicketSourceMomence  TicketSource = "momence"
	TicketSourceSocial   TicketSource = "social"
	TicketSourceOther    TicketSource = "other"
)

// Valid reports whether s is a known source.
func (s TicketSource) Valid() bool {
	switch s {
	case TicketSourceInPerson, TicketSourcePhone, TicketSourceEmail, TicketSourceApp,
		TicketSourceWebsite, TicketSourceWebhook, TicketSourceMomence, TicketSourceSocial, TicketSourceOther:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID           string
	TicketNumber string

	StudioID      string
	CategoryID    string
	SubcategoryID *string
	Priority      TicketPriority
	Source        TicketSource

	AssignedToUserID *string
	ReportedByUserID *string

	Status TicketStatus

	Title         string
	Description   string
	CustomerName  *string
	CustomerEmail *string
	CustomerPhone *string
	Origin        Origin

	SLADueAt    *time.Time
	SLABreached bool

	CreatedAt       time.Time
	UpdatedAt       time.Time
	FirstResponseAt *time.Time
	ResolvedAt      *time.Time
	ClosedAt        *time.Time
	ReopenedAt      *time.Time

	ResolutionSummary *string
}

// Clone returns a deep copy so callers can diff before/after snapshots.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	c := *t
	c.SubcategoryID = cloneString(t.SubcategoryID)
	c.AssignedToUserID = cloneString(t.AssignedToUserID)
	c.ReportedByUserID = cloneString(t.ReportedByUserID)
	c.CustomerName = cloneString(t.CustomerName)
	c.CustomerEmail = cloneString(t.CustomerEmail)
	c.CustomerPhone = cloneString(t.CustomerPhone)
	c.SLADueAt = cloneTime(t.SLADueAt)
	c.FirstResponseAt = cloneTime(t.FirstResponseAt)
	c.ResolvedAt = cloneTime(t.ResolvedAt)
	c.ClosedAt = cloneTime(t.ClosedAt)
	c.ReopenedAt = cloneTime(t.ReopenedAt)
	c.ResolutionSummary = cloneString(t.ResolutionSummary)
	c.Origin = t.Origin.Clone()
	return &c
}

// IsOwnedBy reports whether userID is the explicitly assigned owner.
func (t *Ticket) IsOwnedBy(userID string) bool {
	return t.AssignedToUserID != nil && userID != "" && *t.AssignedToUserID == userID
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
