package dto

import (
	"time"

	"github.com/studiodesk/support-tickets/internal/domain"
)

// CreateTicketRequest payload for manual creation.
type CreateTicketRequest struct {
	Title            string                `json:"title" validate:"required,max=255"`
	Description      string                `json:"description" validate:"max=10000"`
	StudioID         *string               `json:"studioId" validate:"omitempty,uuid"`
	CategoryID       *string               `json:"categoryId" validate:"omitempty,uuid"`
	SubcategoryID    *string               `json:"subcategoryId" validate:"omitempty,uuid"`
	Priority         domain.TicketPriority `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Source           domain.TicketSource   `json:"source"`
	AssignedToUserID *string               `json:"assignedToUserId" validate:"omitempty,uuid"`
	CustomerName     *string               `json:"customerName" validate:"omitempty,max=255"`
	CustomerEmail    *string               `json:"customerEmail" validate:"omitempty,email"`
	CustomerPhone    *string               `json:"customerPhone" validate:"omitempty,max=64"`
	Fields           map[string]any        `json:"fields"`
}

// UpdateStatusOwnerRequest payload. Status is checked against the known set
// by the lifecycle package so the error lists the allowed values.
type UpdateStatusOwnerRequest struct {
	Status string `json:"status" validate:"required"`
}

// CloseOwnerRequest payload.
type CloseOwnerRequest struct {
	ResolutionSummary string `json:"resolutionSummary" validate:"required"`
}

// TicketListQuery captures query filters for listing.
type TicketListQuery struct {
	StudioID   *string
	AssigneeID *string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	SearchTerm *string
	Page       int
	PageSize   int
}

// TicketRef is the compact ticket reference returned by intake endpoints.
type TicketRef struct {
	ID           string `json:"id"`
	TicketNumber string `json:"ticketNumber"`
	Title        string `json:"title"`
}

// TicketResponse provides full ticket info.
type TicketResponse struct {
	ID                string                `json:"id"`
	TicketNumber      string                `json:"ticketNumber"`
	StudioID          string                `json:"studioId"`
	CategoryID        string                `json:"categoryId"`
	SubcategoryID     *string               `json:"subcategoryId"`
	Priority          domain.TicketPriority `json:"priority"`
	Source            domain.TicketSource   `json:"source"`
	AssignedToUserID  *string               `json:"assignedToUserId"`
	ReportedByUserID  *string               `json:"reportedByUserId"`
	Status            domain.TicketStatus   `json:"status"`
	Title             string                `json:"title"`
	Description       string                `json:"description"`
	CustomerName      *string               `json:"customerName"`
	CustomerEmail     *string               `json:"customerEmail"`
	CustomerPhone     *string               `json:"customerPhone"`
	DynamicFieldData  domain.Origin         `json:"dynamicFieldData"`
	SLADueAt          *time.Time            `json:"slaDueAt"`
	SLABreached       bool                  `json:"slaBreached"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
	FirstResponseAt   *time.Time            `json:"firstResponseAt"`
	ResolvedAt        *time.Time            `json:"resolvedAt"`
	ClosedAt          *time.Time            `json:"closedAt"`
	ReopenedAt        *time.Time            `json:"reopenedAt"`
	ResolutionSummary *string               `json:"resolutionSummary"`
}

// HistoryEntryResponse is one audit row.
type HistoryEntryResponse struct {
	ID              string               `json:"id"`
	TicketID        string               `json:"ticketId"`
	ChangedByUserID *string              `json:"changedByUserId"`
	Action          domain.HistoryAction `json:"action"`
	FieldChanged    *domain.TicketField  `json:"fieldChanged"`
	OldValue        *string              `json:"oldValue"`
	NewValue        *string              `json:"newValue"`
	CreatedAt       time.Time            `json:"createdAt"`
}

// NewTicketRef maps a ticket to its compact reference.
func NewTicketRef(t *domain.Ticket) TicketRef {
	return TicketRef{ID: t.ID, TicketNumber: t.TicketNumber, Title: t.Title}
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                t.ID,
		TicketNumber:      t.TicketNumber,
		StudioID:          t.StudioID,
		CategoryID:        t.CategoryID,
		SubcategoryID:     t.SubcategoryID,
		Priority:          t.Priority,
		Source:            t.Source,
		AssignedToUserID:  t.AssignedToUserID,
		ReportedByUserID:  t.ReportedByUserID,
		Status:            t.Status,
		Title:             t.Title,
		Description:       t.Description,
		CustomerName:      t.CustomerName,
		CustomerEmail:     t.CustomerEmail,
		CustomerPhone:     t.CustomerPhone,
		DynamicFieldData:  t.Origin,
		SLADueAt:          t.SLADueAt,
		SLABreached:       t.SLABreached,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
		FirstResponseAt:   t.FirstResponseAt,
		ResolvedAt:        t.ResolvedAt,
		ClosedAt:          t.ClosedAt,
		ReopenedAt:        t.ReopenedAt,
		ResolutionSummary: t.ResolutionSummary,
	}
}

// NewHistoryEntryResponse maps an audit row.
func NewHistoryEntryResponse(h domain.TicketHistory) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:              h.ID,
		TicketID:        h.TicketID,
		ChangedByUserID: h.ChangedByUserID,
		Action:          h.Action,
		FieldChanged:    h.FieldChanged,
		OldValue:        h.OldValue,
		NewValue:        h.NewValue,
		CreatedAt:       h.CreatedAt,
	}
}
