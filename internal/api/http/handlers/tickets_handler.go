package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/studiodesk/support-tickets/internal/api/dto"
	"github.com/studiodesk/support-tickets/internal/domain"
	"github.com/studiodesk/support-tickets/internal/service"
	apperrors "github.com/studiodesk/support-tickets/pkg/util/errorutil"
)

// TicketWorkflow is the ticket behaviour the handler needs.
type TicketWorkflow interface {
	CreateManual(ctx context.Context, actorID string, input service.ManualTicketInput) (*domain.Ticket, error)
	Get(ctx context.Context, ticketID string) (*domain.Ticket, error)
	List(ctx context.Context, filter service.TicketListFilter) ([]domain.Ticket, error)
	ListHistory(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketHistory, error)
	Update(ctx context.Context, actorID, ticketID string, patch domain.TicketPatch) (*domain.Ticket, error)
	UpdateStatusAsOwner(ctx context.Context, actorID, ticketID, rawStatus string) (*domain.Ticket, error)
	CloseAsOwner(ctx context.Context, actorID, ticketID, resolutionSummary string) (*domain.Ticket, error)
}

// TicketsHandler manages staff ticket endpoints.
type TicketsHandler struct {
	tickets   TicketWorkflow
	validator *validator.Validate
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets TicketWorkflow, v *validator.Validate) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, validator: v}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.CreateManual(c.UserContext(), p.ID(), service.ManualTicketInput{
		Title:            req.Title,
		Description:      req.Description,
		StudioID:         req.StudioID,
		CategoryID:       req.CategoryID,
		SubcategoryID:    req.SubcategoryID,
		Priority:         req.Priority,
		Source:           req.Source,
		AssignedToUserID: req.AssignedToUserID,
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		CustomerPhone:    req.CustomerPhone,
		Fields:           req.Fields,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	query := parseTicketQuery(c)
	tickets, err := h.tickets.List(c.UserContext(), service.TicketListFilter{
		StudioID:   query.StudioID,
		AssigneeID: query.AssigneeID,
		Statuses:   query.Statuses,
		Priorities: query.Priorities,
		SearchTerm: query.SearchTerm,
		Limit:      query.PageSize,
		Offset:     (query.Page - 1) * query.PageSize,
	})
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items, "page": query.Page, "page_size": query.PageSize})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 100)
	rows, err := h.tickets.ListHistory(c.UserContext(), c.Params("id"), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.HistoryEntryResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.NewHistoryEntryResponse(row))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateTicket PATCH /tickets/:id. Keys present in the body are updated; an
// explicit null clears a nullable field.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var patch domain.TicketPatch
	if err := c.BodyParser(&patch); err != nil {
		return apperrors.NewValidationError("invalid payload", map[string]any{"body": err.Error()})
	}
	ticket, err := h.tickets.Update(c.UserContext(), p.ID(), c.Params("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// UpdateStatusOwner PATCH /tickets/:id/status-owner.
func (h *TicketsHandler) UpdateStatusOwner(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusOwnerRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.UpdateStatusAsOwner(c.UserContext(), p.ID(), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// CloseOwner POST /tickets/:id/close-owner.
func (h *TicketsHandler) CloseOwner(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CloseOwnerRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.CloseAsOwner(c.UserContext(), p.ID(), c.Params("id"), req.ResolutionSummary)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

func parseTicketQuery(c *fiber.Ctx) dto.TicketListQuery {
	query := dto.TicketListQuery{}
	if studioID := c.Query("studio_id"); studioID != "" {
		query.StudioID = &studioID
	}
	if assignee := c.Query("assignee_id"); assignee != "" {
		query.AssigneeID = &assignee
	}
	if statuses := c.Query("status"); statuses != "" {
		for _, part := range strings.Split(statuses, ",") {
			query.Statuses = append(query.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorities := c.Query("priority"); priorities != "" {
		for _, part := range strings.Split(priorities, ",") {
			query.Priorities = append(query.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if search := c.Query("search"); search != "" {
		query.SearchTerm = &search
	}
	query.Page = parseInt(c.Query("page"), 1)
	query.PageSize = parseInt(c.Query("page_size"), 20)
	if query.PageSize > 100 {
		query.PageSize = 100
	}
	return query
}
