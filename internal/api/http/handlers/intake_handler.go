package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/studiodesk/support-tickets/internal/api/dto"
	"github.com/studiodesk/support-tickets/internal/intake"
	"github.com/studiodesk/support-tickets/internal/service"
	apperrors "github.com/studiodesk/support-tickets/pkg/util/errorutil"
)

// IdempotencyKeyHeader lets webhook senders mark redeliveries.
const IdempotencyKeyHeader = "Idempotency-Key"

// IntakeWorkflow is the intake behaviour the handler needs.
type IntakeWorkflow interface {
	IngestWebhook(ctx context.Context, key string, payload map[string]any, idempotencyKey string) (*service.WebhookResult, error)
	ClassifyEmail(ctx context.Context, subject, body string) (*service.EmailClassification, error)
	ImportEmail(ctx context.Context, actorID string, messages []intake.RawMessage) ([]service.ImportedTicket, error)
}

// IntakeHandler exposes the public webhook endpoint and email integration.
type IntakeHandler struct {
	intake    IntakeWorkflow
	validator *validator.Validate
}

// NewIntakeHandler constructs handler.
func NewIntakeHandler(workflow IntakeWorkflow, v *validator.Validate) *IntakeHandler {
	return &IntakeHandler{intake: workflow, validator: v}
}

// Webhook handles POST /webhooks/:key. The body is any JSON object.
func (h *IntakeHandler) Webhook(c *fiber.Ctx) error {
	payload, err := decodeWebhookPayload(c.Body())
	if err != nil {
		return apperrors.NewValidationError("webhook body must be a JSON object", nil)
	}

	result, err := h.intake.IngestWebhook(c.UserContext(), c.Params("key"), payload, c.Get(IdempotencyKeyHeader))
	if err != nil {
		return err
	}
	switch result.Outcome {
	case service.WebhookAccepted:
		return c.Status(http.StatusAccepted).JSON(dto.WebhookAcceptedResponse{
			Accepted: true,
			RuleID:   result.Rule.ID,
			Message:  "rule is not processed automatically; no ticket created",
		})
	case service.WebhookDuplicate:
		return c.Status(http.StatusOK).JSON(dto.WebhookTicketResponse{
			Ticket:    dto.NewTicketRef(result.Ticket),
			Duplicate: true,
		})
	default:
		return c.Status(http.StatusCreated).JSON(dto.WebhookTicketResponse{Ticket: dto.NewTicketRef(result.Ticket)})
	}
}

// decodeWebhookPayload parses an arbitrary JSON object. Numbers stay
// json.Number so large integer ids survive storage unchanged.
func decodeWebhookPayload(body []byte) (map[string]any, error) {
	payload := map[string]any{}
	if len(bytes.TrimSpace(body)) == 0 {
		return payload, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON object")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

// ClassifyEmail handles POST /integrations/email/classify.
func (h *IntakeHandler) ClassifyEmail(c *fiber.Ctx) error {
	var req dto.ClassifyEmailRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	result, err := h.intake.ClassifyEmail(c.UserContext(), req.Subject, req.Body)
	if err != nil {
		return err
	}
	return c.JSON(dto.ClassifyEmailResponse{Matched: result.Matched, Rule: result.Rule})
}

// ImportEmail handles POST /integrations/email/import.
func (h *IntakeHandler) ImportEmail(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.ImportEmailRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	imported, err := h.intake.ImportEmail(c.UserContext(), p.ID(), req.ToRawMessages())
	if err != nil {
		return err
	}
	items := make([]dto.ImportedTicketResponse, 0, len(imported))
	for _, item := range imported {
		items = append(items, dto.ImportedTicketResponse{
			MessageID:    item.MessageID,
			TicketID:     item.Ticket.ID,
			TicketNumber: item.Ticket.TicketNumber,
			Title:        item.Ticket.Title,
			Status:       item.Ticket.Status,
			RuleID:       item.RuleID,
		})
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": items})
}
