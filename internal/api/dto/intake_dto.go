package dto

import (
	"time"

	"github.com/studiodesk/support-tickets/internal/domain"
	"github.com/studiodesk/support-tickets/internal/intake"
)

// WebhookTicketResponse is returned when a webhook delivery produced a ticket.
type WebhookTicketResponse struct {
	Ticket    TicketRef `json:"ticket"`
	Duplicate bool      `json:"duplicate,omitempty"`
}

// WebhookAcceptedResponse is returned when the rule is held for manual review.
type WebhookAcceptedResponse struct {
	Accepted bool   `json:"accepted"`
	RuleID   string `json:"ruleId"`
	Message  string `json:"message"`
}

// ClassifyEmailRequest payload.
type ClassifyEmailRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ClassifyEmailResponse payload.
type ClassifyEmailResponse struct {
	Matched bool              `json:"matched"`
	Rule    *domain.EmailRule `json:"rule"`
}

// RawMessageRequest is one mailbox message to import.
type RawMessageRequest struct {
	ID         string     `json:"id" validate:"required"`
	ThreadID   string     `json:"threadId"`
	From       string     `json:"from"`
	Subject    string     `json:"subject"`
	Body       string     `json:"body"`
	Snippet    string     `json:"snippet"`
	ReceivedAt *time.Time `json:"receivedAt"`
}

// ImportEmailRequest payload.
type ImportEmailRequest struct {
	Messages []RawMessageRequest `json:"messages" validate:"required,min=1,max=100,dive"`
}

// ImportedTicketResponse summarises one imported message.
type ImportedTicketResponse struct {
	MessageID    string              `json:"messageId"`
	TicketID     string              `json:"ticketId"`
	TicketNumber string              `json:"ticketNumber"`
	Title        string              `json:"title"`
	Status       domain.TicketStatus `json:"status"`
	RuleID       *string             `json:"ruleId"`
}

// ToRawMessages converts the request to intake messages.
func (r ImportEmailRequest) ToRawMessages() []intake.RawMessage {
	out := make([]intake.RawMessage, 0, len(r.Messages))
	for _, m := range r.Messages {
		out = append(out, intake.RawMessage{
			ID:         m.ID,
			ThreadID:   m.ThreadID,
			From:       m.From,
			Subject:    m.Subject,
			Body:       m.Body,
			Snippet:    m.Snippet,
			ReceivedAt: m.ReceivedAt,
		})
	}
	return out
}
