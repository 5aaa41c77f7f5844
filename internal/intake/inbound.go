package intake

import (
	"net/mail"
	"strings"
	"time"
)

// WebhookFields are the ticket fields recognised in an arbitrary webhook body.
type WebhookFields struct {
	Title         string
	Description   string
	CustomerEmail string
	CustomerName  string
	CustomerPhone string
}

// ExtractWebhookFields reads the first non-blank string among each field's
// accepted aliases.
func ExtractWebhookFields(payload map[string]any) WebhookFields {
	return WebhookFields{
		Title:         firstString(payload, "title", "subject"),
		Description:   firstString(payload, "description", "body", "message"),
		CustomerEmail: firstString(payload, "customerEmail", "email"),
		CustomerName:  firstString(payload, "customerName", "name"),
		CustomerPhone: firstString(payload, "customerPhone", "phone"),
	}
}

func firstString(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := payload[key].(string); ok {
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// RawMessage is one mailbox message handed to the import endpoint.
type RawMessage struct {
	ID         string
	ThreadID   string
	From       string
	Subject    string
	Body       string
	Snippet    string
	ReceivedAt *time.Time
}

// Content returns the body, falling back to the snippet.
func (m RawMessage) Content() string {
	if strings.TrimSpace(m.Body) != "" {
		return strings.TrimSpace(m.Body)
	}
	return strings.TrimSpace(m.Snippet)
}

// Sender splits the From header into display name and address. Unparseable
// headers are returned verbatim as the address when they look like one.
func (m RawMessage) Sender() (name, address string) {
	from := strings.TrimSpace(m.From)
	if from == "" {
		return "", ""
	}
	parsed, err := mail.ParseAddress(from)
	if err != nil {
		if strings.Contains(from, "@") {
			return "", from
		}
		return from, ""
	}
	return parsed.Name, parsed.Address
}
