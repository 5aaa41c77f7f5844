package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// OriginKind tags where a ticket's provenance metadata came from.
type OriginKind string

const (
	OriginManual      OriginKind = "manual"
	OriginWebhook     OriginKind = "webhook"
	OriginEmailImport OriginKind = "gmailImport"
)

// WebhookOrigin is stamped on tickets created by the public webhook endpoint.
type WebhookOrigin struct {
	RuleID         string         `json:"webhookRuleId"`
	RuleName       string         `json:"webhookRuleName,omitempty"`
	IdempotencyKey string         `json:"idempotencyKey,omitempty"`
	Payload        map[string]any `json:"webhookPayload,omitempty"`
}

// EmailImportOrigin is stamped on tickets created from an imported mailbox message.
type EmailImportOrigin struct {
	MessageID  string     `json:"gmailMessageId"`
	ThreadID   string     `json:"gmailThreadId,omitempty"`
	From       string     `json:"gmailFrom,omitempty"`
	RuleID     string     `json:"emailRuleId,omitempty"`
	ReceivedAt *time.Time `json:"gmailReceivedAt,omitempty"`
}

// ManualOrigin carries the free-form fields a staff member filled in.
type ManualOrigin struct {
	Fields map[string]any `json:"fields,omitempty"`
}

// Origin is the tagged union stored as the ticket's dynamic field data.
// Exactly one variant matches Kind; the zero value is a manual origin.
type Origin struct {
	Kind    OriginKind
	Webhook *WebhookOrigin
	Email   *EmailImportOrigin
	Manual  *ManualOrigin
}

// NewWebhookOrigin wraps webhook provenance.
func NewWebhookOrigin(o WebhookOrigin) Origin {
	return Origin{Kind: OriginWebhook, Webhook: &o}
}

// NewEmailImportOrigin wraps mailbox provenance.
func NewEmailImportOrigin(o EmailImportOrigin) Origin {
	return Origin{Kind: OriginEmailImport, Email: &o}
}

// NewManualOrigin wraps form field data.
func NewManualOrigin(fields map[string]any) Origin {
	return Origin{Kind: OriginManual, Manual: &ManualOrigin{Fields: fields}}
}

// MarshalJSON flattens the active variant and adds an "origin" discriminator.
func (o Origin) MarshalJSON() ([]byte, error) {
	var variant any
	switch o.Kind {
	case OriginWebhook:
		variant = o.Webhook
	case OriginEmailImport:
		variant = o.Email
	default:
		variant = o.Manual
	}
	fields := map[string]any{}
	if variant != nil {
		raw, err := json.Marshal(variant)
		if err != nil {
			return nil, err
		}
		if string(raw) != "null" {
			if err := json.Unmarshal(raw, &fields); err != nil {
				return nil, err
			}
		}
	}
	kind := o.Kind
	if kind == "" {
		kind = OriginManual
	}
	fields["origin"] = kind
	return json.Marshal(fields)
}

// UnmarshalJSON reads the discriminator and decodes the matching variant.
func (o *Origin) UnmarshalJSON(data []byte) error {
	if string(data) == "null" || len(data) == 0 {
		*o = Origin{Kind: OriginManual}
		return nil
	}
	var head struct {
		Kind OriginKind `json:"origin"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	switch head.Kind {
	case OriginWebhook:
		var w WebhookOrigin
		if err := decodeNumbers(data, &w); err != nil {
			return err
		}
		*o = NewWebhookOrigin(w)
	case OriginEmailImport:
		var e EmailImportOrigin
		if err := decodeNumbers(data, &e); err != nil {
			return err
		}
		*o = NewEmailImportOrigin(e)
	case OriginManual, "":
		var m ManualOrigin
		if err := decodeNumbers(data, &m); err != nil {
			return err
		}
		*o = Origin{Kind: OriginManual, Manual: &m}
	default:
		return fmt.Errorf("unknown ticket origin %q", head.Kind)
	}
	return nil
}

// String renders the canonical JSON form used by the audit trail.
func (o Origin) String() string {
	raw, err := json.Marshal(o)
	if err != nil {
		return ""
	}
	return string(raw)
}

// Clone copies the variant and its top-level maps.
func (o Origin) Clone() Origin {
	c := Origin{Kind: o.Kind}
	if o.Webhook != nil {
		w := *o.Webhook
		w.Payload = cloneMap(o.Webhook.Payload)
		c.Webhook = &w
	}
	if o.Email != nil {
		e := *o.Email
		e.ReceivedAt = cloneTime(o.Email.ReceivedAt)
		c.Email = &e
	}
	if o.Manual != nil {
		c.Manual = &ManualOrigin{Fields: cloneMap(o.Manual.Fields)}
	}
	return c
}

// decodeNumbers unmarshals data keeping free-form numbers as json.Number.
func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
