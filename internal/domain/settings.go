package domain

import "time"

// IntegrationSettings is the single persisted configuration document that owns
// the inbound rule sets and channel toggles.
type IntegrationSettings struct {
	UI       UISettings       `json:"ui"`
	Mailtrap MailtrapSettings `json:"mailtrap"`
	Webhooks WebhookSettings  `json:"webhooks"`
	Email    EmailSettings    `json:"email"`

	// Version is the optimistic concurrency token; it is stored beside the
	// document rather than inside it.
	Version   int64     `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// UISettings holds presentation preferences for the staff console.
type UISettings struct {
	Theme          string `json:"theme"`
	TicketsPerPage int    `json:"ticketsPerPage"`
	ShowSLABadges  bool   `json:"showSlaBadges"`
}

// MailtrapSettings configures outbound notification mail.
type MailtrapSettings struct {
	Enabled     bool   `json:"enabled"`
	APIToken    string `json:"apiToken"`
	InboxID     string `json:"inboxId"`
	SenderEmail string `json:"senderEmail"`
}

// WebhookSettings toggles the public ingestion endpoint and lists its rules.
type WebhookSettings struct {
	Enabled bool          `json:"enabled"`
	Rules   []WebhookRule `json:"rules"`
}

// EmailSettings toggles mailbox import and lists its keyword rules.
type EmailSettings struct {
	Enabled           bool               `json:"enabled"`
	ConnectedAccounts []ConnectedAccount `json:"connectedAccounts"`
	Rules             []EmailRule        `json:"rules"`
}

// ConnectedAccount is a mailbox authorised for import.
type ConnectedAccount struct {
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName,omitempty"`
	ConnectedAt *time.Time `json:"connectedAt,omitempty"`
}

// WebhookRule maps a bearer key on the public endpoint to default classification.
type WebhookRule struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Key                  string         `json:"key"`
	IsActive             bool           `json:"isActive"`
	DefaultStudioID      *string        `json:"defaultStudioId,omitempty"`
	DefaultCategoryID    *string        `json:"defaultCategoryId,omitempty"`
	DefaultPriority      TicketPriority `json:"defaultPriority"`
	ProcessAutomatically bool           `json:"processAutomatically"`
	AssignToUserID       *string        `json:"assignToUserId,omitempty"`
}

// EmailRule maps keyword hits in an inbound message to classification.
type EmailRule struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	MatchKeywords  []string       `json:"matchKeywords"`
	CategoryID     *string        `json:"categoryId,omitempty"`
	SubcategoryID  *string        `json:"subcategoryId,omitempty"`
	Priority       TicketPriority `json:"priority"`
	AutoProcess    bool           `json:"autoProcess"`
	AssignToUserID *string        `json:"assignToUserId,omitempty"`
}

// DefaultIntegrationSettings returns the hardcoded defaults every stored
// document is merged onto.
func DefaultIntegrationSettings() IntegrationSettings {
	return IntegrationSettings{
		UI: UISettings{
			Theme:          "light",
			TicketsPerPage: 25,
			ShowSLABadges:  true,
		},
		Mailtrap: MailtrapSettings{},
		Webhooks: WebhookSettings{
			Enabled: false,
			Rules:   []WebhookRule{},
		},
		Email: EmailSettings{
			Enabled:           false,
			ConnectedAccounts: []ConnectedAccount{},
			Rules:             []EmailRule{},
		},
	}
}

// Normalize replaces nil collections and empty priorities left behind by a
// partially written document.
func (s *IntegrationSettings) Normalize() {
	if s.Webhooks.Rules == nil {
		s.Webhooks.Rules = []WebhookRule{}
	}
	if s.Email.Rules == nil {
		s.Email.Rules = []EmailRule{}
	}
	if s.Email.ConnectedAccounts == nil {
		s.Email.ConnectedAccounts = []ConnectedAccount{}
	}
	for i := range s.Webhooks.Rules {
		if s.Webhooks.Rules[i].DefaultPriority == "" {
			s.Webhooks.Rules[i].DefaultPriority = TicketPriorityMedium
		}
	}
	for i := range s.Email.Rules {
		if s.Email.Rules[i].Priority == "" {
			s.Email.Rules[i].Priority = TicketPriorityMedium
		}
		if s.Email.Rules[i].MatchKeywords == nil {
			s.Email.Rules[i].MatchKeywords = []string{}
		}
	}
}
