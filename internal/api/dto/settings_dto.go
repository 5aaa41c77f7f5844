package dto

import (
	"time"

	"github.com/studiodesk/support-tickets/internal/domain"
)

// SaveWebhookSettingsRequest replaces the webhook section.
type SaveWebhookSettingsRequest struct {
	Enabled bool                 `json:"enabled"`
	Rules   []domain.WebhookRule `json:"rules" validate:"max=200"`
	Version *int64               `json:"version" validate:"required,min=0"`
}

// SaveEmailSettingsRequest replaces the email section.
type SaveEmailSettingsRequest struct {
	Enabled           bool                      `json:"enabled"`
	ConnectedAccounts []domain.ConnectedAccount `json:"connectedAccounts"`
	Rules             []domain.EmailRule        `json:"rules" validate:"max=200"`
	Version           *int64                    `json:"version" validate:"required,min=0"`
}

// IntegrationSettingsResponse wraps the document with its version.
type IntegrationSettingsResponse struct {
	domain.IntegrationSettings
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewIntegrationSettingsResponse maps the settings document.
func NewIntegrationSettingsResponse(s *domain.IntegrationSettings) IntegrationSettingsResponse {
	return IntegrationSettingsResponse{IntegrationSettings: *s, Version: s.Version, UpdatedAt: s.UpdatedAt}
}
