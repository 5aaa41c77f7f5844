package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/studiodesk/support-tickets/internal/api/dto"
	"github.com/studiodesk/support-tickets/internal/service"
)

// SettingsHandler exposes the integration settings document.
type SettingsHandler struct {
	settings  *service.SettingsService
	validator *validator.Validate
}

// NewSettingsHandler constructs handler.
func NewSettingsHandler(settings *service.SettingsService, v *validator.Validate) *SettingsHandler {
	return &SettingsHandler{settings: settings, validator: v}
}

// Get handles GET /settings/integrations.
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	doc, err := h.settings.Get(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIntegrationSettingsResponse(doc)})
}

// SaveWebhooks handles PUT /settings/integrations/webhooks.
func (h *SettingsHandler) SaveWebhooks(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.SaveWebhookSettingsRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	doc, err := h.settings.SaveWebhooks(c.UserContext(), p.ID(), service.WebhookSettingsInput{
		Enabled: req.Enabled,
		Rules:   req.Rules,
		Version: *req.Version,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIntegrationSettingsResponse(doc)})
}

// SaveEmail handles PUT /settings/integrations/email.
func (h *SettingsHandler) SaveEmail(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.SaveEmailSettingsRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	doc, err := h.settings.SaveEmail(c.UserContext(), p.ID(), service.EmailSettingsInput{
		Enabled:           req.Enabled,
		ConnectedAccounts: req.ConnectedAccounts,
		Rules:             req.Rules,
		Version:           *req.Version,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIntegrationSettingsResponse(doc)})
}
