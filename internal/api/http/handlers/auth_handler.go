package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/studiodesk/support-tickets/internal/api/dto"
	"github.com/studiodesk/support-tickets/internal/service"
)

// AuthHandler exposes staff login.
type AuthHandler struct {
	authService *service.AuthService
	validator   *validator.Validate
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, v *validator.Validate) *AuthHandler {
	return &AuthHandler{authService: authService, validator: v}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	user, token, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		AccessToken: token.Value,
		ExpiresAt:   token.ExpiresAt,
		User:        dto.NewUserResponse(user),
		Role:        token.Role,
	}})
}
