package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/waitlist-service/internal/api/dto"
	"github.com/spec-kit/waitlist-service/internal/auth"
	"github.com/spec-kit/waitlist-service/internal/config"
	apperrors "github.com/spec-kit/waitlist-service/pkg/util"
)

// AuthHandler issues staff session tokens.
type AuthHandler struct {
	tokens *auth.TokenManager
	cfg    config.AuthConfig
}

// NewAuthHandler constructs handler.
func NewAuthHandler(tokens *auth.TokenManager, cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{tokens: tokens, cfg: cfg}
}

// StaffLogin POST /auth/staff/login.
func (h *AuthHandler) StaffLogin(c *fiber.Ctx) error {
	if h.cfg.AdminPasswordHash == "" {
		return apperrors.NewUnauthorized("staff login not configured")
	}

	var req dto.StaffLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := auth.ComparePassword(h.cfg.AdminPasswordHash, req.Password); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := h.tokens.GenerateToken(auth.RoleOperator)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": dto.StaffLoginResponse{Token: token, ExpiresAt: expiresAt}})
}
