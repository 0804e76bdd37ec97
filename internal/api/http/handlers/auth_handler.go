package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sekolahku/portal/internal/api/dto"
	"github.com/sekolahku/portal/internal/auth"
	"github.com/sekolahku/portal/internal/service"
	apperrors "github.com/sekolahku/portal/pkg/util"
)

// AuthHandler exposes login, logout and session endpoints.
type AuthHandler struct {
	auth   *service.AuthService
	access *service.AccessService
	cookie auth.CookieOptions
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, access *service.AccessService, cookie auth.CookieOptions) *AuthHandler {
	return &AuthHandler{auth: authService, access: access, cookie: cookie}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.auth.Login(c.UserContext(), service.LoginInput{
		Username:  req.Username,
		Password:  req.Password,
		Role:      req.Role,
		Honeypot:  req.Honeypot,
		ClientIP:  auth.ClientIP(c),
		UserAgent: c.Get(fiber.HeaderUserAgent, "unknown"),
	})
	if err != nil {
		return err
	}

	auth.SetSessionCookie(c, result.Token, h.cookie)
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.UserResponse{
				ID:          result.User.ID,
				Username:    result.User.Username,
				Name:        result.User.DisplayName(),
				Role:        result.Role.LegacyToken(),
				Permissions: result.Session.Permissions,
			},
			"session": dto.SessionResponse{
				ExpiresAt:  result.Session.ExpiresAt,
				RedirectTo: result.RedirectTo,
			},
		},
	})
}

// Logout handles POST /api/auth/logout. It always succeeds and clears the cookie.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	h.auth.Logout(c.UserContext(), principal, auth.ClientIP(c))
	auth.ClearSessionCookie(c, h.cookie)
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "logged_out"}})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized(auth.ReasonAuthenticationRequired)
	}
	return c.JSON(fiber.Map{
		"data": dto.UserResponse{
			ID:          principal.UserID,
			Username:    principal.Username,
			Role:        principal.Role.LegacyToken(),
			Permissions: principal.Permissions,
		},
	})
}

// OsisAccess handles GET /api/osis/access.
func (h *AuthHandler) OsisAccess(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized(auth.ReasonAuthenticationRequired)
	}
	allowed := h.access.HasOsisAccess(c.UserContext(), principal.UserID, principal.Role.String())
	return c.JSON(fiber.Map{
		"data": dto.OsisAccessResponse{
			UserID:  principal.UserID,
			Role:    principal.Role.LegacyToken(),
			Allowed: allowed,
		},
	})
}
