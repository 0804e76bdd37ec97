package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sekolahku/portal/internal/auth"
)

// PagesHandler serves the page shells. Rendering lives in the frontend; the
// responses only describe which page and principal the request resolved to.
type PagesHandler struct{}

// NewPagesHandler constructs handler.
func NewPagesHandler() *PagesHandler {
	return &PagesHandler{}
}

// Login handles GET /login.
func (h *PagesHandler) Login(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"page":     "login",
		"redirect": c.Query("redirect"),
		"error":    c.Query("error"),
	})
}

// Unauthorized handles GET /unauthorized.
func (h *PagesHandler) Unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"page": "unauthorized"})
}

// Dashboard handles GET /dashboard-*. It reads the identity headers the
// guard forwarded.
func (h *PagesHandler) Dashboard(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"page": "dashboard",
		"path": c.Path(),
		"user": fiber.Map{
			"id":          c.Get(auth.HeaderUserID),
			"role":        c.Get(auth.HeaderUserRole),
			"permissions": c.Get(auth.HeaderUserPermissions),
		},
	})
}
