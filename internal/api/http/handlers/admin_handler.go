package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sekolahku/portal/internal/api/dto"
	"github.com/sekolahku/portal/internal/domain"
	"github.com/sekolahku/portal/internal/service"
	apperrors "github.com/sekolahku/portal/pkg/util"
)

// AdminHandler exposes account management for administrators.
type AdminHandler struct {
	users *service.UserService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(users *service.UserService) *AdminHandler {
	return &AdminHandler{users: users}
}

// CreateUser handles POST /api/admin/users.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.users.CreateUser(c.UserContext(), service.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
		Name:     req.Name,
		NISN:     req.NISN,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": toUserResponse(user)})
}

// GetUser handles GET /api/admin/users/:id.
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.users.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": toUserResponse(user)})
}

// SetOsisAccess handles PUT /api/admin/students/:userId/osis-access.
func (h *AdminHandler) SetOsisAccess(c *fiber.Ctx) error {
	var req dto.OsisAccessUpdateRequest
	if err := c.BodyParser(&req); err != nil || req.Granted == nil {
		return apperrors.NewValidationError("granted is required", map[string]any{"field": "granted"})
	}
	student, err := h.users.SetOsisAccess(c.UserContext(), c.Params("userId"), *req.Granted)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StudentResponse{
		ID:         student.ID,
		UserID:     student.UserID,
		Name:       student.Name,
		NISN:       student.NISN,
		OsisAccess: student.OsisAccess,
		UpdatedAt:  student.UpdatedAt,
	}})
}

func toUserResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Name:        user.DisplayName(),
		Role:        user.Role.LegacyToken(),
		Permissions: user.Role.Permissions(),
	}
}
