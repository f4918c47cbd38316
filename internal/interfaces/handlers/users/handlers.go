package users

import (
	userssvc "bookbridge-backend/internal/application/users"
	"bookbridge-backend/internal/middleware"
	"bookbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *userssvc.Service
}

// Register POST /api/v1/users/register — public signup.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req userssvc.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	user, err := h.Service.Register(c.Context(), req)
	if err != nil {
		statusMap := map[string]int{
			"Email already registered": fiber.StatusConflict,
		}
		if code, ok := statusMap[err.Error()]; ok {
			return response.Error(c, err.Error(), code, nil)
		}
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	return response.SuccessCreated(c, "Account created", fiber.Map{"user": user}, nil)
}

// Me GET /api/v1/users/me — own profile with role extension.
func (h *Handlers) Me(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	user, profile, err := h.Service.GetProfile(c.Context(), p.UserID)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	}
	return response.Success(c, "Profile", fiber.Map{"user": user, "profile": profile}, nil)
}

// GetProfile GET /api/v1/users/:user_id — public profile.
func (h *Handlers) GetProfile(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for user_id", fiber.StatusBadRequest, nil)
	}
	user, profile, err := h.Service.GetProfile(c.Context(), userID)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	}
	return response.Success(c, "Profile", fiber.Map{"user": user, "profile": profile}, nil)
}

// UpdateMe PATCH /api/v1/users/me — update own mutable fields.
func (h *Handlers) UpdateMe(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var fields map[string]interface{}
	if err := c.BodyParser(&fields); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	user, err := h.Service.UpdateProfile(c.Context(), p.UserID, fields)
	if err != nil {
		statusMap := map[string]int{
			"User not found": fiber.StatusNotFound,
		}
		if code, ok := statusMap[err.Error()]; ok {
			return response.Error(c, err.Error(), code, nil)
		}
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	return response.Success(c, "Profile updated", fiber.Map{"user": user}, nil)
}
