package booklists

import (
	booklistsvc "bookbridge-backend/internal/application/booklists"
	"bookbridge-backend/internal/middleware"
	"bookbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *booklistsvc.Service
}

// Create POST /api/v1/booklists — school-only (enforced in router).
func (h *Handlers) Create(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var body struct {
		Grade        string                      `json:"grade"`
		AcademicYear string                      `json:"academic_year"`
		Textbooks    []booklistsvc.TextbookInput `json:"textbooks"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	list, err := h.Service.Create(c.Context(), p.UserID, body.Grade, body.AcademicYear, body.Textbooks)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	return response.SuccessCreated(c, "Book list published", fiber.Map{"book_list": list}, nil)
}

// ListForSchool GET /api/v1/booklists/school/:school_id
func (h *Handlers) ListForSchool(c *fiber.Ctx) error {
	schoolID, err := uuid.Parse(c.Params("school_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for school_id", fiber.StatusBadRequest, nil)
	}
	lists, err := h.Service.ListForSchool(c.Context(), schoolID)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Book lists", fiber.Map{"book_lists": lists}, nil)
}

// Get GET /api/v1/booklists/:list_id
func (h *Handlers) Get(c *fiber.Ctx) error {
	listID, err := uuid.Parse(c.Params("list_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for list_id", fiber.StatusBadRequest, nil)
	}
	list, err := h.Service.Get(c.Context(), listID)
	if err != nil {
		statusMap := map[string]int{
			"Book list not found": fiber.StatusNotFound,
		}
		if code, ok := statusMap[err.Error()]; ok {
			return response.Error(c, err.Error(), code, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Book list", fiber.Map{"book_list": list}, nil)
}

// Delete DELETE /api/v1/booklists/:list_id — school-only, own lists.
func (h *Handlers) Delete(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	listID, err := uuid.Parse(c.Params("list_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for list_id", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.Delete(c.Context(), p.UserID, listID); err != nil {
		statusMap := map[string]int{
			"Book list not found": fiber.StatusNotFound,
		}
		if code, ok := statusMap[err.Error()]; ok {
			return response.Error(c, err.Error(), code, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Book list removed", nil, nil)
}
