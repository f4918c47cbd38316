package directory

import (
	directorysvc "bookbridge-backend/internal/application/directory"
	"bookbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *directorysvc.Service
}

// ListSchools GET /api/v1/directory/schools?q=
func (h *Handlers) ListSchools(c *fiber.Ctx) error {
	schools, err := h.Service.ListSchools(c.Context(), c.Query("q"))
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Schools", fiber.Map{"schools": schools}, nil)
}

// ListBookshops GET /api/v1/directory/bookshops?q=
func (h *Handlers) ListBookshops(c *fiber.Ctx) error {
	shops, err := h.Service.ListBookshops(c.Context(), c.Query("q"))
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Bookshops", fiber.Map{"bookshops": shops}, nil)
}

// ShopInventory GET /api/v1/directory/bookshops/:user_id/inventory
func (h *Handlers) ShopInventory(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for user_id", fiber.StatusBadRequest, nil)
	}
	listings, err := h.Service.ShopInventory(c.Context(), userID)
	if err != nil {
		statusMap := map[string]int{
			"Bookshop not found": fiber.StatusNotFound,
		}
		if code, ok := statusMap[err.Error()]; ok {
			return response.Error(c, err.Error(), code, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Inventory", fiber.Map{"listings": listings}, nil)
}
