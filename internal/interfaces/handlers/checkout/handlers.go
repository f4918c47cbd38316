package checkout

import (
	checkoutsvc "bookbridge-backend/internal/application/checkout"
	"bookbridge-backend/internal/middleware"
	"bookbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *checkoutsvc.Service
}

// Checkout POST /api/v1/checkout
func (h *Handlers) Checkout(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var body struct {
		ListingIDs []string `json:"listing_ids"`
	}
	if err := c.BodyParser(&body); err != nil || len(body.ListingIDs) == 0 {
		return response.Error(c, "listing_ids is required", fiber.StatusBadRequest, nil)
	}

	ids := make([]uuid.UUID, 0, len(body.ListingIDs))
	for _, raw := range body.ListingIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return response.Error(c, "Invalid UUID format in listing_ids", fiber.StatusBadRequest, nil)
		}
		ids = append(ids, id)
	}

	result, err := h.Service.Checkout(c.Context(), p.UserID, ids)
	if err != nil {
		statusMap := map[string]int{
			"A listing in your cart was just sold. Please refresh your cart and try again.": fiber.StatusConflict,
			"You cannot buy your own listing":        fiber.StatusBadRequest,
			"Only sale listings can be checked out":  fiber.StatusBadRequest,
			"No listings selected for checkout":      fiber.StatusBadRequest,
		}
		if code, ok := statusMap[err.Error()]; ok {
			return response.Error(c, err.Error(), code, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.SuccessCreated(c, "Order placed", fiber.Map{"deliveries": result.Deliveries}, nil)
}

// MyOrders GET /api/v1/orders
func (h *Handlers) MyOrders(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	orders, err := h.Service.MyOrders(c.Context(), p.UserID)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "My orders", fiber.Map{"orders": orders}, nil)
}
