package carts

import (
	cartsvc "bookbridge-backend/internal/application/carts"
	"bookbridge-backend/internal/middleware"
	"bookbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *cartsvc.Service
}

// GetCart GET /api/v1/cart
func (h *Handlers) GetCart(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	cart, err := h.Service.GetCart(c.Context(), p.UserID)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Cart", fiber.Map{"cart": cart}, nil)
}

// AddItem POST /api/v1/cart/items
func (h *Handlers) AddItem(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var body struct {
		ListingID string `json:"listing_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.ListingID == "" {
		return response.Error(c, "listing_id is required", fiber.StatusBadRequest, nil)
	}
	listingID, err := uuid.Parse(body.ListingID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for listing_id", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.AddItem(c.Context(), p.UserID, listingID); err != nil {
		statusMap := map[string]int{
			"Listing not found":                fiber.StatusNotFound,
			"Listing is no longer available":   fiber.StatusConflict,
			"Listing is already in your cart":  fiber.StatusConflict,
			"You cannot buy your own listing":  fiber.StatusBadRequest,
		}
		if code, ok := statusMap[err.Error()]; ok {
			return response.Error(c, err.Error(), code, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.SuccessCreated(c, "Added to cart", nil, nil)
}

// RemoveItem DELETE /api/v1/cart/items/:listing_id
func (h *Handlers) RemoveItem(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for listing_id", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.RemoveItem(c.Context(), p.UserID, listingID); err != nil {
		statusMap := map[string]int{
			"Cart is empty":               fiber.StatusNotFound,
			"Listing is not in your cart": fiber.StatusNotFound,
		}
		if code, ok := statusMap[err.Error()]; ok {
			return response.Error(c, err.Error(), code, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Removed from cart", nil, nil)
}
