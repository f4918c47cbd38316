package swaps

import (
	swapsvc "bookbridge-backend/internal/application/swaps"
	"bookbridge-backend/internal/middleware"
	"bookbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *swapsvc.Service
}

func swapStatus(err error) int {
	statusMap := map[string]int{
		"Requested listing not found":                    fiber.StatusNotFound,
		"Offered listing not found":                      fiber.StatusNotFound,
		"Swap request not found":                         fiber.StatusNotFound,
		"You cannot swap for your own listing":           fiber.StatusBadRequest,
		"You can only offer your own listing":            fiber.StatusBadRequest,
		"Requested listing is not open for exchange":     fiber.StatusBadRequest,
		"Listing is no longer available":                 fiber.StatusConflict,
		"A swap request for this pair is already in progress": fiber.StatusConflict,
		"Swap request is no longer pending":              fiber.StatusConflict,
		"Only the listing owner can accept this swap":    fiber.StatusForbidden,
		"Only the listing owner can reject this swap":    fiber.StatusForbidden,
	}
	if code, ok := statusMap[err.Error()]; ok {
		return code
	}
	return fiber.StatusInternalServerError
}

// Propose POST /api/v1/swaps
func (h *Handlers) Propose(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var body struct {
		RequestedListingID string `json:"requested_listing_id"`
		OfferedListingID   string `json:"offered_listing_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "requested_listing_id and offered_listing_id are required", fiber.StatusBadRequest, nil)
	}
	requestedID, err := uuid.Parse(body.RequestedListingID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for requested_listing_id", fiber.StatusBadRequest, nil)
	}
	offeredID, err := uuid.Parse(body.OfferedListingID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for offered_listing_id", fiber.StatusBadRequest, nil)
	}

	swap, err := h.Service.Propose(c.Context(), p.UserID, requestedID, offeredID)
	if err != nil {
		return response.Error(c, err.Error(), swapStatus(err), nil)
	}
	return response.SuccessCreated(c, "Swap proposed", fiber.Map{"swap": swap}, nil)
}

// Accept POST /api/v1/swaps/:swap_id/accept
func (h *Handlers) Accept(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	swapID, err := uuid.Parse(c.Params("swap_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for swap_id", fiber.StatusBadRequest, nil)
	}
	delivery, err := h.Service.Accept(c.Context(), p.UserID, swapID)
	if err != nil {
		return response.Error(c, err.Error(), swapStatus(err), nil)
	}
	return response.Success(c, "Swap accepted", fiber.Map{"delivery": delivery}, nil)
}

// Reject POST /api/v1/swaps/:swap_id/reject
func (h *Handlers) Reject(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	swapID, err := uuid.Parse(c.Params("swap_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for swap_id", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.Reject(c.Context(), p.UserID, swapID); err != nil {
		return response.Error(c, err.Error(), swapStatus(err), nil)
	}
	return response.Success(c, "Swap rejected", nil, nil)
}

// ListMine GET /api/v1/swaps
func (h *Handlers) ListMine(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	swaps, err := h.Service.ListMine(c.Context(), p.UserID)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "My swaps", fiber.Map{"swaps": swaps}, nil)
}
