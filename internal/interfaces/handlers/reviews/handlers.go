package reviews

import (
	reviewsvc "bookbridge-backend/internal/application/reviews"
	"bookbridge-backend/internal/middleware"
	"bookbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *reviewsvc.Service
}

// Create POST /api/v1/reviews
func (h *Handlers) Create(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var body struct {
		ListingID string `json:"listing_id"`
		Rating    int    `json:"rating"`
		Comment   string `json:"comment"`
	}
	if err := c.BodyParser(&body); err != nil || body.ListingID == "" {
		return response.Error(c, "listing_id and rating are required", fiber.StatusBadRequest, nil)
	}
	listingID, err := uuid.Parse(body.ListingID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for listing_id", fiber.StatusBadRequest, nil)
	}

	review, err := h.Service.Create(c.Context(), p.UserID, listingID, body.Rating, body.Comment)
	if err != nil {
		statusMap := map[string]int{
			"Listing not found":                       fiber.StatusNotFound,
			"You cannot review your own listing":      fiber.StatusBadRequest,
			"Rating must be between 1 and 5":          fiber.StatusBadRequest,
			"You have already reviewed this listing":  fiber.StatusConflict,
		}
		if code, ok := statusMap[err.Error()]; ok {
			return response.Error(c, err.Error(), code, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.SuccessCreated(c, "Review posted", fiber.Map{"review": review}, nil)
}

// ListForSeller GET /api/v1/reviews/seller/:seller_id
func (h *Handlers) ListForSeller(c *fiber.Ctx) error {
	sellerID, err := uuid.Parse(c.Params("seller_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for seller_id", fiber.StatusBadRequest, nil)
	}
	reviews, err := h.Service.ListForSeller(c.Context(), sellerID)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Reviews", fiber.Map{"reviews": reviews}, nil)
}
