package listings

import (
	listsvc "bookbridge-backend/internal/application/listings"
	"bookbridge-backend/internal/middleware"
	"bookbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *listsvc.Service
}

// CreateListing POST /api/v1/listings
func (h *Handlers) CreateListing(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var body struct {
		TextbookID  string  `json:"textbook_id"`
		Title       string  `json:"title"`
		Author      string  `json:"author"`
		ISBN        string  `json:"isbn"`
		Grade       string  `json:"grade"`
		Subject     string  `json:"subject"`
		Publisher   string  `json:"publisher"`
		ListingType string  `json:"listing_type"`
		Condition   string  `json:"condition"`
		Price       float64 `json:"price"`
		Description string  `json:"description"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	in := listsvc.CreateListingInput{
		Title:       body.Title,
		Author:      body.Author,
		ISBN:        body.ISBN,
		Grade:       body.Grade,
		Subject:     body.Subject,
		Publisher:   body.Publisher,
		ListingType: body.ListingType,
		Condition:   body.Condition,
		Price:       body.Price,
		Description: body.Description,
	}
	if body.TextbookID != "" {
		id, err := uuid.Parse(body.TextbookID)
		if err != nil {
			return response.Error(c, "Invalid UUID format for textbook_id", fiber.StatusBadRequest, nil)
		}
		in.TextbookID = &id
	}

	listing, err := h.Service.CreateListing(c.Context(), p.UserID, in)
	if err != nil {
		statusMap := map[string]int{
			"Textbook not found": fiber.StatusNotFound,
		}
		if code, ok := statusMap[err.Error()]; ok {
			return response.Error(c, err.Error(), code, nil)
		}
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	return response.SuccessCreated(c, "Listing created", fiber.Map{"listing": listing}, nil)
}

// Search GET /api/v1/listings?q=&type=&condition=
func (h *Handlers) Search(c *fiber.Ctx) error {
	listings, err := h.Service.Search(c.Context(), listsvc.SearchInput{
		Query:       c.Query("q"),
		ListingType: c.Query("type"),
		Condition:   c.Query("condition"),
	})
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Listings", fiber.Map{"listings": listings}, nil)
}

// GetListing GET /api/v1/listings/:listing_id
func (h *Handlers) GetListing(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for listing_id", fiber.StatusBadRequest, nil)
	}
	listing, err := h.Service.GetListing(c.Context(), id)
	if err != nil {
		statusMap := map[string]int{
			"Listing not found": fiber.StatusNotFound,
		}
		if code, ok := statusMap[err.Error()]; ok {
			return response.Error(c, err.Error(), code, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Listing", fiber.Map{"listing": listing}, nil)
}

// MyListings GET /api/v1/listings/mine
func (h *Handlers) MyListings(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	listings, err := h.Service.MyListings(c.Context(), p.UserID)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "My listings", fiber.Map{"listings": listings}, nil)
}

// Deactivate DELETE /api/v1/listings/:listing_id
func (h *Handlers) Deactivate(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for listing_id", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.DeactivateListing(c.Context(), p.UserID, id); err != nil {
		statusMap := map[string]int{
			"Listing not found": fiber.StatusNotFound,
		}
		if code, ok := statusMap[err.Error()]; ok {
			return response.Error(c, err.Error(), code, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Listing removed", nil, nil)
}
