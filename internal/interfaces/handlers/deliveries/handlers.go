package deliveries

import (
	deliverysvc "bookbridge-backend/internal/application/deliveries"
	"bookbridge-backend/internal/middleware"
	"bookbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *deliverysvc.Service
}

func deliveryStatus(err error) int {
	statusMap := map[string]int{
		"Delivery not found":                           fiber.StatusNotFound,
		"No delivery matches that tracking code":       fiber.StatusNotFound,
		"You are not part of this delivery":            fiber.StatusForbidden,
		"Only riders can accept delivery jobs":         fiber.StatusForbidden,
		"Only the assigned rider can complete this delivery": fiber.StatusForbidden,
		"Delivery fee can only be set before payment":  fiber.StatusConflict,
		"This job has already been taken":              fiber.StatusConflict,
		"Finish your current delivery before accepting another": fiber.StatusConflict,
		"Delivery is already completed":                fiber.StatusConflict,
		"Only a shipped delivery can be completed":     fiber.StatusConflict,
		"Delivery can no longer be cancelled":          fiber.StatusConflict,
		"Delivery has no rider bound":                  fiber.StatusConflict,
	}
	if code, ok := statusMap[err.Error()]; ok {
		return code
	}
	return fiber.StatusInternalServerError
}

// QuoteFee POST /api/v1/deliveries/:delivery_id/quote
func (h *Handlers) QuoteFee(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	deliveryID, err := uuid.Parse(c.Params("delivery_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for delivery_id", fiber.StatusBadRequest, nil)
	}
	quote, delivery, err := h.Service.QuoteFee(c.Context(), p.UserID, deliveryID)
	if err != nil {
		code := deliveryStatus(err)
		if code == fiber.StatusInternalServerError {
			// Pricing collaborator errors surface verbatim as 502.
			return response.Error(c, err.Error(), fiber.StatusBadGateway, nil)
		}
		return response.Error(c, err.Error(), code, nil)
	}
	return response.Success(c, "Delivery fee calculated", fiber.Map{
		"delivery": delivery,
		"quote":    quote,
	}, nil)
}

// ListJobs GET /api/v1/deliveries/jobs — rider job board.
func (h *Handlers) ListJobs(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	jobs, err := h.Service.ListJobs(c.Context(), p.UserID)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Available jobs", fiber.Map{"jobs": jobs}, nil)
}

// AcceptJob POST /api/v1/deliveries/:delivery_id/accept
func (h *Handlers) AcceptJob(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	deliveryID, err := uuid.Parse(c.Params("delivery_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for delivery_id", fiber.StatusBadRequest, nil)
	}
	delivery, err := h.Service.AcceptJob(c.Context(), p.UserID, deliveryID)
	if err != nil {
		return response.Error(c, err.Error(), deliveryStatus(err), nil)
	}
	return response.Success(c, "Job accepted", fiber.Map{"delivery": delivery}, nil)
}

// UpdateLocation PATCH /api/v1/deliveries/:delivery_id/location
func (h *Handlers) UpdateLocation(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	deliveryID, err := uuid.Parse(c.Params("delivery_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for delivery_id", fiber.StatusBadRequest, nil)
	}
	var body struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if err := c.BodyParser(&body); err != nil || body.Lat == nil || body.Lng == nil {
		return response.Error(c, "lat and lng are required", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.UpdateLocation(c.Context(), p.UserID, deliveryID, *body.Lat, *body.Lng); err != nil {
		return response.Error(c, err.Error(), deliveryStatus(err), nil)
	}
	return response.Success(c, "Location updated", nil, nil)
}

// Complete POST /api/v1/deliveries/:delivery_id/complete
func (h *Handlers) Complete(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	deliveryID, err := uuid.Parse(c.Params("delivery_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for delivery_id", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.CompleteJob(c.Context(), p.UserID, deliveryID); err != nil {
		return response.Error(c, err.Error(), deliveryStatus(err), nil)
	}
	return response.Success(c, "Delivery completed", nil, nil)
}

// Cancel POST /api/v1/deliveries/:delivery_id/cancel
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	deliveryID, err := uuid.Parse(c.Params("delivery_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for delivery_id", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.Cancel(c.Context(), p.UserID, deliveryID); err != nil {
		return response.Error(c, err.Error(), deliveryStatus(err), nil)
	}
	return response.Success(c, "Delivery cancelled", nil, nil)
}

// ListMine GET /api/v1/deliveries
func (h *Handlers) ListMine(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	deliveries, err := h.Service.ListMine(c.Context(), p.UserID)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "My deliveries", fiber.Map{"deliveries": deliveries}, nil)
}

// Track GET /api/v1/deliveries/track/:code — public tracking endpoint.
func (h *Handlers) Track(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return response.Error(c, "Tracking code is required", fiber.StatusBadRequest, nil)
	}
	delivery, err := h.Service.Track(c.Context(), code)
	if err != nil {
		return response.Error(c, err.Error(), deliveryStatus(err), nil)
	}
	return response.Success(c, "Delivery", fiber.Map{"delivery": delivery}, nil)
}
