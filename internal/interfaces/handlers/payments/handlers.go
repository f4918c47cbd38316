package payments

import (
	paysvc "bookbridge-backend/internal/application/payments"
	"bookbridge-backend/internal/middleware"
	"bookbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *paysvc.Service
}

func paymentStatus(err error) int {
	statusMap := map[string]int{
		"Delivery not found":                        fiber.StatusNotFound,
		"No payment found for this delivery":        fiber.StatusNotFound,
		"No payment matches this reference":         fiber.StatusNotFound,
		"You are not part of this delivery":         fiber.StatusForbidden,
		"Delivery is already paid":                  fiber.StatusConflict,
		"Delivery fee has not been calculated yet":  fiber.StatusConflict,
		"Invalid phone number":                      fiber.StatusBadRequest,
		"Invalid email format":                      fiber.StatusBadRequest,
		"Payment reference is required":             fiber.StatusBadRequest,
	}
	if code, ok := statusMap[err.Error()]; ok {
		return code
	}
	return fiber.StatusBadGateway
}

// InitiateMpesa POST /api/v1/payments/mpesa
func (h *Handlers) InitiateMpesa(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var body struct {
		DeliveryID string `json:"delivery_id"`
		Phone      string `json:"phone_number"`
	}
	if err := c.BodyParser(&body); err != nil || body.DeliveryID == "" || body.Phone == "" {
		return response.Error(c, "delivery_id and phone_number are required", fiber.StatusBadRequest, nil)
	}
	deliveryID, err := uuid.Parse(body.DeliveryID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for delivery_id", fiber.StatusBadRequest, nil)
	}

	payment, err := h.Service.InitiateMpesa(c.Context(), p.UserID, deliveryID, body.Phone)
	if err != nil {
		return response.Error(c, err.Error(), paymentStatus(err), nil)
	}
	return response.Success(c, "Payment prompt sent to your phone", fiber.Map{"payment": payment}, nil)
}

// MpesaCallback POST /api/v1/payments/mpesa/callback — Daraja webhook.
// Always answers 200 so the provider stops retrying; failures are logged.
func (h *Handlers) MpesaCallback(c *fiber.Ctx) error {
	if err := h.Service.HandleMpesaCallback(c.Context(), c.Body()); err != nil {
		log.Warn().Err(err).Msg("mpesa callback rejected")
	}
	return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// InitiatePaystack POST /api/v1/payments/paystack
func (h *Handlers) InitiatePaystack(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var body struct {
		DeliveryID string `json:"delivery_id"`
		Email      string `json:"email"`
	}
	if err := c.BodyParser(&body); err != nil || body.DeliveryID == "" {
		return response.Error(c, "delivery_id is required", fiber.StatusBadRequest, nil)
	}
	deliveryID, err := uuid.Parse(body.DeliveryID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for delivery_id", fiber.StatusBadRequest, nil)
	}
	email := body.Email
	if email == "" {
		email = p.Email
	}

	authURL, payment, err := h.Service.InitiatePaystack(c.Context(), p.UserID, deliveryID, email)
	if err != nil {
		return response.Error(c, err.Error(), paymentStatus(err), nil)
	}
	return response.Success(c, "Checkout created", fiber.Map{
		"authorization_url": authURL,
		"payment":           payment,
	}, nil)
}

// VerifyPaystack GET /api/v1/payments/paystack/verify?reference=
func (h *Handlers) VerifyPaystack(c *fiber.Ctx) error {
	reference := c.Query("reference")
	payment, err := h.Service.VerifyPaystack(c.Context(), reference)
	if err != nil {
		return response.Error(c, err.Error(), paymentStatus(err), nil)
	}
	return response.Success(c, "Payment verified", fiber.Map{"payment": payment}, nil)
}

// GetForDelivery GET /api/v1/payments/delivery/:delivery_id
func (h *Handlers) GetForDelivery(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	deliveryID, err := uuid.Parse(c.Params("delivery_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for delivery_id", fiber.StatusBadRequest, nil)
	}
	payment, err := h.Service.GetForDelivery(c.Context(), deliveryID)
	if err != nil {
		return response.Error(c, err.Error(), paymentStatus(err), nil)
	}
	return response.Success(c, "Payment", fiber.Map{"payment": payment}, nil)
}
