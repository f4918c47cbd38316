package wallets

import (
	walletsvc "bookbridge-backend/internal/application/wallets"
	"bookbridge-backend/internal/middleware"
	"bookbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *walletsvc.Service
}

// GetWallet GET /api/v1/wallet
func (h *Handlers) GetWallet(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	wallet, err := h.Service.GetWallet(c.Context(), p.UserID)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Wallet", fiber.Map{"wallet": wallet}, nil)
}

// Withdraw POST /api/v1/wallet/withdraw
func (h *Handlers) Withdraw(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var body struct {
		Amount float64 `json:"amount"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "amount is required", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.Withdraw(c.Context(), p.UserID, body.Amount); err != nil {
		statusMap := map[string]int{
			"Withdrawal amount must be positive": fiber.StatusBadRequest,
			"Wallet not found":                   fiber.StatusNotFound,
			"Insufficient funds":                 fiber.StatusConflict,
		}
		if code, ok := statusMap[err.Error()]; ok {
			return response.Error(c, err.Error(), code, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Withdrawal recorded", nil, nil)
}

// Transactions GET /api/v1/wallet/transactions
func (h *Handlers) Transactions(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	txns, err := h.Service.ListTransactions(c.Context(), p.UserID)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Wallet transactions", fiber.Map{"transactions": txns}, nil)
}
