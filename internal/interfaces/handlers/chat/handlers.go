package chat

import (
	chatsvc "bookbridge-backend/internal/application/chat"
	"bookbridge-backend/internal/middleware"
	"bookbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *chatsvc.Service
}

// ListConversations GET /api/v1/chat/conversations
func (h *Handlers) ListConversations(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	conversations, err := h.Service.ListConversations(c.Context(), p.UserID)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Conversations", fiber.Map{"conversations": conversations}, nil)
}

// ListMessages GET /api/v1/chat/conversations/:conversation_id/messages
func (h *Handlers) ListMessages(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	conversationID, err := uuid.Parse(c.Params("conversation_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for conversation_id", fiber.StatusBadRequest, nil)
	}
	messages, err := h.Service.ListMessages(c.Context(), p.UserID, conversationID)
	if err != nil {
		statusMap := map[string]int{
			"Conversation not found":                 fiber.StatusNotFound,
			"Not a participant in this conversation": fiber.StatusForbidden,
		}
		if code, ok := statusMap[err.Error()]; ok {
			return response.Error(c, err.Error(), code, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Messages", fiber.Map{"messages": messages}, nil)
}

// SendMessage POST /api/v1/chat/conversations/:conversation_id/messages
func (h *Handlers) SendMessage(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	conversationID, err := uuid.Parse(c.Params("conversation_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for conversation_id", fiber.StatusBadRequest, nil)
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&body); err != nil || body.Content == "" {
		return response.Error(c, "content is required", fiber.StatusBadRequest, nil)
	}
	message, err := h.Service.SendMessage(c.Context(), p.UserID, conversationID, body.Content)
	if err != nil {
		statusMap := map[string]int{
			"Conversation not found":                fiber.StatusNotFound,
			"Not a participant in this conversation": fiber.StatusForbidden,
		}
		if code, ok := statusMap[err.Error()]; ok {
			return response.Error(c, err.Error(), code, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.SuccessCreated(c, "Message sent", fiber.Map{"message": message}, nil)
}

// StartConversation POST /api/v1/chat/conversations
func (h *Handlers) StartConversation(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var body struct {
		UserID string `json:"user_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.UserID == "" {
		return response.Error(c, "user_id is required", fiber.StatusBadRequest, nil)
	}
	otherID, err := uuid.Parse(body.UserID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for user_id", fiber.StatusBadRequest, nil)
	}
	conversation, err := h.Service.StartConversation(c.Context(), p.UserID, otherID)
	if err != nil {
		statusMap := map[string]int{
			"User not found":                           fiber.StatusNotFound,
			"Cannot create conversation with yourself": fiber.StatusBadRequest,
		}
		if code, ok := statusMap[err.Error()]; ok {
			return response.Error(c, err.Error(), code, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.SuccessCreated(c, "Conversation ready", fiber.Map{"conversation": conversation}, nil)
}
