package middleware

import (
	"bookbridge-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

// Principal is the authenticated actor extracted from the session. It is
// passed explicitly into services; nothing below the handler layer reads
// ambient session state.
type Principal struct {
	UserID   uuid.UUID
	Email    string
	FullName string
	Role     string
	Phone    string
	Location string
}

// RequireAuth ensures a user is in the session. Returns 401 with standard
// error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals(userLocal)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals("auth", user)
		return c.Next()
	}
}

// RequireRole restricts a route to users with one of the given roles
// (e.g. rider-only job board routes).
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := GetPrincipal(c)
		if p == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		for _, r := range roles {
			if p.Role == r {
				return c.Next()
			}
		}
		return response.Error(c, "User is Forbidden from performing this action", fiber.StatusForbidden, nil)
	}
}

// GetUser returns the raw session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// GetPrincipal parses the session user into a typed Principal. Returns nil
// when not logged in or the stored user id is malformed.
func GetPrincipal(c *fiber.Ctx) *Principal {
	m, ok := c.Locals(userLocal).(map[string]interface{})
	if !ok {
		return nil
	}
	idStr, _ := m["user_id"].(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil
	}
	p := &Principal{UserID: id}
	p.Email, _ = m["email"].(string)
	p.FullName, _ = m["full_name"].(string)
	p.Role, _ = m["role"].(string)
	p.Phone, _ = m["phone"].(string)
	p.Location, _ = m["location"].(string)
	return p
}
