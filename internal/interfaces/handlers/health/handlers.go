package health

import (
	"context"
	"time"

	"bookbridge-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// DBPinger abstracts the database liveness check.
type DBPinger interface {
	Ping() error
}

type Handlers struct {
	Rdb *redis.Client
	DB  DBPinger
}

var startedAt = time.Now()

// JSON GET /health/json — service status, traffic counters, dependency pings.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	ctx := context.Background()

	deps := fiber.Map{}
	status := "ok"
	if h.DB != nil {
		if err := h.DB.Ping(); err != nil {
			deps["postgres"] = "down"
			status = "degraded"
		} else {
			deps["postgres"] = "up"
		}
	}
	if h.Rdb != nil {
		if err := h.Rdb.Ping(ctx).Err(); err != nil {
			deps["redis"] = "down"
			status = "degraded"
		} else {
			deps["redis"] = "up"
		}
	}

	traffic := fiber.Map{}
	if h.Rdb != nil {
		total, _ := h.Rdb.Get(ctx, middleware.KeyReqTotal).Int64()
		errors, _ := h.Rdb.Get(ctx, middleware.KeyReqErrors).Int64()
		resTime, _ := h.Rdb.Get(ctx, middleware.KeyResTime).Float64()
		resCount, _ := h.Rdb.Get(ctx, middleware.KeyResCount).Int64()
		traffic["requests"] = total
		traffic["errors"] = errors
		if resCount > 0 {
			traffic["avg_response_ms"] = resTime / float64(resCount)
		}
	}

	return c.JSON(fiber.Map{
		"service":        "bookbridge-api",
		"status":         status,
		"uptime_seconds": int64(time.Since(startedAt).Seconds()),
		"traffic":        traffic,
		"dependencies":   deps,
	})
}
