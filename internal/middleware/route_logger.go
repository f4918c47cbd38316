package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// RouteLogger logs one line per request with status, duration and trace
// ID. Rider location pings fire every few seconds per active delivery,
// so they log at debug to keep the info stream readable.
func RouteLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		traceID := GetTraceID(c)
		if traceID == "" {
			traceID = "no-trace-id"
		}
		start := time.Now()
		err := c.Next()

		evt := log.Info()
		if strings.HasSuffix(c.Path(), "/location") {
			evt = log.Debug()
		}
		evt.Str("trace_id", traceID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Int64("ms", time.Since(start).Milliseconds()).
			Msg("request")
		return err
	}
}
