package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"FinInfluence/pkg/logger"
)

// Allower decides whether a request from key may proceed.
type Allower interface {
	Allow(key string) bool
}

// RateLimit rejects requests with 429 once the client's bucket is empty.
// Clients are keyed by echo's RealIP.
func RateLimit(limiter Allower, log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if limiter.Allow(ip) {
				return next(c)
			}
			log.Warn("rate limited", logger.String("remote_ip", ip), logger.String("path", c.Request().URL.Path))
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"success": false,
				"message": "Too many requests",
			})
		}
	}
}
