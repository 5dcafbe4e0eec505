package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"FinInfluence/pkg/logger"
)

// Recover turns a panic in a handler into a logged 500 response.
func Recover(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					perr, ok := r.(error)
					if !ok {
						perr = fmt.Errorf("%v", r)
					}
					log.Error("panic recovered",
						logger.String("path", c.Request().URL.Path),
						logger.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
						logger.Error(perr),
						logger.String("stack", string(debug.Stack())))
					err = c.JSON(http.StatusInternalServerError, map[string]interface{}{
						"success":    false,
						"message":    "Internal Server Error",
						"error_type": "InternalError",
					})
				}
			}()
			return next(c)
		}
	}
}
