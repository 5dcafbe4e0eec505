package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SuccessResponse writes v with status 200.
func SuccessResponse(c echo.Context, v interface{}) error {
	return c.JSON(http.StatusOK, v)
}

// BadRequestResponse writes a 400 with the given message.
func BadRequestResponse(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, ErrorBody{Message: message})
}

// AppErrorResponse renders err as an ErrorBody with the matching status.
// clientKinds lists the error kinds that are the caller's fault.
func AppErrorResponse(c echo.Context, err error, clientKinds ...string) error {
	appErr := FromError(err, clientKinds...)
	body := ErrorBody{Message: appErr.Message}
	if appErr.Status >= http.StatusInternalServerError {
		body.ErrorType = appErr.Kind
	}
	return c.JSON(appErr.Status, body)
}
