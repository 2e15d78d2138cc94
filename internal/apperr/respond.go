package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fixhub-app/fixhub/internal/logger"
)

// Respond writes the JSON error envelope for err. Unexpected errors are logged
// with their cause; callers only ever see the short message.
func Respond(c echo.Context, err error) error {
	var ae *Error
	if !errors.As(err, &ae) {
		logger.Log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if ae.Code == CodeUnexpected {
		logger.Log.Error().Err(ae).Str("path", c.Path()).Msg("request failed")
	}
	return c.JSON(HTTPStatus(ae.Code), echo.Map{"error": ae.Message})
}
