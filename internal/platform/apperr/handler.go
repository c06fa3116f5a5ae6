package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const genericDependencyMessage = "the operation could not be completed"

type body struct {
	Error   Kind   `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// HTTPErrorHandler renders service errors as JSON. Dependency failures are
// logged with their cause and reported to clients with a generic message.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg, _ := he.Message.(string)
			if msg == "" {
				msg = http.StatusText(he.Code)
			}
			_ = c.JSON(he.Code, map[string]string{"message": msg})
			return
		}

		status := HTTPStatus(err)
		out := body{Error: KindOf(err), Message: err.Error()}

		var e *Error
		if errors.As(err, &e) {
			out.Message = e.Message
			out.Field = e.Field
		}

		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
			out.Message = genericDependencyMessage
			if out.Error == "" {
				out.Message = "internal server error"
			}
		}

		_ = c.JSON(status, out)
	}
}
