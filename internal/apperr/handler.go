package apperr

import (
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/labstack/echo/v4"

	"github.com/upwave/upwave/internal/logging"
)

// ErrorBody is the wire shape of every error response.
type ErrorBody struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
}

// HTTPErrorHandler renders every error in the standard body. Internal
// errors are logged with their cause and returned opaque.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	l := logging.FromContext(c.Request().Context())

	status := http.StatusInternalServerError
	code := CodeInternalError
	detail := "internal server error"

	var appErr *Error
	var valErrs validation.Errors
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &appErr):
		status = appErr.Status
		code = appErr.Code
		detail = appErr.Detail
		if appErr.Err != nil {
			l.Error("request failed", "error_code", code, "error", appErr.Err)
		}
	case errors.As(err, &valErrs):
		status = http.StatusUnprocessableEntity
		code = CodeValidation
		detail = valErrs.Error()
	case errors.As(err, &httpErr):
		status = httpErr.Code
		code = CodeValidation
		if msg, ok := httpErr.Message.(string); ok {
			detail = msg
		} else {
			detail = http.StatusText(status)
		}
		if status >= 500 {
			code = CodeInternalError
			detail = "internal server error"
			l.Error("request failed", "error", err)
		}
	default:
		l.Error("request failed", "error", err)
	}

	body := ErrorBody{
		Detail:    detail,
		ErrorCode: code,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request().URL.Path,
	}

	if writeErr := c.JSON(status, body); writeErr != nil {
		l.Error("error response write failed", "error", writeErr)
	}
}
