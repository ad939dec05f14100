package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"fulfillment/internal/pkg/errs"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/labstack/echo/v4"
)

// Error is the body of every error response.
type Error struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code int, message string, fields ...string) *Error {
	return &Error{Code: code, Message: message, Fields: fields}
}

// NewErrorHandler renders every error returned by a handler or middleware as
// an Error body. Unknown errors are logged and hidden behind a 500.
func NewErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		body := toError(err)
		if body.Code >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request().Context(), "Request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"error", err,
			)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(body.Code)
		} else {
			writeErr = c.JSON(body.Code, body)
		}
		if writeErr != nil {
			logger.ErrorContext(c.Request().Context(), "Failed to write error response", "error", writeErr)
		}
	}
}

func toError(err error) *Error {
	var (
		body       *Error
		httpErr    *echo.HTTPError
		requestErr *openapi3filter.RequestError
	)

	switch {
	case errors.As(err, &body):
		return body
	case errors.As(err, &httpErr):
		return newError(httpErr.Code, fmt.Sprint(httpErr.Message))
	case errors.As(err, &requestErr):
		return fromRequestError(requestErr)
	case errs.IsValidation(err):
		return newError(http.StatusUnprocessableEntity, err.Error(), errs.Fields(err)...)
	case errors.Is(err, errs.ErrObjectNotFound):
		return newError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrInvalidState), errors.Is(err, errs.ErrConfiguration), errors.Is(err, errs.ErrConflict):
		return newError(http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrAccessDenied):
		return newError(http.StatusForbidden, err.Error())
	default:
		return newError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

// fromRequestError maps a failed OpenAPI check. Payloads that could not be read
// are a 400, payloads that break a schema rule a 422 naming the offending field.
func fromRequestError(err *openapi3filter.RequestError) *Error {
	var schemaErr *openapi3.SchemaError
	if !errors.As(err.Err, &schemaErr) {
		return newError(http.StatusBadRequest, err.Error())
	}

	var field string
	switch {
	case err.Parameter != nil && err.Parameter.In == openapi3.ParameterInPath:
		return newError(http.StatusBadRequest,
			fmt.Sprintf("Invalid format for parameter %s: %s", err.Parameter.Name, schemaErr.Reason))
	case err.Parameter != nil:
		field = err.Parameter.Name
	default:
		field = strings.Join(schemaErr.JSONPointer(), ".")
	}
	if field == "" {
		return newError(http.StatusUnprocessableEntity, schemaErr.Reason)
	}
	return newError(http.StatusUnprocessableEntity, fmt.Sprintf("%s: %s", field, schemaErr.Reason), field)
}
