package lib

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// AppError is an operational error with a caller-facing HTTP status. Anything
// that is not an AppError is rendered as an opaque internal error.
type AppError struct {
	StatusCode int
	Message    string
	Errs       []string
}

func (e *AppError) Error() string {
	return e.Message
}

func NewAppError(message string, statusCode int, errs ...string) *AppError {
	return &AppError{StatusCode: statusCode, Message: message, Errs: errs}
}

func ErrUnauthorized(message string) *AppError {
	return NewAppError(message, http.StatusUnauthorized)
}

func ErrForbidden(message string) *AppError {
	return NewAppError(message, http.StatusForbidden)
}

func ErrNotFound(message string) *AppError {
	return NewAppError(message, http.StatusNotFound)
}

func ErrQuotaExceeded(message string) *AppError {
	return NewAppError(message, http.StatusTooManyRequests)
}

func ErrRateLimited(message string) *AppError {
	return NewAppError(message, http.StatusTooManyRequests)
}

func ErrBadGateway(message string) *AppError {
	return NewAppError(message, http.StatusBadGateway)
}

func ErrInternal(message string) *AppError {
	return NewAppError(message, http.StatusInternalServerError)
}

type errorBody struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// ErrorHandler renders every handler error as {success:false, message, errors}.
// Internal detail never reaches the caller in production mode.
func ErrorHandler(c *fiber.Ctx, err error) error {
	statusCode := http.StatusInternalServerError
	message := "Internal Server Error"
	errs := []string{}

	var appErr *AppError
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &appErr):
		statusCode = appErr.StatusCode
		message = appErr.Message
		if appErr.Errs != nil {
			errs = appErr.Errs
		}
	case errors.As(err, &fiberErr):
		statusCode = fiberErr.Code
		message = fiberErr.Message
	default:
		if GetConfig().Settings.Env == "development" {
			message = err.Error()
		}
	}

	if statusCode >= http.StatusInternalServerError {
		log.Errorw("request failed",
			"correlation_id", c.Locals("requestid"),
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
	}

	return c.Status(statusCode).JSON(errorBody{
		Success: false,
		Message: message,
		Errors:  errs,
	})
}
