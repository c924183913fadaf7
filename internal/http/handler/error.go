package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"portfolioapi/internal/auth"
	"portfolioapi/internal/http/middleware"
	"portfolioapi/internal/ordering"
	"portfolioapi/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// badRequest is a request decoding failure with a client-safe code and message.
type badRequest struct {
	code    string
	message string
}

func (e badRequest) Error() string { return e.message }

// writeError writes a standardized JSON error response.
// message must be safe to show to clients.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: middleware.RequestIDFrom(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// respondError maps a service or auth error onto the error payload.
// Validation messages are passed through; store and internal failures are not.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "ID_REQUIRED", "id is required")
	case errors.Is(err, ordering.ErrIndexOutOfRange):
		return writeError(c, fiber.StatusBadRequest, "INDEX_OUT_OF_RANGE", err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, service.ErrIngestion):
		return writeError(c, fiber.StatusUnprocessableEntity, "INGESTION_FAILED", err.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		return writeError(c, fiber.StatusServiceUnavailable, "STORE_UNAVAILABLE", "store unavailable")
	case errors.Is(err, auth.ErrUnauthorized):
		return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
	case errors.Is(err, auth.ErrForbidden):
		return writeError(c, fiber.StatusForbidden, "FORBIDDEN", "admin access required")
	}

	var br badRequest
	if errors.As(err, &br) {
		return writeError(c, fiber.StatusBadRequest, br.code, br.message)
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return writeFiberError(c, fe.Code)
	}
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

func writeFiberError(c *fiber.Ctx, status int) error {
	switch status {
	case fiber.StatusBadRequest:
		return writeError(c, status, "BAD_REQUEST", "bad request")
	case fiber.StatusNotFound:
		return writeError(c, status, "NOT_FOUND", "resource not found")
	case fiber.StatusMethodNotAllowed:
		return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
	case fiber.StatusRequestEntityTooLarge:
		return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
	case fiber.StatusTooManyRequests:
		return writeError(c, status, "RATE_LIMITED", "too many requests")
	default:
		return writeError(c, status, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return respondError(c, err)
	}
}
