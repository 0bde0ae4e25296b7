package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"foodshare/internal/http/middleware"
	"foodshare/internal/model"
	"foodshare/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return writeFieldError(c, status, code, message, "")
}

func writeFieldError(c *fiber.Ctx, status int, code, message, field string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
			Field:   field,
		},
	}
	return c.Status(status).JSON(res)
}

// respondError maps a service error to its HTTP status. Unknown errors are
// kept in locals for the request logger and reported as opaque 500s.
func respondError(c *fiber.Ctx, err error) error {
	var se *service.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case service.ErrUnauthenticated:
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", se.Message)
		case service.ErrForbidden:
			return writeError(c, fiber.StatusForbidden, "FORBIDDEN", se.Message)
		case service.ErrNotFound:
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", se.Message)
		case service.ErrConflict:
			return writeError(c, fiber.StatusBadRequest, "CONFLICT", se.Message)
		case service.ErrValidation:
			return writeFieldError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", se.Message, se.Field)
		}
	}
	c.Locals(middleware.ErrorLocalKey, err)
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// requireActor writes a 401 for anonymous callers. Handlers that decode a
// body call it first so a bad payload never masks missing credentials.
func requireActor(c *fiber.Ctx) (model.Actor, bool) {
	actor := middleware.ActorFromCtx(c)
	if !actor.Authenticated() {
		_ = writeError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "authentication credentials were not provided")
		return actor, false
	}
	return actor, true
}

// AuthError is the middleware.Auth rejection writer.
func AuthError(c *fiber.Ctx, _ error) error {
	return writeError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "invalid or expired token")
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHENTICATED", "authentication required")
		case fiber.StatusForbidden:
			return writeError(c, status, "FORBIDDEN", "permission denied")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			c.Locals(middleware.ErrorLocalKey, err)
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
	}
}
