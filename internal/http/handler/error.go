package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"meetnote/internal/http/middleware"
	"meetnote/internal/service"
	"meetnote/internal/storage"
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

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "NOT_FOUND", "NOT_CONFIGURED", "UPSTREAM_ERROR")
// - message: human-readable safe message
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeServiceError maps meeting service errors onto the envelope.
func writeServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "Meeting not found")
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "ID_REQUIRED", err.Error())
	case errors.Is(err, service.ErrEmptyRecording):
		return writeError(c, fiber.StatusBadRequest, "EMPTY_RECORDING", err.Error())
	case errors.Is(err, service.ErrNotRetriggerable):
		return writeError(c, fiber.StatusConflict, "NOT_RETRIGGERABLE", err.Error())
	case errors.Is(err, service.ErrNoAudio):
		return writeError(c, fiber.StatusConflict, "NO_AUDIO", err.Error())
	case errors.Is(err, service.ErrNotConfigured):
		return writeError(c, fiber.StatusServiceUnavailable, "NOT_CONFIGURED", err.Error())
	case errors.Is(err, storage.ErrObjectExists):
		return writeError(c, fiber.StatusConflict, "OBJECT_EXISTS", err.Error())
	default:
		// Storage, PostgREST and backend failures carry the upstream status text.
		return writeError(c, fiber.StatusBadGateway, "UPSTREAM_ERROR", err.Error())
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "recording too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
