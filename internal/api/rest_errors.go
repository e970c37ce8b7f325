package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/fluxfilter/internal/query"
	"github.com/fluxbase-eu/fluxfilter/internal/schema"
	"github.com/fluxbase-eu/fluxfilter/internal/validation"
)

// Error codes returned in ErrorResponse.Code
const (
	CodeInvalidFilterName   = "INVALID_FILTER_NAME"
	CodePropertyResolution  = "PROPERTY_RESOLUTION"
	CodeValueCoercion       = "VALUE_COERCION"
	CodeEnumLookup          = "ENUM_LOOKUP"
	CodeInvalidPagination   = "INVALID_PAGINATION"
	CodeInvalidQuery        = "INVALID_QUERY"
	CodeUnknownEntity       = "UNKNOWN_ENTITY"
	CodeUnknownValidationID = "UNKNOWN_VALIDATION_ID"
	CodeInternal            = "INTERNAL_ERROR"
)

// getRequestID extracts the request ID from the Fiber context.
// It first checks the requestid middleware local, then falls back to the X-Request-ID header.
func getRequestID(c *fiber.Ctx) string {
	if requestID := c.Locals("requestid"); requestID != nil {
		if id, ok := requestID.(string); ok && id != "" {
			return id
		}
	}
	return c.Get("X-Request-ID", "")
}

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// SendErrorWithCode sends a standardized error response with error code and request ID
func SendErrorWithCode(c *fiber.Ctx, statusCode int, errMsg, code, message string) error {
	return c.Status(statusCode).JSON(ErrorResponse{
		Error:     errMsg,
		Code:      code,
		Message:   message,
		RequestID: getRequestID(c),
	})
}

// classifyError maps an engine error to its HTTP status, title and code
func classifyError(err error) (int, string, string) {
	var enumErr *schema.EnumLookupError

	switch {
	case errors.Is(err, query.ErrInvalidFilterName):
		return fiber.StatusBadRequest, "Invalid filter name", CodeInvalidFilterName
	case errors.As(err, &enumErr):
		return fiber.StatusBadRequest, "Unknown enum constant", CodeEnumLookup
	case errors.Is(err, schema.ErrPropertyResolution):
		return fiber.StatusBadRequest, "Property could not be resolved", CodePropertyResolution
	case errors.Is(err, query.ErrValueCoercion):
		return fiber.StatusBadRequest, "Value could not be converted", CodeValueCoercion
	case errors.Is(err, query.ErrInvalidPagination):
		return fiber.StatusBadRequest, "Invalid paging parameters", CodeInvalidPagination
	case errors.Is(err, schema.ErrUnknownEntity):
		return fiber.StatusNotFound, "Entity not found", CodeUnknownEntity
	case errors.Is(err, validation.ErrUnknownID):
		return fiber.StatusNotFound, "Validation id not found", CodeUnknownValidationID
	default:
		return fiber.StatusInternalServerError, "Internal server error", CodeInternal
	}
}

// handleEngineError returns an error response for a failure of the filter
// engine, the schema or the validation cache. Unclassified errors are logged
// and their text is not sent to the client.
func handleEngineError(c *fiber.Ctx, err error, operation string) error {
	status, title, code := classifyError(err)

	if status >= fiber.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("operation", operation).
			Str("request_id", getRequestID(c)).
			Msg("Request failed")
		return SendErrorWithCode(c, status, title, code, "")
	}

	return SendErrorWithCode(c, status, title, code, err.Error())
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	if code >= 500 {
		log.Error().Err(err).Str("path", c.Path()).Msg("Server error")
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:     message,
		RequestID: getRequestID(c),
	})
}
