package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/service/practice"
	"github.com/phrazzld/lexis-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so that
// internal error types never leak to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, practice.ErrNoItems),
		errors.Is(err, practice.ErrLearnerStateNotFound),
		errors.Is(err, practice.ErrItemNotFound),
		errors.Is(err, practice.ErrSessionNotFound),
		store.IsNotFoundError(err):
		return http.StatusNotFound

	case errors.Is(err, practice.ErrInvalidSessionID),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, practice.ErrNoItems):
		return "No vocabulary available for this language"
	case errors.Is(err, practice.ErrLearnerStateNotFound):
		return "No practice history for this language"
	case errors.Is(err, practice.ErrItemNotFound):
		return "Vocabulary item not found"
	case errors.Is(err, practice.ErrSessionNotFound):
		return "Session not found"
	case errors.Is(err, practice.ErrInvalidSessionID):
		return "Invalid session id"
	case store.IsNotFoundError(err):
		return "Not found"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator errors into a message naming the
// first offending field. Anything else becomes a generic message.
func SanitizeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "Validation error"
	}

	fe := fieldErrs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "gt", "gte", "min":
		return "too small"
	case "lt", "lte", "max":
		return "too large"
	case "uuid", "uuid4":
		return "invalid id format"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
