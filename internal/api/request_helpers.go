package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/lexis-api/internal/api/shared"
	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/platform/logger"
)

// getLearnerIDFromContext extracts the learner id placed in the request
// context by the identity middleware.
//
// Returns:
//   - (id, true): the learner id
//   - (0, false): no learner id was found
func getLearnerIDFromContext(r *http.Request) (int64, bool) {
	return shared.GetLearnerID(r.Context())
}

// getPathInt64 parses a positive integer path parameter.
//
// Returns:
//   - (id, nil): the parsed id
//   - (0, error): the parameter is missing, malformed or not positive, wrapping domain.ErrInvalidID
func getPathInt64(r *http.Request, paramName string) (int64, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return 0, fmt.Errorf("%s is required: %w", paramName, domain.ErrInvalidID)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s has invalid format: %w", paramName, domain.ErrInvalidID)
	}
	return id, nil
}

// requireLearnerID writes a 401 and returns false when the request carries
// no learner identity.
func requireLearnerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	learnerID, ok := getLearnerIDFromContext(r)
	if !ok {
		logger.FromContext(r.Context()).Warn("learner id not found in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Missing learner identity")
		return 0, false
	}
	return learnerID, true
}

// decodeAndValidate decodes an optional JSON body into v and validates it,
// writing a 400 on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) bool {
	decode := shared.DecodeJSON
	if optional {
		decode = shared.DecodeOptionalJSON
	}

	if err := decode(r, v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return false
	}
	return true
}

// HandleAPIError maps err to a status code and safe message and writes the
// error response. fallbackMsg replaces the generic message of unmapped errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallbackMsg string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallbackMsg != "" {
		message = fallbackMsg
	}

	logger.FromContext(r.Context()).Debug("mapped API error",
		slog.Int("status_code", status),
		slog.String("user_message", message))

	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

func orDefault(id, fallback int64) int64 {
	if id > 0 {
		return id
	}
	return fallback
}
