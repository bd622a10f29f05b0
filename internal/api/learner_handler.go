package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/lexis-api/internal/api/shared"
	"github.com/phrazzld/lexis-api/internal/platform/logger"
	"github.com/phrazzld/lexis-api/internal/service/practice"
)

// LearnerHandler serves a learner's standing per target language.
type LearnerHandler struct {
	service practice.Service
	logger  *slog.Logger
}

// NewLearnerHandler creates a new LearnerHandler.
func NewLearnerHandler(service practice.Service, logger *slog.Logger) *LearnerHandler {
	if service == nil {
		panic("service cannot be nil for LearnerHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LearnerHandler{
		service: service,
		logger:  logger.With(slog.String("component", "learner_handler")),
	}
}

// GetLanguageState handles GET /api/learners/me/languages/{targetLanguageId}.
func (h *LearnerHandler) GetLanguageState(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := requireLearnerID(w, r)
	if !ok {
		return
	}

	targetLanguageID, err := getPathInt64(r, "targetLanguageId")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	state, err := h.service.GetLearnerState(r.Context(), learnerID, targetLanguageID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load learner state")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("learner state served",
		slog.Int64("target_language_id", targetLanguageID),
		slog.String("level", state.Level.String()))

	shared.RespondWithJSON(w, r, http.StatusOK, learnerStateToResponse(state))
}
