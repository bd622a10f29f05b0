package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/lexis-api/internal/api/shared"
	"github.com/phrazzld/lexis-api/internal/platform/logger"
	"github.com/phrazzld/lexis-api/internal/service/practice"
)

// LanguageDefaults are the language ids used when a request omits them.
type LanguageDefaults struct {
	TargetLanguageID      int64
	TranslationLanguageID int64
}

// PracticeHandler handles practice session HTTP requests.
type PracticeHandler struct {
	service  practice.Service
	defaults LanguageDefaults
	logger   *slog.Logger
}

// NewPracticeHandler creates a new PracticeHandler.
func NewPracticeHandler(service practice.Service, defaults LanguageDefaults, logger *slog.Logger) *PracticeHandler {
	if service == nil {
		panic("service cannot be nil for PracticeHandler")
	}
	if defaults.TargetLanguageID <= 0 || defaults.TranslationLanguageID <= 0 {
		panic("language defaults must be positive for PracticeHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PracticeHandler{
		service:  service,
		defaults: defaults,
		logger:   logger.With(slog.String("component", "practice_handler")),
	}
}

// StartSession handles POST /api/sessions.
func (h *PracticeHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := requireLearnerID(w, r)
	if !ok {
		return
	}

	var req StartSessionRequest
	if !decodeAndValidate(w, r, &req, true) {
		return
	}

	session, err := h.service.StartSession(r.Context(), practice.SessionRequest{
		LearnerID:             learnerID,
		TargetLanguageID:      orDefault(req.TargetLanguageID, h.defaults.TargetLanguageID),
		TranslationLanguageID: orDefault(req.TranslationLanguageID, h.defaults.TranslationLanguageID),
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start session")
		return
	}

	log.Debug("session started",
		slog.String("session_id", session.ID),
		slog.Int("items", len(session.Items)),
		slog.Bool("onboarding", session.Onboarding))

	shared.RespondWithJSON(w, r, http.StatusCreated, sessionToResponse(session))
}

// SubmitAnswer handles POST /api/sessions/{sessionId}/answers.
func (h *PracticeHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := requireLearnerID(w, r)
	if !ok {
		return
	}

	var req SubmitAnswerRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	result, err := h.service.SubmitAnswer(r.Context(), learnerID,
		orDefault(req.TargetLanguageID, h.defaults.TargetLanguageID),
		practice.AnswerInput{
			SessionID:             chi.URLParam(r, "sessionId"),
			ItemID:                req.ItemID,
			Answer:                req.Answer,
			TranslationLanguageID: orDefault(req.TranslationLanguageID, h.defaults.TranslationLanguageID),
		})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit answer")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AnswerResponse{
		IsCorrect:          result.Correct,
		CorrectTranslation: result.CorrectTranslation,
	})
}

// FinishSession handles POST /api/sessions/{sessionId}/finish.
func (h *PracticeHandler) FinishSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := requireLearnerID(w, r)
	if !ok {
		return
	}

	var req FinishSessionRequest
	if !decodeAndValidate(w, r, &req, true) {
		return
	}

	sessionID := chi.URLParam(r, "sessionId")
	result, err := h.service.FinishSession(r.Context(), learnerID,
		orDefault(req.TargetLanguageID, h.defaults.TargetLanguageID), sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to finish session")
		return
	}

	if result.Degraded {
		log.Warn("session finished without evaluation", slog.String("session_id", sessionID))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, sessionResultToResponse(result))
}
