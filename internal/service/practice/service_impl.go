package practice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/evaluation"
	"github.com/phrazzld/lexis-api/internal/platform/logger"
	"github.com/phrazzld/lexis-api/internal/selection"
	"github.com/phrazzld/lexis-api/internal/store"
)

// BatchSelector composes a practice batch. The onboarding selector returns
// nil once the learner is past onboarding.
type BatchSelector interface {
	SelectBatch(ctx context.Context, req selection.Request) ([]domain.SelectedItem, error)
}

// SessionEvaluator decides level changes at the end of a session.
type SessionEvaluator interface {
	Evaluate(ctx context.Context, learnerLanguageID int64, sessionID string, currentLevel domain.Level) evaluation.Outcome
}

// Verify interface compliance at compile time
var (
	_ Service          = (*serviceImpl)(nil)
	_ BatchSelector    = (*selection.ItemSelector)(nil)
	_ BatchSelector    = (*selection.OnboardingSelector)(nil)
	_ SessionEvaluator = (*evaluation.Evaluator)(nil)
)

// serviceImpl implements the Service interface.
type serviceImpl struct {
	store         store.Store
	onboarding    BatchSelector
	selector      BatchSelector
	evaluator     SessionEvaluator
	startingLevel domain.Level
	logger        *slog.Logger
	now           func() time.Time
}

// NewService creates a new practice Service.
func NewService(
	st store.Store,
	onboarding BatchSelector,
	selector BatchSelector,
	evaluator SessionEvaluator,
	startingLevel domain.Level,
	logger *slog.Logger,
) Service {
	if st == nil {
		panic("store cannot be nil")
	}
	if onboarding == nil {
		panic("onboarding selector cannot be nil")
	}
	if selector == nil {
		panic("selector cannot be nil")
	}
	if evaluator == nil {
		panic("evaluator cannot be nil")
	}
	if !startingLevel.Valid() {
		panic("starting level must be valid")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &serviceImpl{
		store:         st,
		onboarding:    onboarding,
		selector:      selector,
		evaluator:     evaluator,
		startingLevel: startingLevel,
		logger:        logger.With(slog.String("component", "practice_service")),
		now:           time.Now,
	}
}

// StartSession implements Service.StartSession.
func (s *serviceImpl) StartSession(ctx context.Context, req SessionRequest) (*Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.Int64("learner_id", req.LearnerID),
		slog.Int64("target_language_id", req.TargetLanguageID))

	state, err := s.store.Learners().GetOrCreate(ctx, req.LearnerID, req.TargetLanguageID, s.startingLevel)
	if err != nil {
		log.Error("failed to load learner state", slog.String("error", err.Error()))
		return nil, NewServiceError("start_session", "failed to load learner state", err)
	}

	selReq := selection.Request{
		LearnerLanguageID:     state.ID,
		TargetLanguageID:      req.TargetLanguageID,
		TranslationLanguageID: req.TranslationLanguageID,
		Level:                 state.Level,
		PatchBoost:            state.PatchBoost,
	}

	onboarding := true
	items, err := s.onboarding.SelectBatch(ctx, selReq)
	if err == nil && items == nil {
		onboarding = false
		items, err = s.selector.SelectBatch(ctx, selReq)
	}
	if err != nil {
		if errors.Is(err, selection.ErrEmptyPool) {
			log.Warn("no items to practice")
			return nil, ErrNoItems
		}
		log.Error("failed to select batch", slog.String("error", err.Error()))
		return nil, NewServiceError("start_session", "failed to select batch", err)
	}

	session := &Session{
		ID:         uuid.NewString(),
		Items:      items,
		Onboarding: onboarding,
		Level:      state.Level,
	}
	log.Info("session started",
		slog.String("session_id", session.ID),
		slog.String("level", state.Level.String()),
		slog.Bool("onboarding", onboarding),
		slog.Int("items", len(items)))
	return session, nil
}

// SubmitAnswer implements Service.SubmitAnswer.
func (s *serviceImpl) SubmitAnswer(
	ctx context.Context,
	learnerID, targetLanguageID int64,
	in AnswerInput,
) (*AnswerResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.Int64("learner_id", learnerID),
		slog.Int64("item_id", in.ItemID))

	if _, err := uuid.Parse(in.SessionID); err != nil {
		return nil, ErrInvalidSessionID
	}

	state, err := s.learnerState(ctx, "submit_answer", learnerID, targetLanguageID)
	if err != nil {
		return nil, err
	}

	correct, err := s.store.Translations().Get(ctx, in.ItemID, in.TranslationLanguageID)
	if err != nil {
		if errors.Is(err, store.ErrTranslationNotFound) {
			log.Warn("answer for unknown item or translation",
				slog.Int64("translation_language_id", in.TranslationLanguageID))
			return nil, ErrItemNotFound
		}
		log.Error("failed to load translation", slog.String("error", err.Error()))
		return nil, NewServiceError("submit_answer", "failed to load translation", err)
	}

	isCorrect := answersMatch(in.Answer, correct)
	if _, err := s.store.Progress().Upsert(ctx, state.ID, in.ItemID, isCorrect, in.SessionID, s.now()); err != nil {
		if errors.Is(err, store.ErrInvalidEntity) {
			return nil, ErrItemNotFound
		}
		log.Error("failed to record answer", slog.String("error", err.Error()))
		return nil, NewServiceError("submit_answer", "failed to record answer", err)
	}

	log.Debug("answer recorded",
		slog.String("session_id", in.SessionID),
		slog.Bool("correct", isCorrect))
	return &AnswerResult{Correct: isCorrect, CorrectTranslation: correct}, nil
}

// FinishSession implements Service.FinishSession.
func (s *serviceImpl) FinishSession(
	ctx context.Context,
	learnerID, targetLanguageID int64,
	sessionID string,
) (*SessionResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.Int64("learner_id", learnerID),
		slog.String("session_id", sessionID))

	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, ErrInvalidSessionID
	}

	state, err := s.learnerState(ctx, "finish_session", learnerID, targetLanguageID)
	if err != nil {
		return nil, err
	}

	answered, err := s.store.Progress().CountSession(ctx, state.ID, sessionID)
	if err != nil {
		log.Error("failed to count session answers", slog.String("error", err.Error()))
		return nil, NewServiceError("finish_session", "failed to count session answers", err)
	}
	if answered == 0 {
		return nil, ErrSessionNotFound
	}

	out := s.evaluator.Evaluate(ctx, state.ID, sessionID, state.Level)
	result := &SessionResult{
		Status:     SessionStatusCompleted,
		ExtraPatch: out.ExtraPatch,
		Degraded:   out.Degraded,
	}
	if out.LevelChanged {
		level := out.Level
		result.NewLevel = &level
	}

	log.Info("session finished",
		slog.Int("answered", answered),
		slog.Float64("wsr", out.WSR),
		slog.String("level", out.Level.String()),
		slog.Bool("extra_patch", out.ExtraPatch),
		slog.Bool("repeated", out.Repeated))
	return result, nil
}

// GetLearnerState implements Service.GetLearnerState.
func (s *serviceImpl) GetLearnerState(
	ctx context.Context,
	learnerID, targetLanguageID int64,
) (*domain.LearnerLanguageState, error) {
	return s.learnerState(ctx, "get_learner_state", learnerID, targetLanguageID)
}

func (s *serviceImpl) learnerState(
	ctx context.Context,
	operation string,
	learnerID, targetLanguageID int64,
) (*domain.LearnerLanguageState, error) {
	state, err := s.store.Learners().Get(ctx, learnerID, targetLanguageID)
	if err != nil {
		if errors.Is(err, store.ErrLearnerStateNotFound) {
			return nil, ErrLearnerStateNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load learner state",
			slog.String("operation", operation),
			slog.String("error", err.Error()))
		return nil, NewServiceError(operation, "failed to load learner state", err)
	}
	return state, nil
}

// answersMatch compares answers ignoring surrounding space and case.
func answersMatch(given, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(given), strings.TrimSpace(correct))
}
