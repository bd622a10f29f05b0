package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/platform/logger"
	"github.com/phrazzld/lexis-api/internal/store"
)

// PostgresLearnerStore implements the store.LearnerStore interface
// using a PostgreSQL database as the storage backend.
type PostgresLearnerStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresLearnerStore creates a new PostgreSQL implementation of the LearnerStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresLearnerStore(db store.DBTX, logger *slog.Logger) *PostgresLearnerStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresLearnerStore{
		db:     db,
		logger: logger.With(slog.String("component", "learner_store")),
	}
}

// Ensure PostgresLearnerStore implements store.LearnerStore interface
var _ store.LearnerStore = (*PostgresLearnerStore)(nil)

const learnerColumns = `id, learner_id, target_language_id, level, promotion_streak, demotion_streak,
	patch_boost, freeze_remaining, last_evaluated_session_id, last_active_at, level_changed_at,
	created_at, updated_at`

// GetOrCreate implements store.LearnerStore.GetOrCreate
// The insert is a no-op when the row exists, so concurrent first sessions
// converge on one state.
func (s *PostgresLearnerStore) GetOrCreate(
	ctx context.Context,
	learnerID, targetLanguageID int64,
	start domain.Level,
) (*domain.LearnerLanguageState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	state, err := domain.NewLearnerLanguageState(learnerID, targetLanguageID, start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO learner_languages (learner_id, target_language_id, level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (learner_id, target_language_id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, learnerID, targetLanguageID, state.Level, state.CreatedAt)
	if err != nil {
		log.Error("failed to create learner state",
			slog.String("error", err.Error()),
			slog.Int64("learner_id", learnerID),
			slog.Int64("target_language_id", targetLanguageID))
		return nil, MapError(err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		log.Info("learner state created",
			slog.Int64("learner_id", learnerID),
			slog.Int64("target_language_id", targetLanguageID),
			slog.String("level", start.String()))
	}

	return s.Get(ctx, learnerID, targetLanguageID)
}

// Get implements store.LearnerStore.Get
func (s *PostgresLearnerStore) Get(ctx context.Context, learnerID, targetLanguageID int64) (*domain.LearnerLanguageState, error) {
	query := `SELECT ` + learnerColumns + `
		FROM learner_languages
		WHERE learner_id = $1 AND target_language_id = $2`

	var state domain.LearnerLanguageState
	if err := s.db.GetContext(ctx, &state, query, learnerID, targetLanguageID); err != nil {
		if IsNotFoundError(err) {
			return nil, store.ErrLearnerStateNotFound
		}
		return nil, MapError(err)
	}
	return &state, nil
}

// GetForUpdate implements store.LearnerStore.GetForUpdate
// The row lock lasts until the surrounding transaction ends.
func (s *PostgresLearnerStore) GetForUpdate(ctx context.Context, id int64) (*domain.LearnerLanguageState, error) {
	query := `SELECT ` + learnerColumns + `
		FROM learner_languages
		WHERE id = $1
		FOR UPDATE`

	var state domain.LearnerLanguageState
	if err := s.db.GetContext(ctx, &state, query, id); err != nil {
		if IsNotFoundError(err) {
			return nil, store.ErrLearnerStateNotFound
		}
		return nil, MapError(err)
	}
	return &state, nil
}

func (s *PostgresLearnerStore) update(ctx context.Context, op string, id int64, query string, args ...any) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		log.Error("failed to update learner state",
			slog.String("error", err.Error()),
			slog.String("operation", op),
			slog.Int64("learner_language_id", id))
		return store.NewStoreError("learner_language", op, "update failed", MapError(err))
	}
	if err := CheckRowsAffected(result, "learner language state"); err != nil {
		return fmt.Errorf("%w: %w", store.ErrLearnerStateNotFound, err)
	}
	return nil
}

// SetLevel implements store.LearnerStore.SetLevel
func (s *PostgresLearnerStore) SetLevel(ctx context.Context, id int64, level domain.Level, changedAt time.Time) error {
	if !level.Valid() {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrInvalidLevel)
	}
	return s.update(ctx, "set_level", id, `
		UPDATE learner_languages
		SET level = $2, level_changed_at = $3, updated_at = NOW()
		WHERE id = $1`, level, changedAt.UTC())
}

// SetStreaks implements store.LearnerStore.SetStreaks
func (s *PostgresLearnerStore) SetStreaks(ctx context.Context, id int64, promotion, demotion int) error {
	return s.update(ctx, "set_streaks", id, `
		UPDATE learner_languages
		SET promotion_streak = $2, demotion_streak = $3, updated_at = NOW()
		WHERE id = $1`, promotion, demotion)
}

// SetPatchFlag implements store.LearnerStore.SetPatchFlag
func (s *PostgresLearnerStore) SetPatchFlag(ctx context.Context, id int64, patch bool, freezeRemaining int) error {
	return s.update(ctx, "set_patch_flag", id, `
		UPDATE learner_languages
		SET patch_boost = $2, freeze_remaining = $3, updated_at = NOW()
		WHERE id = $1`, patch, freezeRemaining)
}

// Touch implements store.LearnerStore.Touch
func (s *PostgresLearnerStore) Touch(ctx context.Context, id int64, sessionID string, at time.Time) error {
	return s.update(ctx, "touch", id, `
		UPDATE learner_languages
		SET last_active_at = $2, last_evaluated_session_id = $3, updated_at = NOW()
		WHERE id = $1`, at.UTC(), sessionID)
}
