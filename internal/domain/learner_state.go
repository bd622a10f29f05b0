package domain

import (
	"fmt"
	"time"
)

// LearnerLanguageState is a learner's standing in one target language.
// Only the session evaluator changes Level.
type LearnerLanguageState struct {
	ID               int64 `json:"id" db:"id"`
	LearnerID        int64 `json:"learner_id" db:"learner_id"`
	TargetLanguageID int64 `json:"target_language_id" db:"target_language_id"`
	Level            Level `json:"level" db:"level"`

	// Consecutive evaluations at or above the promotion threshold, and
	// below the demotion threshold.
	PromotionStreak int `json:"promotion_streak" db:"promotion_streak"`
	DemotionStreak  int `json:"demotion_streak" db:"demotion_streak"`

	// PatchBoost widens the Patch quota of the next batches after a long break.
	PatchBoost bool `json:"patch_boost" db:"patch_boost"`
	// FreezeRemaining counts evaluations that may not change the level.
	FreezeRemaining int `json:"freeze_remaining" db:"freeze_remaining"`

	// LastEvaluatedSessionID is the session the last evaluation ran for.
	// A repeated finish of that session must not be evaluated again.
	LastEvaluatedSessionID string `json:"last_evaluated_session_id,omitempty" db:"last_evaluated_session_id"`

	LastActiveAt   *time.Time `json:"last_active_at,omitempty" db:"last_active_at"`
	LevelChangedAt *time.Time `json:"level_changed_at,omitempty" db:"level_changed_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// NewLearnerLanguageState creates the state for a learner's first contact
// with a target language.
func NewLearnerLanguageState(learnerID, targetLanguageID int64, start Level) (*LearnerLanguageState, error) {
	now := time.Now().UTC()
	state := &LearnerLanguageState{
		LearnerID:        learnerID,
		TargetLanguageID: targetLanguageID,
		Level:            start,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := state.Validate(); err != nil {
		return nil, err
	}
	return state, nil
}

// Validate checks if the state has valid data.
func (s *LearnerLanguageState) Validate() error {
	if s.LearnerID <= 0 {
		return fmt.Errorf("%w: learner", ErrInvalidID)
	}
	if s.TargetLanguageID <= 0 {
		return fmt.Errorf("%w: target language", ErrInvalidID)
	}
	if !s.Level.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLevel, s.Level)
	}
	if s.PromotionStreak < 0 || s.DemotionStreak < 0 || s.FreezeRemaining < 0 {
		return fmt.Errorf("%w: negative counter", ErrValidation)
	}
	return nil
}

// Evaluated reports whether the last evaluation ran for sessionID.
func (s *LearnerLanguageState) Evaluated(sessionID string) bool {
	return sessionID != "" && s.LastEvaluatedSessionID == sessionID
}

// LevelChangedAtLastEvaluation reports whether the last evaluation moved
// the level. Both timestamps are stamped with the same instant then.
func (s *LearnerLanguageState) LevelChangedAtLastEvaluation() bool {
	return s.LevelChangedAt != nil && s.LastActiveAt != nil && s.LevelChangedAt.Equal(*s.LastActiveAt)
}

// Frozen reports whether level transitions are currently suspended.
func (s *LearnerLanguageState) Frozen() bool {
	return s.FreezeRemaining > 0
}
