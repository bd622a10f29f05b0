package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewLearnerLanguageState(t *testing.T) {
	t.Parallel()

	state, err := NewLearnerLanguageState(5, 3, LevelA2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Level != LevelA2 {
		t.Errorf("Level = %s, want A2", state.Level)
	}
	if state.PromotionStreak != 0 || state.DemotionStreak != 0 || state.Frozen() || state.PatchBoost {
		t.Error("a new state starts with clear counters")
	}
	if state.CreatedAt.IsZero() || state.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}
}

func TestLearnerLanguageStateValidate(t *testing.T) {
	t.Parallel()

	if _, err := NewLearnerLanguageState(0, 3, LevelA2); !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID for learner, got %v", err)
	}
	if _, err := NewLearnerLanguageState(1, 3, Level("X")); !errors.Is(err, ErrInvalidLevel) {
		t.Errorf("expected ErrInvalidLevel, got %v", err)
	}

	state := &LearnerLanguageState{LearnerID: 1, TargetLanguageID: 1, Level: LevelB1, FreezeRemaining: -1}
	if err := state.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestLearnerLanguageStateEvaluated(t *testing.T) {
	t.Parallel()

	state := LearnerLanguageState{LastEvaluatedSessionID: "s-1"}
	if !state.Evaluated("s-1") {
		t.Error("the stored session is evaluated")
	}
	if state.Evaluated("s-2") {
		t.Error("another session is not evaluated")
	}
	if (&LearnerLanguageState{}).Evaluated("") {
		t.Error("an empty session id never matches")
	}
}

func TestLevelChangedAtLastEvaluation(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	earlier := at.Add(-48 * time.Hour)

	tests := []struct {
		name    string
		changed *time.Time
		active  *time.Time
		want    bool
	}{
		{"never changed", nil, &at, false},
		{"changed at last evaluation", &at, &at, true},
		{"changed earlier", &earlier, &at, false},
		{"never active", &at, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := LearnerLanguageState{LevelChangedAt: tt.changed, LastActiveAt: tt.active}
			if got := state.LevelChangedAtLastEvaluation(); got != tt.want {
				t.Errorf("LevelChangedAtLastEvaluation() = %v, want %v", got, tt.want)
			}
		})
	}
}
