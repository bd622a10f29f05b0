package evaluation

import (
	"time"

	"github.com/phrazzld/lexis-api/internal/domain"
)

// Transition is the result of advancing a learner's state by one evaluation.
type Transition struct {
	State        domain.LearnerLanguageState
	LevelChanged bool
	// Frozen reports whether level transitions were suspended.
	Frozen    bool
	LongBreak bool
}

// Advance applies one evaluation with the given WSR to state and returns the
// next state. It does not touch the store.
//
// A long break is detected from LastActiveAt. It sets the patch flag and
// starts a freeze covering this evaluation and FreezeEvaluations more.
// Streaks keep counting while frozen; a full streak fires on the first
// evaluation after the freeze ends. A streak that fires at either end of
// the scale is reset without moving the level.
func Advance(state domain.LearnerLanguageState, wsr float64, now time.Time, p Params) Transition {
	next := state
	next.Level = state.Level.Clamp()

	t := Transition{}
	if state.LastActiveAt != nil && now.Sub(*state.LastActiveAt) >= p.LongBreak {
		t.LongBreak = true
		t.Frozen = true
		next.FreezeRemaining = p.FreezeEvaluations
	} else if next.FreezeRemaining > 0 {
		t.Frozen = true
		next.FreezeRemaining--
	}
	next.PatchBoost = t.LongBreak || next.FreezeRemaining > 0

	switch {
	case wsr >= p.PromotionThreshold:
		next.PromotionStreak++
		next.DemotionStreak = 0
	case wsr < p.DemotionThreshold:
		next.DemotionStreak++
		next.PromotionStreak = 0
	default:
		next.PromotionStreak = 0
		next.DemotionStreak = 0
	}

	if !t.Frozen {
		switch {
		case next.PromotionStreak >= p.StreakLength:
			next.PromotionStreak = 0
			next.Level = next.Level.Next()
		case next.DemotionStreak >= p.StreakLength:
			next.DemotionStreak = 0
			next.Level = next.Level.Prev()
		}
	}

	if next.Level != state.Level {
		t.LevelChanged = true
		changed := now
		next.LevelChangedAt = &changed
	}

	active := now
	next.LastActiveAt = &active
	t.State = next
	return t
}
