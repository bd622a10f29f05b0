package evaluation

import (
	"fmt"
	"time"

	"github.com/phrazzld/lexis-api/internal/config"
)

// Params defines all configurable parameters for session evaluation.
// Rates and thresholds are percentages in [0, 100].
type Params struct {
	// Weights are applied to the most recent sessions first. Their count is
	// the number of sessions considered.
	Weights []float64

	PromotionThreshold float64
	DemotionThreshold  float64
	StreakLength       int

	// LongBreak is the inactivity gap that freezes the level.
	LongBreak time.Duration
	// FreezeEvaluations is how many evaluations after the detecting one
	// stay frozen.
	FreezeEvaluations int

	// NeutralRate is the WSR used when the learner has no session history.
	NeutralRate float64
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() Params {
	return Params{
		Weights:            []float64{3, 2, 1},
		PromotionThreshold: 85,
		DemotionThreshold:  55,
		StreakLength:       3,
		LongBreak:          14 * 24 * time.Hour,
		FreezeEvaluations:  2,
		NeutralRate:        50,
	}
}

// ParamsFromConfig maps the evaluation config section onto Params.
func ParamsFromConfig(cfg config.EvaluationConfig) Params {
	return Params{
		Weights:            append([]float64(nil), cfg.Weights...),
		PromotionThreshold: cfg.PromotionThreshold,
		DemotionThreshold:  cfg.DemotionThreshold,
		StreakLength:       cfg.StreakLength,
		LongBreak:          time.Duration(cfg.LongBreakDays) * 24 * time.Hour,
		FreezeEvaluations:  cfg.FreezeEvaluations,
		NeutralRate:        cfg.NeutralRate,
	}
}

// Validate checks that the parameters describe a usable state machine.
func (p Params) Validate() error {
	if len(p.Weights) == 0 {
		return fmt.Errorf("at least one session weight is required")
	}
	for _, w := range p.Weights {
		if w <= 0 {
			return fmt.Errorf("session weights must be positive: %v", p.Weights)
		}
	}
	if p.DemotionThreshold > p.PromotionThreshold {
		return fmt.Errorf("demotion threshold %.0f exceeds promotion threshold %.0f",
			p.DemotionThreshold, p.PromotionThreshold)
	}
	if p.StreakLength <= 0 {
		return fmt.Errorf("streak length must be positive, got %d", p.StreakLength)
	}
	if p.LongBreak <= 0 {
		return fmt.Errorf("long break must be positive, got %s", p.LongBreak)
	}
	if p.FreezeEvaluations < 0 {
		return fmt.Errorf("freeze evaluations cannot be negative, got %d", p.FreezeEvaluations)
	}
	return nil
}
