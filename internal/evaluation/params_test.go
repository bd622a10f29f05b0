package evaluation

import (
	"testing"
	"time"

	"github.com/phrazzld/lexis-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsFromConfig(t *testing.T) {
	p := ParamsFromConfig(config.EvaluationConfig{
		Weights:            []float64{5, 3, 1},
		PromotionThreshold: 90,
		DemotionThreshold:  50,
		StreakLength:       2,
		LongBreakDays:      21,
		FreezeEvaluations:  1,
		NeutralRate:        60,
	})

	assert.Equal(t, []float64{5, 3, 1}, p.Weights)
	assert.Equal(t, 90.0, p.PromotionThreshold)
	assert.Equal(t, 50.0, p.DemotionThreshold)
	assert.Equal(t, 2, p.StreakLength)
	assert.Equal(t, 21*24*time.Hour, p.LongBreak)
	assert.Equal(t, 1, p.FreezeEvaluations)
	assert.Equal(t, 60.0, p.NeutralRate)
	require.NoError(t, p.Validate())
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, NewDefaultParams().Validate())

	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"no weights", func(p *Params) { p.Weights = nil }},
		{"zero weight", func(p *Params) { p.Weights = []float64{3, 0} }},
		{"thresholds inverted", func(p *Params) { p.DemotionThreshold = 95 }},
		{"zero streak", func(p *Params) { p.StreakLength = 0 }},
		{"zero long break", func(p *Params) { p.LongBreak = 0 }},
		{"negative freeze", func(p *Params) { p.FreezeEvaluations = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewDefaultParams()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}
