package selection

import (
	"fmt"
	"time"

	"github.com/phrazzld/lexis-api/internal/config"
)

// maxTranslationRounds bounds how often a batch is re-padded after items
// without a translation are dropped.
const maxTranslationRounds = 5

// Params defines all configurable parameters for batch selection.
// Success rates and thresholds are percentages in [0, 100].
type Params struct {
	BatchSize       int
	DistractorCount int

	// Weak: strict, fallback and last-resort success-rate ceilings
	WeakThreshold  float64
	WeakFallback   float64
	WeakLastResort float64
	WeakQuota      int
	WeakMinimum    int
	WeakPool       int

	// Review: strict floor, then the widened [ReviewFallback, ReviewThreshold) band
	ReviewThreshold float64
	ReviewFallback  float64
	ReviewQuota     int
	ReviewMinimum   int
	ReviewPool      int

	StretchQuota int
	StretchPool  int

	PatchQuota        int
	PatchBoostedQuota int

	ShortRecency  time.Duration
	MediumRecency time.Duration
	LongRecency   time.Duration

	// Adaptive new-item cap
	RecentSampleSize  int
	DefaultRecentRate float64
	NewItemBands      []float64
	NewItemCounts     []int

	// Onboarding compositions
	FirstSessionEasyItems  int
	SecondSessionReinforce int
	SecondSessionNewItems  int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() Params {
	return Params{
		BatchSize:       10,
		DistractorCount: 3,

		WeakThreshold:  50,
		WeakFallback:   65,
		WeakLastResort: 80,
		WeakQuota:      3,
		WeakMinimum:    2,
		WeakPool:       5,

		ReviewThreshold: 70,
		ReviewFallback:  60,
		ReviewQuota:     3,
		ReviewMinimum:   2,
		ReviewPool:      4,

		StretchQuota: 1,
		StretchPool:  2,

		PatchQuota:        1,
		PatchBoostedQuota: 3,

		ShortRecency:  24 * time.Hour,
		MediumRecency: 7 * 24 * time.Hour,
		LongRecency:   30 * 24 * time.Hour,

		RecentSampleSize:  20,
		DefaultRecentRate: 50,
		NewItemBands:      []float64{40, 60, 80},
		NewItemCounts:     []int{1, 2, 4, 5},

		FirstSessionEasyItems:  5,
		SecondSessionReinforce: 3,
		SecondSessionNewItems:  4,
	}
}

// ParamsFromConfig maps the selection and onboarding config sections onto Params.
func ParamsFromConfig(sel config.SelectionConfig, onboarding config.OnboardingConfig) Params {
	day := 24 * time.Hour
	return Params{
		BatchSize:       sel.BatchSize,
		DistractorCount: sel.DistractorCount,

		WeakThreshold:  sel.WeakThreshold,
		WeakFallback:   sel.WeakFallback,
		WeakLastResort: sel.WeakLastResort,
		WeakQuota:      sel.WeakQuota,
		WeakMinimum:    sel.WeakMinimum,
		WeakPool:       sel.WeakPool,

		ReviewThreshold: sel.ReviewThreshold,
		ReviewFallback:  sel.ReviewFallback,
		ReviewQuota:     sel.ReviewQuota,
		ReviewMinimum:   sel.ReviewMinimum,
		ReviewPool:      sel.ReviewPool,

		StretchQuota: sel.StretchQuota,
		StretchPool:  sel.StretchPool,

		PatchQuota:        sel.PatchQuota,
		PatchBoostedQuota: sel.PatchBoostedQuota,

		ShortRecency:  time.Duration(sel.ShortRecencyDays) * day,
		MediumRecency: time.Duration(sel.MediumRecencyDays) * day,
		LongRecency:   time.Duration(sel.LongRecencyDays) * day,

		RecentSampleSize:  sel.RecentSampleSize,
		DefaultRecentRate: sel.DefaultRecentRate,
		NewItemBands:      append([]float64(nil), sel.NewItemBands...),
		NewItemCounts:     append([]int(nil), sel.NewItemCounts...),

		FirstSessionEasyItems:  onboarding.FirstSessionEasyItems,
		SecondSessionReinforce: onboarding.SecondSessionReinforce,
		SecondSessionNewItems:  onboarding.SecondSessionNewItems,
	}
}

// Validate checks the relationships config validation cannot express.
func (p Params) Validate() error {
	if p.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", p.BatchSize)
	}
	if p.RecentSampleSize <= 0 {
		return fmt.Errorf("recent sample size must be positive, got %d", p.RecentSampleSize)
	}
	if len(p.NewItemCounts) != len(p.NewItemBands)+1 {
		return fmt.Errorf("need %d new-item counts for %d bands, got %d",
			len(p.NewItemBands)+1, len(p.NewItemBands), len(p.NewItemCounts))
	}
	for i := 1; i < len(p.NewItemBands); i++ {
		if p.NewItemBands[i] <= p.NewItemBands[i-1] {
			return fmt.Errorf("new-item bands must be ascending: %v", p.NewItemBands)
		}
	}
	if p.WeakThreshold > p.WeakFallback || p.WeakFallback > p.WeakLastResort {
		return fmt.Errorf("weak thresholds must not decrease: %.0f, %.0f, %.0f",
			p.WeakThreshold, p.WeakFallback, p.WeakLastResort)
	}
	if p.ReviewFallback > p.ReviewThreshold {
		return fmt.Errorf("review fallback %.0f exceeds review threshold %.0f",
			p.ReviewFallback, p.ReviewThreshold)
	}
	return nil
}

// NewItemCap maps a recent success rate onto the new-item count of the first
// band whose threshold the rate falls below; rates at or above every band
// get the last count.
func (p Params) NewItemCap(rate float64) int {
	for i, band := range p.NewItemBands {
		if rate < band {
			return p.NewItemCounts[i]
		}
	}
	return p.NewItemCounts[len(p.NewItemCounts)-1]
}
