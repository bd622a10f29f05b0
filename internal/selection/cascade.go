package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/store"
)

// stage is one query of a category cascade. The first stage of a plan always
// runs; a later stage runs only while the category holds fewer than
// runIfBelow candidates. limit caps the category's total candidates after
// the stage.
type stage struct {
	name       string
	query      store.ItemQuery
	runIfBelow int
	limit      int
}

// plan is the cascade for one category. quota is how many candidates the
// category contributes before top-up.
type plan struct {
	category domain.Category
	quota    int
	stages   []stage
}

// planInput carries the per-call values the plan tables depend on.
type planInput struct {
	tier       int
	now        time.Time
	newCap     int
	patchBoost bool
}

func rate(v float64) *float64 { return &v }

func before(now time.Time, d time.Duration) *time.Time {
	t := now.Add(-d)
	return &t
}

// buildPlans returns the category tables in the order they are queried and
// composed: weak, review, patch, stretch, new. New comes last so it only
// takes the space the other categories left.
func buildPlans(p Params, in planInput) []plan {
	d := in.tier
	plans := []plan{
		{
			category: domain.CategoryWeak,
			quota:    p.WeakQuota,
			stages: []stage{
				{
					name: "weak_strict",
					query: store.ItemQuery{
						Tier: d, Progress: store.Seen,
						MaxSuccessRate: rate(p.WeakThreshold), OrLastAnswerWrong: true,
						Order: store.OrderSuccessRate,
					},
					limit: p.WeakPool,
				},
				{
					name: "weak_fallback",
					query: store.ItemQuery{
						Tier: d, Progress: store.Seen,
						MaxSuccessRate: rate(p.WeakFallback),
						Order:          store.OrderSuccessRate,
					},
					runIfBelow: p.WeakQuota,
					limit:      p.WeakPool,
				},
				{
					name: "weak_last_resort",
					query: store.ItemQuery{
						Tier: d, Progress: store.Seen,
						MaxSuccessRate: rate(p.WeakLastResort),
						Order:          store.OrderSuccessRate,
					},
					runIfBelow: p.WeakMinimum,
					limit:      p.WeakPool,
				},
			},
		},
		{
			category: domain.CategoryReview,
			quota:    p.ReviewQuota,
			stages: []stage{
				{
					name: "review_strict",
					query: store.ItemQuery{
						Tier: d, Progress: store.Seen,
						MinSuccessRate: rate(p.ReviewThreshold),
						SeenBefore:     before(in.now, p.ShortRecency),
						Order:          store.OrderLastSeen,
					},
					limit: p.ReviewPool,
				},
				{
					name: "review_widened_band",
					query: store.ItemQuery{
						Tier: d, Progress: store.Seen,
						MinSuccessRate: rate(p.ReviewFallback),
						MaxSuccessRate: rate(p.ReviewThreshold),
						SeenBefore:     before(in.now, p.MediumRecency),
						Order:          store.OrderLastSeen,
					},
					runIfBelow: p.ReviewMinimum,
					limit:      p.ReviewPool,
				},
				{
					name: "review_long_unseen",
					query: store.ItemQuery{
						Tier: d, Progress: store.Seen,
						SeenBefore: before(in.now, p.LongRecency),
						Order:      store.OrderLastSeen,
					},
					runIfBelow: p.ReviewMinimum,
					limit:      p.ReviewPool,
				},
			},
		},
	}

	if d > domain.MinTier {
		quota := p.PatchQuota
		if in.patchBoost {
			quota = p.PatchBoostedQuota
		}
		plans = append(plans, plan{
			category: domain.CategoryPatch,
			quota:    quota,
			stages: []stage{{
				name: "patch",
				query: store.ItemQuery{
					Tier: d - 1, Progress: store.UnseenOrStale,
					SeenBefore: before(in.now, p.LongRecency),
					Order:      store.OrderFrequency,
				},
				limit: quota,
			}},
		})
	}

	if d < domain.MaxTier {
		plans = append(plans, plan{
			category: domain.CategoryStretch,
			quota:    p.StretchQuota,
			stages: []stage{{
				name: "stretch",
				query: store.ItemQuery{
					Tier: d + 1, Progress: store.UnseenOrStale,
					SeenBefore: before(in.now, p.MediumRecency),
					Order:      store.OrderFrequency,
				},
				limit: p.StretchPool,
			}},
		})
	}

	newStages := []stage{{
		name:  "new_current_tier",
		query: store.ItemQuery{Tier: d, Progress: store.Unseen, Order: store.OrderFrequency},
		limit: in.newCap,
	}}
	if d < domain.MaxTier {
		newStages = append(newStages, stage{
			name:       "new_tier_above",
			query:      store.ItemQuery{Tier: d + 1, Progress: store.Unseen, Order: store.OrderFrequency},
			runIfBelow: 1,
			limit:      in.newCap,
		})
	}
	if d > domain.MinTier {
		newStages = append(newStages, stage{
			name:       "new_tier_below",
			query:      store.ItemQuery{Tier: d - 1, Progress: store.Unseen, Order: store.OrderFrequency},
			runIfBelow: 1,
			limit:      in.newCap,
		})
	}
	plans = append(plans, plan{category: domain.CategoryNew, quota: in.newCap, stages: newStages})

	return plans
}

// runPlan executes pl's stages against items, never returning an id already
// in exclude. Ids it returns are added to exclude.
func runPlan(
	ctx context.Context,
	items store.ItemStore,
	pl plan,
	base store.ItemQuery,
	exclude *idSet,
) ([]domain.VocabularyItem, error) {
	var collected []domain.VocabularyItem

	for i, st := range pl.stages {
		if i > 0 && len(collected) >= st.runIfBelow {
			continue
		}
		want := st.limit - len(collected)
		if want <= 0 {
			continue
		}

		q := st.query
		q.TargetLanguageID = base.TargetLanguageID
		q.LearnerLanguageID = base.LearnerLanguageID
		q.ExcludeIDs = exclude.slice()
		q.Limit = want

		found, err := items.FindItems(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", st.name, err)
		}
		for _, item := range found {
			if exclude.has(item.ID) {
				continue
			}
			exclude.add(item.ID)
			collected = append(collected, item)
		}
	}

	return collected, nil
}

// idSet keeps insertion order so exclusion lists are deterministic.
type idSet struct {
	ids   []int64
	index map[int64]struct{}
}

func newIDSet() *idSet {
	return &idSet{index: map[int64]struct{}{}}
}

func (s *idSet) add(id int64) {
	if _, ok := s.index[id]; ok {
		return
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
}

func (s *idSet) has(id int64) bool {
	_, ok := s.index[id]
	return ok
}

func (s *idSet) slice() []int64 {
	return append([]int64(nil), s.ids...)
}
