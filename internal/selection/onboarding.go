package selection

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/platform/logger"
	"github.com/phrazzld/lexis-api/internal/store"
)

const (
	easiestTier  = domain.MinTier
	beginnerTier = domain.MinTier + 1
)

// OnboardingSelector composes the first two sessions of a learner who has
// less than one batch of history in the target language.
type OnboardingSelector struct {
	src    Sources
	params Params
	opts   options
}

// NewOnboardingSelector creates an OnboardingSelector. It panics if a source is nil.
func NewOnboardingSelector(src Sources, params Params, opts ...Option) *OnboardingSelector {
	src.validate()
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With(slog.String("component", "onboarding_selector"))
	return &OnboardingSelector{src: src, params: params, opts: o}
}

// Active reports whether the learner is still onboarding.
func (s *OnboardingSelector) Active(ctx context.Context, req Request) (bool, error) {
	seen, err := s.src.Progress.Count(ctx, req.LearnerLanguageID)
	if err != nil {
		return false, fmt.Errorf("count progress: %w", err)
	}
	return seen < req.size(s.params), nil
}

// SelectBatch returns the onboarding batch, or nil with no error once the
// learner has at least a batch worth of progress records.
//
// The first session mixes the most frequent easiest-tier items with unseen
// beginner-tier items. The second session repeats some recently seen items,
// adds unseen beginner-tier items and fills the rest with unseen
// easiest-tier items. Both are padded and sized like ItemSelector batches.
func (s *OnboardingSelector) SelectBatch(ctx context.Context, req Request) ([]domain.SelectedItem, error) {
	started := s.opts.now()
	log := logger.FromContextOrDefault(ctx, s.opts.logger).With(
		slog.Int64("learner_language_id", req.LearnerLanguageID))

	size := req.size(s.params)
	seen, err := s.src.Progress.Count(ctx, req.LearnerLanguageID)
	if err != nil {
		return nil, fmt.Errorf("count progress: %w", err)
	}
	if seen >= size {
		return nil, nil
	}

	b := &batch{
		items:             s.src.Items,
		translations:      s.src.Translations,
		log:               log,
		rng:               s.opts.newRand(),
		size:              size,
		distractorCount:   s.params.DistractorCount,
		targetLanguageID:  req.TargetLanguageID,
		learnerLanguageID: req.LearnerLanguageID,
		translationLangID: req.TranslationLanguageID,
		exclude:           newIDSet(),
	}
	lang := req.TargetLanguageID

	var steps []onboardingStep
	session := 1
	if seen == 0 {
		steps = []onboardingStep{
			{domain.CategoryNew, store.ItemQuery{TargetLanguageID: lang, Tier: easiestTier, Order: store.OrderFrequency}, s.params.FirstSessionEasyItems},
			{domain.CategoryNew, store.ItemQuery{TargetLanguageID: lang, Tier: beginnerTier, Progress: store.Unseen, Order: store.OrderFrequency}, size},
		}
	} else {
		session = 2
		steps = []onboardingStep{
			{domain.CategoryReinforce, store.ItemQuery{TargetLanguageID: lang, Progress: store.Seen, Order: store.OrderRecentlySeen}, s.params.SecondSessionReinforce},
			{domain.CategoryNew, store.ItemQuery{TargetLanguageID: lang, Tier: beginnerTier, Progress: store.Unseen, Order: store.OrderFrequency}, s.params.SecondSessionNewItems},
			{domain.CategoryNew, store.ItemQuery{TargetLanguageID: lang, Tier: easiestTier, Progress: store.Unseen, Order: store.OrderFrequency}, size},
		}
	}

	for _, st := range steps {
		if err := b.fetch(ctx, st.query, st.category, st.limit); err != nil {
			return nil, fmt.Errorf("onboarding session %d: %w", session, err)
		}
	}

	if short := b.remaining(); short > 0 {
		log.Info("onboarding pool under-filled, padding batch",
			slog.Int("session", session),
			slog.Int("shortfall", short))
		if err := b.pad(ctx); err != nil {
			return nil, err
		}
	}

	items, err := b.finish(ctx)
	if err != nil {
		return nil, err
	}

	s.opts.metrics.BatchComposed(counts(items), b.shortfall, b.duplicates, s.opts.now().Sub(started))
	log.Debug("onboarding batch selected",
		slog.Int("session", session),
		slog.Int("size", len(items)))
	return items, nil
}

type onboardingStep struct {
	category domain.Category
	query    store.ItemQuery
	limit    int
}
