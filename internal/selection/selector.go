package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/platform/logger"
	"github.com/phrazzld/lexis-api/internal/store"
)

// ErrEmptyPool is returned when no item with a translation could be found at all.
var ErrEmptyPool = errors.New("no vocabulary items available")

// Request identifies whose batch is being built and in which languages.
type Request struct {
	LearnerLanguageID     int64
	TargetLanguageID      int64
	TranslationLanguageID int64
	Level                 domain.Level
	PatchBoost            bool

	// BatchSize overrides Params.BatchSize when positive.
	BatchSize int
}

func (r Request) size(p Params) int {
	if r.BatchSize > 0 {
		return r.BatchSize
	}
	return p.BatchSize
}

// Sources groups the stores a selector reads from.
type Sources struct {
	Items        store.ItemStore
	Progress     store.ProgressStore
	Translations store.TranslationStore
}

func (s Sources) validate() {
	if s.Items == nil || s.Progress == nil || s.Translations == nil {
		panic("selection sources cannot be nil")
	}
}

// SourcesFrom returns the sources backed by s.
func SourcesFrom(s store.Store) Sources {
	return Sources{Items: s.Items(), Progress: s.Progress(), Translations: s.Translations()}
}

// ItemSelector composes practice batches for learners past onboarding.
type ItemSelector struct {
	src    Sources
	params Params
	opts   options
}

// NewItemSelector creates an ItemSelector. It panics if a source is nil.
func NewItemSelector(src Sources, params Params, opts ...Option) *ItemSelector {
	src.validate()
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With(slog.String("component", "item_selector"))
	return &ItemSelector{src: src, params: params, opts: o}
}

// SelectBatch returns exactly the requested number of items whenever the
// pool holds at least one translated item. Items repeat only when the pool
// is too small to fill the batch. Store failures are returned unchanged
// apart from wrapping.
func (s *ItemSelector) SelectBatch(ctx context.Context, req Request) ([]domain.SelectedItem, error) {
	started := s.opts.now()
	log := logger.FromContextOrDefault(ctx, s.opts.logger).With(
		slog.Int64("learner_language_id", req.LearnerLanguageID),
		slog.Int64("target_language_id", req.TargetLanguageID))

	level := req.Level
	if !level.Valid() {
		log.Warn("unknown level, clamping", slog.String("level", string(level)))
		level = level.Clamp()
	}

	recentRate, sampled, err := s.src.Progress.RecentSuccessRate(ctx, req.LearnerLanguageID, s.params.RecentSampleSize)
	if err != nil {
		return nil, fmt.Errorf("recent success rate: %w", err)
	}
	if sampled == 0 {
		recentRate = s.params.DefaultRecentRate
	}
	newCap := s.params.NewItemCap(recentRate)

	b := &batch{
		items:             s.src.Items,
		translations:      s.src.Translations,
		log:               log,
		rng:               s.opts.newRand(),
		size:              req.size(s.params),
		distractorCount:   s.params.DistractorCount,
		targetLanguageID:  req.TargetLanguageID,
		learnerLanguageID: req.LearnerLanguageID,
		translationLangID: req.TranslationLanguageID,
		exclude:           newIDSet(),
	}

	plans := buildPlans(s.params, planInput{
		tier:       level.Tier(),
		now:        started,
		newCap:     newCap,
		patchBoost: req.PatchBoost,
	})

	base := store.ItemQuery{
		TargetLanguageID:  req.TargetLanguageID,
		LearnerLanguageID: req.LearnerLanguageID,
	}
	leftovers := map[domain.Category][]domain.VocabularyItem{}
	for _, pl := range plans {
		candidates, err := runPlan(ctx, s.src.Items, pl, base, b.exclude)
		if err != nil {
			return nil, fmt.Errorf("select %s items: %w", pl.category, err)
		}
		leftovers[pl.category] = b.take(candidates, pl.quota, pl.category)
	}

	for _, category := range []domain.Category{
		domain.CategoryWeak,
		domain.CategoryReview,
		domain.CategoryNew,
		domain.CategoryStretch,
		domain.CategoryPatch,
	} {
		b.take(leftovers[category], b.remaining(), category)
	}

	if short := b.remaining(); short > 0 {
		log.Info("categories under-filled, padding batch",
			slog.Int("shortfall", short),
			slog.String("level", level.String()))
		if err := b.pad(ctx); err != nil {
			return nil, err
		}
	}

	items, err := b.finish(ctx)
	if err != nil {
		return nil, err
	}

	categories := counts(items)
	s.opts.metrics.BatchComposed(categories, b.shortfall, b.duplicates, s.opts.now().Sub(started))
	log.Debug("batch selected",
		slog.Int("size", len(items)),
		slog.Float64("recent_rate", recentRate),
		slog.Int("new_cap", newCap),
		slog.Int("dropped_untranslated", b.dropped),
		slog.Any("categories", categories))

	return items, nil
}
