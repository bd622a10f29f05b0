package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/store"
)

// pick is an item chosen for the batch before translations are attached.
type pick struct {
	item     domain.VocabularyItem
	category domain.Category
}

// batch accumulates picks for one selection call and turns them into
// SelectedItems. It is not safe for concurrent use.
type batch struct {
	items        store.ItemStore
	translations store.TranslationStore
	log          *slog.Logger
	rng          *rand.Rand

	size              int
	distractorCount   int
	targetLanguageID  int64
	learnerLanguageID int64
	translationLangID int64

	exclude *idSet
	picks   []pick

	// filled by finish
	shortfall  int
	duplicates int
	dropped    int
}

func (b *batch) remaining() int {
	return b.size - len(b.picks)
}

// take appends up to n candidates and returns the ones left over.
func (b *batch) take(candidates []domain.VocabularyItem, n int, category domain.Category) []domain.VocabularyItem {
	if n > b.remaining() {
		n = b.remaining()
	}
	if n > len(candidates) {
		n = len(candidates)
	}
	if n < 0 {
		n = 0
	}
	for _, item := range candidates[:n] {
		b.picks = append(b.picks, pick{item: item, category: category})
	}
	return candidates[n:]
}

// fetch adds up to n items matching q that are not excluded yet.
func (b *batch) fetch(ctx context.Context, q store.ItemQuery, category domain.Category, n int) error {
	if n > b.remaining() {
		n = b.remaining()
	}
	if n <= 0 {
		return nil
	}
	q.LearnerLanguageID = b.learnerLanguageID
	q.ExcludeIDs = b.exclude.slice()
	q.Limit = n

	found, err := b.items.FindItems(ctx, q)
	if err != nil {
		return err
	}
	for _, item := range found {
		if b.exclude.has(item.ID) || n <= 0 {
			continue
		}
		n--
		b.exclude.add(item.ID)
		b.picks = append(b.picks, pick{item: item, category: category})
	}
	return nil
}

// pad fills the batch with random items from the target language, then from
// any language.
func (b *batch) pad(ctx context.Context) error {
	if err := b.fetch(ctx, store.ItemQuery{TargetLanguageID: b.targetLanguageID}, domain.CategoryPadding, b.remaining()); err != nil {
		return fmt.Errorf("padding: %w", err)
	}
	if err := b.fetch(ctx, store.ItemQuery{}, domain.CategoryPadding, b.remaining()); err != nil {
		return fmt.Errorf("padding any language: %w", err)
	}
	return nil
}

// finish attaches translations, re-pads for items that had none, repeats
// items if the pool ran dry, and shuffles the result.
func (b *batch) finish(ctx context.Context) ([]domain.SelectedItem, error) {
	var out []domain.SelectedItem
	start := 0

	for round := 0; ; round++ {
		dropped := 0
		kept := b.picks[:start]
		for _, p := range b.picks[start:] {
			selected, ok, err := b.attach(ctx, p)
			if err != nil {
				return nil, err
			}
			if !ok {
				dropped++
				continue
			}
			kept = append(kept, p)
			out = append(out, selected)
		}
		b.picks = kept
		b.dropped += dropped
		start = len(b.picks)

		// Dropped ids stay excluded, so re-padding never returns them.
		if dropped == 0 || b.remaining() <= 0 || round >= maxTranslationRounds {
			break
		}
		if err := b.pad(ctx); err != nil {
			return nil, err
		}
		if len(b.picks) == start {
			break
		}
	}

	if len(out) == 0 {
		return nil, ErrEmptyPool
	}

	if short := b.size - len(out); short > 0 {
		b.shortfall = short
		b.log.Warn("item pool exhausted, repeating items to fill the batch",
			slog.Int("batch_size", b.size),
			slog.Int("unique_items", len(out)),
			slog.Int("shortfall", short))
		unique := len(out)
		for i := 0; i < short; i++ {
			src := out[i%unique]
			dup := src
			dup.Options = b.shuffled(src.Options)
			out = append(out, dup)
			b.duplicates++
		}
	}

	b.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out, nil
}

// attach resolves the translation and options for p. ok is false when the
// item has no translation in the requested language.
func (b *batch) attach(ctx context.Context, p pick) (domain.SelectedItem, bool, error) {
	correct, err := b.translations.Get(ctx, p.item.ID, b.translationLangID)
	if errors.Is(err, store.ErrTranslationNotFound) {
		b.log.Debug("dropping item without translation",
			slog.Int64("item_id", p.item.ID),
			slog.Int64("translation_language_id", b.translationLangID))
		return domain.SelectedItem{}, false, nil
	}
	if err != nil {
		return domain.SelectedItem{}, false, fmt.Errorf("translation for item %d: %w", p.item.ID, err)
	}

	var decoys []string
	if b.distractorCount > 0 {
		decoys, err = b.translations.Distractors(ctx, p.item.ID, p.item.Tier, b.translationLangID, b.distractorCount)
		if err != nil {
			return domain.SelectedItem{}, false, fmt.Errorf("distractors for item %d: %w", p.item.ID, err)
		}
	}

	return domain.SelectedItem{
		ItemID:             p.item.ID,
		Text:               p.item.Text,
		CorrectTranslation: correct,
		Options:            b.shuffled(buildOptions(correct, decoys)),
		Category:           p.category,
	}, true, nil
}

// buildOptions returns correct followed by the distinct decoys that differ
// from it, compared case-insensitively.
func buildOptions(correct string, decoys []string) []string {
	seen := map[string]bool{strings.ToLower(strings.TrimSpace(correct)): true}
	options := []string{correct}
	for _, d := range decoys {
		key := strings.ToLower(strings.TrimSpace(d))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		options = append(options, d)
	}
	return options
}

func (b *batch) shuffled(in []string) []string {
	out := append([]string(nil), in...)
	b.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// counts returns how many batch entries each category contributed.
func counts(items []domain.SelectedItem) map[domain.Category]int {
	out := map[domain.Category]int{}
	for _, item := range items {
		out[item.Category]++
	}
	return out
}
