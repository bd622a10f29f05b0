package selection

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/testutils/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	targetLang      int64 = 3
	otherLang       int64 = 4
	translationLang int64 = 2
	learnerLang     int64 = 1
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// addItems seeds n translated items at tier and returns their ids.
func addItems(ms *memstore.Store, lang int64, tier, n int, prefix string) []int64 {
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		rank := i + 1
		text := fmt.Sprintf("%s-%d-%d", prefix, tier, i)
		ids = append(ids, ms.AddItem(text, lang, tier, &rank, map[int64]string{
			translationLang: "tr:" + text,
		}))
	}
	return ids
}

// addUntranslated seeds n items that have no translation.
func addUntranslated(ms *memstore.Store, lang int64, tier, n int, prefix string) []int64 {
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, ms.AddItem(fmt.Sprintf("%s-%d-%d", prefix, tier, i), lang, tier, nil, nil))
	}
	return ids
}

func seen(ms *memstore.Store, itemID int64, successes, repeats int, lastSeen time.Time, lastWrong bool) {
	ms.PutProgress(domain.ProgressRecord{
		LearnerLanguageID: learnerLang,
		ItemID:            itemID,
		Repeats:           repeats,
		Successes:         successes,
		SuccessRate:       domain.SuccessRate(successes, repeats),
		LastSeen:          lastSeen,
		LastAnswerWrong:   lastWrong,
		SessionID:         "earlier",
	})
}

func request(level domain.Level) Request {
	return Request{
		LearnerLanguageID:     learnerLang,
		TargetLanguageID:      targetLang,
		TranslationLanguageID: translationLang,
		Level:                 level,
	}
}

func newTestSelector(ms *memstore.Store, opts ...Option) *ItemSelector {
	opts = append([]Option{WithClock(fixedClock), WithSeed(42)}, opts...)
	return NewItemSelector(SourcesFrom(ms), NewDefaultParams(), opts...)
}

// assertWellFormed checks the per-entry option invariants.
func assertWellFormed(t *testing.T, items []domain.SelectedItem) {
	t.Helper()
	for _, item := range items {
		require.NotEmpty(t, item.CorrectTranslation, "item %d", item.ItemID)
		correct := 0
		unique := map[string]bool{}
		for _, opt := range item.Options {
			if opt == item.CorrectTranslation {
				correct++
			}
			assert.False(t, unique[opt], "duplicate option %q for item %d", opt, item.ItemID)
			unique[opt] = true
		}
		assert.Equal(t, 1, correct, "correct translation appears once for item %d", item.ItemID)
	}
}

func uniqueIDs(items []domain.SelectedItem) map[int64]bool {
	ids := map[int64]bool{}
	for _, item := range items {
		ids[item.ItemID] = true
	}
	return ids
}

type batchObservation struct {
	categories map[domain.Category]int
	shortfall  int
	duplicates int
}

// recordingMetrics captures every batch observation.
type recordingMetrics struct {
	mu      sync.Mutex
	batches []batchObservation
}

func (m *recordingMetrics) BatchComposed(categories map[domain.Category]int, shortfall, duplicates int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, batchObservation{categories, shortfall, duplicates})
}
