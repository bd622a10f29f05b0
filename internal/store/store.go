package store

import (
	"context"
	"time"

	"github.com/phrazzld/lexis-api/internal/domain"
)

// ItemStore defines the interface for vocabulary item persistence.
type ItemStore interface {
	// FindItems returns at most q.Limit items matching q, ordered by q.Order
	// with random tie-breaks. Returns an empty slice when nothing matches.
	FindItems(ctx context.Context, q ItemQuery) ([]domain.VocabularyItem, error)

	// Create saves a new item and sets its ID.
	// Returns ErrItemExists if the text already exists in the target language.
	Create(ctx context.Context, item *domain.VocabularyItem) error

	// GetByText retrieves an item by its exact text within a target language.
	// Returns ErrItemNotFound if it does not exist.
	GetByText(ctx context.Context, targetLanguageID int64, text string) (*domain.VocabularyItem, error)
}

// ProgressStore defines the interface for per-learner, per-item progress.
type ProgressStore interface {
	// Get retrieves a single progress record.
	// Returns ErrProgressNotFound if the learner has never answered the item.
	Get(ctx context.Context, learnerLanguageID, itemID int64) (*domain.ProgressRecord, error)

	// Upsert applies one answer atomically: creates the record on first
	// exposure, increments repeats (and successes when correct), recomputes
	// the success rate and stamps last_seen, last_answer_wrong and session_id.
	Upsert(
		ctx context.Context,
		learnerLanguageID, itemID int64,
		correct bool,
		sessionID string,
		at time.Time,
	) (*domain.ProgressRecord, error)

	// Count returns how many items the learner has a record for.
	Count(ctx context.Context, learnerLanguageID int64) (int, error)

	// CountSession returns how many records were last touched by sessionID.
	CountSession(ctx context.Context, learnerLanguageID int64, sessionID string) (int, error)

	// RecentSuccessRate aggregates successes/repeats over the sampleSize most
	// recently seen records, as a percentage. sampled is the number of records
	// that contributed; when it is zero the rate is meaningless.
	RecentSuccessRate(ctx context.Context, learnerLanguageID int64, sampleSize int) (rate float64, sampled int, err error)

	// SessionSuccessRates groups records by session id and returns each
	// session's success percentage, most recent session first, for at most
	// sessionCount sessions.
	SessionSuccessRates(ctx context.Context, learnerLanguageID int64, sessionCount int) ([]float64, error)

	// LastSeenOutside returns the latest answer time of the learner outside
	// sessionID, or nil when there is none.
	LastSeenOutside(ctx context.Context, learnerLanguageID int64, sessionID string) (*time.Time, error)
}

// LearnerStore defines the interface for learner-language state.
type LearnerStore interface {
	// GetOrCreate returns the state for the learner and target language,
	// creating it at level start on first access.
	GetOrCreate(ctx context.Context, learnerID, targetLanguageID int64, start domain.Level) (*domain.LearnerLanguageState, error)

	// Get retrieves the state for the learner and target language.
	// Returns ErrLearnerStateNotFound if it does not exist.
	Get(ctx context.Context, learnerID, targetLanguageID int64) (*domain.LearnerLanguageState, error)

	// GetForUpdate retrieves the state by its id and locks it until the
	// surrounding transaction ends. Concurrent evaluations of the same
	// learner-language pair therefore run one after the other.
	// Returns ErrLearnerStateNotFound if it does not exist.
	GetForUpdate(ctx context.Context, id int64) (*domain.LearnerLanguageState, error)

	// SetLevel stores a new level and the time of the change.
	SetLevel(ctx context.Context, id int64, level domain.Level, changedAt time.Time) error

	// SetStreaks stores the promotion and demotion streak counters.
	SetStreaks(ctx context.Context, id int64, promotion, demotion int) error

	// SetPatchFlag stores the patch boost flag and the remaining freeze count.
	SetPatchFlag(ctx context.Context, id int64, patch bool, freezeRemaining int) error

	// Touch stamps the learner's last activity time and records sessionID as
	// the last evaluated session.
	Touch(ctx context.Context, id int64, sessionID string, at time.Time) error
}

// TranslationStore defines the interface for item translations.
type TranslationStore interface {
	// Get returns the translation of an item in a language.
	// Returns ErrTranslationNotFound if none exists.
	Get(ctx context.Context, itemID, languageID int64) (string, error)

	// Distractors returns up to count distinct translations of other items in
	// the same target language, preferring items closest to tier. The item's
	// own translation is never returned.
	Distractors(ctx context.Context, itemID int64, tier int, languageID int64, count int) ([]string, error)

	// Upsert creates or replaces the translation of an item in a language.
	Upsert(ctx context.Context, t *domain.Translation) error
}

// Store groups the entity stores and runs work inside a transaction.
type Store interface {
	Items() ItemStore
	Progress() ProgressStore
	Learners() LearnerStore
	Translations() TranslationStore

	// WithinTx runs fn with a Store whose entity stores share a single
	// transaction. The transaction commits if fn returns nil and rolls back
	// otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
