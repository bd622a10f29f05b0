package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/platform/logger"
	"github.com/phrazzld/lexis-api/internal/store"
)

// PostgresProgressStore implements the store.ProgressStore interface
// using a PostgreSQL database as the storage backend.
type PostgresProgressStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresProgressStore creates a new PostgreSQL implementation of the ProgressStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresProgressStore(db store.DBTX, logger *slog.Logger) *PostgresProgressStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresProgressStore{
		db:     db,
		logger: logger.With(slog.String("component", "progress_store")),
	}
}

// Ensure PostgresProgressStore implements store.ProgressStore interface
var _ store.ProgressStore = (*PostgresProgressStore)(nil)

const progressColumns = `learner_language_id, item_id, repeats, successes, success_rate,
	last_seen, last_answer_wrong, session_id`

// Get implements store.ProgressStore.Get
func (s *PostgresProgressStore) Get(ctx context.Context, learnerLanguageID, itemID int64) (*domain.ProgressRecord, error) {
	query := `SELECT ` + progressColumns + `
		FROM progress_records
		WHERE learner_language_id = $1 AND item_id = $2`

	var rec domain.ProgressRecord
	if err := s.db.GetContext(ctx, &rec, query, learnerLanguageID, itemID); err != nil {
		if IsNotFoundError(err) {
			return nil, store.ErrProgressNotFound
		}
		return nil, MapError(err)
	}
	return &rec, nil
}

// upsertProgressQuery creates the record on first touch and otherwise folds
// the answer into the existing counters in the same statement, so concurrent
// answers for one item never lose an increment.
const upsertProgressQuery = `
	INSERT INTO progress_records (` + progressColumns + `)
	VALUES ($1, $2, 1, $3, $4, $5, $6, $7)
	ON CONFLICT (learner_language_id, item_id) DO UPDATE SET
		repeats = progress_records.repeats + 1,
		successes = progress_records.successes + EXCLUDED.successes,
		success_rate = 100.0 * (progress_records.successes + EXCLUDED.successes)
			/ (progress_records.repeats + 1),
		last_seen = EXCLUDED.last_seen,
		last_answer_wrong = EXCLUDED.last_answer_wrong,
		session_id = EXCLUDED.session_id
	RETURNING ` + progressColumns

// Upsert implements store.ProgressStore.Upsert
// Returns store.ErrInvalidEntity if the item or learner state does not exist.
func (s *PostgresProgressStore) Upsert(
	ctx context.Context,
	learnerLanguageID, itemID int64,
	correct bool,
	sessionID string,
	at time.Time,
) (*domain.ProgressRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	successes := 0
	if correct {
		successes = 1
	}

	var rec domain.ProgressRecord
	err := s.db.GetContext(ctx, &rec, upsertProgressQuery,
		learnerLanguageID,
		itemID,
		successes,
		domain.SuccessRate(successes, 1),
		at.UTC(),
		!correct,
		sessionID,
	)
	if err != nil {
		log.Error("failed to upsert progress",
			slog.String("error", err.Error()),
			slog.Int64("learner_language_id", learnerLanguageID),
			slog.Int64("item_id", itemID))
		return nil, store.NewStoreError("progress_record", "upsert", "failed to record answer", MapError(err))
	}

	log.Debug("progress recorded",
		slog.Int64("learner_language_id", learnerLanguageID),
		slog.Int64("item_id", itemID),
		slog.Bool("correct", correct),
		slog.Int("repeats", rec.Repeats))
	return &rec, nil
}

// Count implements store.ProgressStore.Count
func (s *PostgresProgressStore) Count(ctx context.Context, learnerLanguageID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM progress_records WHERE learner_language_id = $1`,
		learnerLanguageID)
	if err != nil {
		return 0, MapError(err)
	}
	return n, nil
}

// CountSession implements store.ProgressStore.CountSession
func (s *PostgresProgressStore) CountSession(ctx context.Context, learnerLanguageID int64, sessionID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM progress_records WHERE learner_language_id = $1 AND session_id = $2`,
		learnerLanguageID, sessionID)
	if err != nil {
		return 0, MapError(err)
	}
	return n, nil
}

type progressTotals struct {
	Successes int `db:"successes"`
	Repeats   int `db:"repeats"`
	Sampled   int `db:"sampled"`
}

// LastSeenOutside implements store.ProgressStore.LastSeenOutside
func (s *PostgresProgressStore) LastSeenOutside(
	ctx context.Context,
	learnerLanguageID int64,
	sessionID string,
) (*time.Time, error) {
	var last sql.NullTime
	err := s.db.GetContext(ctx, &last,
		`SELECT MAX(last_seen) FROM progress_records WHERE learner_language_id = $1 AND session_id <> $2`,
		learnerLanguageID, sessionID)
	if err != nil {
		return nil, MapError(err)
	}
	if !last.Valid {
		return nil, nil
	}
	at := last.Time.UTC()
	return &at, nil
}

// RecentSuccessRate implements store.ProgressStore.RecentSuccessRate
func (s *PostgresProgressStore) RecentSuccessRate(ctx context.Context, learnerLanguageID int64, sampleSize int) (float64, int, error) {
	query := `
		SELECT COALESCE(SUM(successes), 0) AS successes,
		       COALESCE(SUM(repeats), 0) AS repeats,
		       COUNT(*) AS sampled
		FROM (
			SELECT successes, repeats
			FROM progress_records
			WHERE learner_language_id = $1
			ORDER BY last_seen DESC, item_id
			LIMIT $2
		) recent
	`
	var totals progressTotals
	if err := s.db.GetContext(ctx, &totals, query, learnerLanguageID, sampleSize); err != nil {
		return 0, 0, MapError(err)
	}
	return domain.SuccessRate(totals.Successes, totals.Repeats), totals.Sampled, nil
}

type sessionTotals struct {
	SessionID string    `db:"session_id"`
	Successes int       `db:"successes"`
	Repeats   int       `db:"repeats"`
	Latest    time.Time `db:"latest"`
}

// SessionSuccessRates implements store.ProgressStore.SessionSuccessRates
// Records are grouped by the session that last touched them; the most
// recently active session comes first.
func (s *PostgresProgressStore) SessionSuccessRates(ctx context.Context, learnerLanguageID int64, sessionCount int) ([]float64, error) {
	query := `
		SELECT session_id,
		       SUM(successes) AS successes,
		       SUM(repeats) AS repeats,
		       MAX(last_seen) AS latest
		FROM progress_records
		WHERE learner_language_id = $1 AND session_id <> ''
		GROUP BY session_id
		ORDER BY latest DESC, session_id
		LIMIT $2
	`
	var sessions []sessionTotals
	if err := s.db.SelectContext(ctx, &sessions, query, learnerLanguageID, sessionCount); err != nil {
		return nil, MapError(err)
	}

	rates := make([]float64, 0, len(sessions))
	for _, sess := range sessions {
		rates = append(rates, domain.SuccessRate(sess.Successes, sess.Repeats))
	}
	return rates, nil
}
