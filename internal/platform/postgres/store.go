package postgres

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/lexis-api/internal/store"
)

// Store bundles the PostgreSQL stores around a single connection or transaction.
type Store struct {
	db     *sqlx.DB
	conn   store.DBTX
	logger *slog.Logger

	items        *PostgresItemStore
	progress     *PostgresProgressStore
	learners     *PostgresLearnerStore
	translations *PostgresTranslationStore
}

// Ensure Store implements store.Store interface
var _ store.Store = (*Store)(nil)

// NewStore creates a Store backed by the connection pool db.
func NewStore(db *sqlx.DB, logger *slog.Logger) *Store {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return newStore(db, db, logger)
}

func newStore(db *sqlx.DB, conn store.DBTX, logger *slog.Logger) *Store {
	return &Store{
		db:           db,
		conn:         conn,
		logger:       logger,
		items:        NewPostgresItemStore(conn, logger),
		progress:     NewPostgresProgressStore(conn, logger),
		learners:     NewPostgresLearnerStore(conn, logger),
		translations: NewPostgresTranslationStore(conn, logger),
	}
}

// Items implements store.Store.
func (s *Store) Items() store.ItemStore { return s.items }

// Progress implements store.Store.
func (s *Store) Progress() store.ProgressStore { return s.progress }

// Learners implements store.Store.
func (s *Store) Learners() store.LearnerStore { return s.learners }

// Translations implements store.Store.
func (s *Store) Translations() store.TranslationStore { return s.translations }

// WithinTx runs fn with a Store bound to a new transaction. The transaction
// commits when fn returns nil and rolls back otherwise. Calling WithinTx on a
// Store that is already bound to a transaction reuses that transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	if _, inTx := s.conn.(*sqlx.Tx); inTx {
		return fn(ctx, s)
	}
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		return fn(ctx, newStore(s.db, tx, s.logger))
	})
}
