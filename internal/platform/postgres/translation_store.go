package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/platform/logger"
	"github.com/phrazzld/lexis-api/internal/store"
)

// PostgresTranslationStore implements the store.TranslationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTranslationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTranslationStore creates a new PostgreSQL implementation of the TranslationStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresTranslationStore(db store.DBTX, logger *slog.Logger) *PostgresTranslationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTranslationStore{
		db:     db,
		logger: logger.With(slog.String("component", "translation_store")),
	}
}

// Ensure PostgresTranslationStore implements store.TranslationStore interface
var _ store.TranslationStore = (*PostgresTranslationStore)(nil)

// Get implements store.TranslationStore.Get
func (s *PostgresTranslationStore) Get(ctx context.Context, itemID, languageID int64) (string, error) {
	var text string
	err := s.db.GetContext(ctx, &text,
		`SELECT text FROM translations WHERE item_id = $1 AND language_id = $2`,
		itemID, languageID)
	if err != nil {
		if IsNotFoundError(err) {
			return "", store.ErrTranslationNotFound
		}
		return "", MapError(err)
	}
	return text, nil
}

// Distractors implements store.TranslationStore.Distractors
// Candidates come from other items of the same target language, closest tier
// first, and never repeat the item's own translation.
func (s *PostgresTranslationStore) Distractors(
	ctx context.Context,
	itemID int64,
	tier int,
	languageID int64,
	count int,
) ([]string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if count <= 0 {
		return []string{}, nil
	}

	query := `
		SELECT text FROM (
			SELECT DISTINCT ON (t.text) t.text, ABS(v.tier - $2) AS distance, random() AS r
			FROM translations t
			JOIN vocabulary_items v ON v.id = t.item_id
			JOIN vocabulary_items src ON src.id = $1
			WHERE t.language_id = $3
			  AND v.id <> $1
			  AND v.target_language_id = src.target_language_id
			  AND t.text <> COALESCE(
			      (SELECT own.text FROM translations own
			       WHERE own.item_id = $1 AND own.language_id = $3), '')
			ORDER BY t.text, distance
		) candidates
		ORDER BY distance, r
		LIMIT $4
	`
	var options []string
	if err := s.db.SelectContext(ctx, &options, query, itemID, tier, languageID, count); err != nil {
		log.Error("failed to select distractors",
			slog.String("error", err.Error()),
			slog.Int64("item_id", itemID))
		return nil, MapError(err)
	}
	if options == nil {
		options = []string{}
	}
	return options, nil
}

// Upsert implements store.TranslationStore.Upsert
func (s *PostgresTranslationStore) Upsert(ctx context.Context, t *domain.Translation) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO translations (item_id, language_id, text)
		VALUES ($1, $2, $3)
		ON CONFLICT (item_id, language_id) DO UPDATE SET text = EXCLUDED.text
	`
	if _, err := s.db.ExecContext(ctx, query, t.ItemID, t.LanguageID, t.Text); err != nil {
		return MapError(err)
	}
	return nil
}
