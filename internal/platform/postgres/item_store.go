package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/platform/logger"
	"github.com/phrazzld/lexis-api/internal/store"
)

// PostgresItemStore implements the store.ItemStore interface
// using a PostgreSQL database as the storage backend.
type PostgresItemStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresItemStore creates a new PostgreSQL implementation of the ItemStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresItemStore(db store.DBTX, logger *slog.Logger) *PostgresItemStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresItemStore{
		db:     db,
		logger: logger.With(slog.String("component", "item_store")),
	}
}

// Ensure PostgresItemStore implements store.ItemStore interface
var _ store.ItemStore = (*PostgresItemStore)(nil)

const itemColumns = "v.id, v.text, v.target_language_id, v.tier, v.frequency_rank"

// buildFindItemsQuery renders q as a single SELECT. Progress is LEFT JOINed so
// unseen items surface with NULL progress columns; ties in the requested
// order are broken randomly.
func buildFindItemsQuery(q store.ItemQuery) (string, []any) {
	args := []any{q.LearnerLanguageID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var where []string
	if q.TargetLanguageID != 0 {
		where = append(where, "v.target_language_id = "+arg(q.TargetLanguageID))
	}
	if q.Tier != 0 {
		where = append(where, "v.tier = "+arg(q.Tier))
	}
	if len(q.ExcludeIDs) > 0 {
		where = append(where, "v.id <> ALL("+arg(q.ExcludeIDs)+")")
	}

	switch q.Progress {
	case store.Unseen:
		where = append(where, "p.item_id IS NULL")
	case store.UnseenOrStale:
		if q.SeenBefore != nil {
			where = append(where, "(p.item_id IS NULL OR p.last_seen < "+arg(*q.SeenBefore)+")")
		} else {
			where = append(where, "p.item_id IS NULL")
		}
	case store.Seen:
		where = append(where, "p.item_id IS NOT NULL")
		if q.SeenBefore != nil {
			where = append(where, "p.last_seen < "+arg(*q.SeenBefore))
		}
		if q.HasBand() {
			var band []string
			if q.MinSuccessRate != nil {
				band = append(band, "p.success_rate >= "+arg(*q.MinSuccessRate))
			}
			if q.MaxSuccessRate != nil {
				band = append(band, "p.success_rate < "+arg(*q.MaxSuccessRate))
			}
			cond := "(" + strings.Join(band, " AND ") + ")"
			if q.OrLastAnswerWrong {
				cond = "(" + cond + " OR p.last_answer_wrong)"
			}
			where = append(where, cond)
		}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(itemColumns)
	b.WriteString("\nFROM vocabulary_items v")
	b.WriteString("\nLEFT JOIN progress_records p ON p.item_id = v.id AND p.learner_language_id = $1")
	if len(where) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(where, "\n  AND "))
	}

	b.WriteString("\nORDER BY ")
	switch q.Order {
	case store.OrderSuccessRate:
		b.WriteString("COALESCE(p.success_rate, 0) ASC, ")
	case store.OrderLastSeen:
		b.WriteString("p.last_seen ASC NULLS FIRST, ")
	case store.OrderRecentlySeen:
		b.WriteString("p.last_seen DESC NULLS LAST, ")
	case store.OrderFrequency:
		b.WriteString("v.frequency_rank ASC NULLS LAST, ")
	}
	b.WriteString("random()")
	b.WriteString("\nLIMIT " + arg(q.Limit))

	return b.String(), args
}

// FindItems implements store.ItemStore.FindItems
func (s *PostgresItemStore) FindItems(ctx context.Context, q store.ItemQuery) ([]domain.VocabularyItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if q.Limit <= 0 {
		return []domain.VocabularyItem{}, nil
	}

	query, args := buildFindItemsQuery(q)

	var items []domain.VocabularyItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		log.Error("failed to find items",
			slog.String("error", err.Error()),
			slog.Int64("learner_language_id", q.LearnerLanguageID),
			slog.Int("tier", q.Tier))
		return nil, MapError(err)
	}

	if items == nil {
		items = []domain.VocabularyItem{}
	}

	log.Debug("found items",
		slog.Int("count", len(items)),
		slog.Int("limit", q.Limit),
		slog.Int("tier", q.Tier))
	return items, nil
}

// Create implements store.ItemStore.Create
// Returns store.ErrItemExists if the text is already present in the target language.
func (s *PostgresItemStore) Create(ctx context.Context, item *domain.VocabularyItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := item.Validate(); err != nil {
		log.Warn("item validation failed during create",
			slog.String("error", err.Error()),
			slog.String("text", item.Text))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO vocabulary_items (text, target_language_id, tier, frequency_rank)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	err := s.db.GetContext(ctx, &id, query,
		item.Text,
		item.TargetLanguageID,
		item.Tier,
		item.FrequencyRank,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return MapUniqueViolation(err, store.ErrItemExists)
		}
		log.Error("failed to create item",
			slog.String("error", err.Error()),
			slog.String("text", item.Text))
		return MapError(err)
	}

	item.ID = id
	log.Debug("item created",
		slog.Int64("item_id", id),
		slog.Int("tier", item.Tier))
	return nil
}

// GetByText implements store.ItemStore.GetByText
func (s *PostgresItemStore) GetByText(ctx context.Context, targetLanguageID int64, text string) (*domain.VocabularyItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM vocabulary_items v
		WHERE v.target_language_id = $1 AND v.text = $2
	`
	var item domain.VocabularyItem
	if err := s.db.GetContext(ctx, &item, query, targetLanguageID, text); err != nil {
		if IsNotFoundError(err) {
			return nil, store.ErrItemNotFound
		}
		return nil, MapError(err)
	}
	return &item, nil
}
