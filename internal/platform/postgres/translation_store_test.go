package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresTranslationStore_Get(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresTranslationStore(db, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT text FROM translations")).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"text"}).AddRow("дом"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT text FROM translations")).
		WithArgs(int64(9), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"text"}))

	text, err := s.Get(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "дом", text)

	_, err = s.Get(context.Background(), 9, 2)
	assert.ErrorIs(t, err, store.ErrTranslationNotFound)
}

func TestPostgresTranslationStore_Distractors(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresTranslationStore(db, nil)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY distance, r")).
		WithArgs(int64(1), 2, int64(2), 3).
		WillReturnRows(sqlmock.NewRows([]string{"text"}).AddRow("кот").AddRow("пёс").AddRow("лес"))

	options, err := s.Distractors(context.Background(), 1, 2, 2, 3)

	require.NoError(t, err)
	assert.Equal(t, []string{"кот", "пёс", "лес"}, options)

	options, err = s.Distractors(context.Background(), 1, 2, 2, 0)
	require.NoError(t, err)
	assert.Empty(t, options)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTranslationStore_Upsert(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresTranslationStore(db, nil)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (item_id, language_id) DO UPDATE")).
		WithArgs(int64(1), int64(2), "дом").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Upsert(context.Background(), &domain.Translation{ItemID: 1, LanguageID: 2, Text: "дом"}))

	err := s.Upsert(context.Background(), &domain.Translation{ItemID: 1, LanguageID: 2})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.NoError(t, mock.ExpectationsWereMet())
}
