package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var learnerRowColumns = []string{
	"id", "learner_id", "target_language_id", "level", "promotion_streak", "demotion_streak",
	"patch_boost", "freeze_remaining", "last_evaluated_session_id", "last_active_at", "level_changed_at",
	"created_at", "updated_at",
}

func TestPostgresLearnerStore_GetOrCreate(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresLearnerStore(db, nil)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (learner_id, target_language_id) DO NOTHING")).
		WithArgs(int64(5), int64(3), domain.LevelA2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE learner_id = $1 AND target_language_id = $2")).
		WithArgs(int64(5), int64(3)).
		WillReturnRows(sqlmock.NewRows(learnerRowColumns).
			AddRow(int64(1), int64(5), int64(3), "A2", 0, 0, false, 0, "", nil, nil, now, now))

	state, err := s.GetOrCreate(context.Background(), 5, 3, domain.LevelA2)

	require.NoError(t, err)
	assert.Equal(t, int64(1), state.ID)
	assert.Equal(t, domain.LevelA2, state.Level)
	assert.Nil(t, state.LastActiveAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLearnerStore_GetOrCreateInvalidLevel(t *testing.T) {
	db, _ := newMockDB(t)
	s := NewPostgresLearnerStore(db, nil)

	_, err := s.GetOrCreate(context.Background(), 5, 3, domain.Level("Z9"))
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestPostgresLearnerStore_GetForUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresLearnerStore(db, nil)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(learnerRowColumns).
			AddRow(int64(1), int64(5), int64(3), "B1", 2, 0, true, 1, "sess-9", now, now, now, now))

	state, err := s.GetForUpdate(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, 2, state.PromotionStreak)
	assert.True(t, state.PatchBoost)
	assert.Equal(t, 1, state.FreezeRemaining)
	assert.True(t, state.Evaluated("sess-9"))
	require.NotNil(t, state.LastActiveAt)
}

func TestPostgresLearnerStore_Updates(t *testing.T) {
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		fragment string
		args     []driver.Value
		call     func(s *PostgresLearnerStore) error
	}{
		{
			name:     "set level",
			fragment: "SET level = $2, level_changed_at = $3",
			args:     []driver.Value{int64(1), domain.LevelB1, at},
			call: func(s *PostgresLearnerStore) error {
				return s.SetLevel(context.Background(), 1, domain.LevelB1, at)
			},
		},
		{
			name:     "set streaks",
			fragment: "SET promotion_streak = $2, demotion_streak = $3",
			args:     []driver.Value{int64(1), 2, 0},
			call: func(s *PostgresLearnerStore) error {
				return s.SetStreaks(context.Background(), 1, 2, 0)
			},
		},
		{
			name:     "set patch flag",
			fragment: "SET patch_boost = $2, freeze_remaining = $3",
			args:     []driver.Value{int64(1), true, 2},
			call: func(s *PostgresLearnerStore) error {
				return s.SetPatchFlag(context.Background(), 1, true, 2)
			},
		},
		{
			name:     "touch",
			fragment: "SET last_active_at = $2, last_evaluated_session_id = $3",
			args:     []driver.Value{int64(1), at, "sess-1"},
			call: func(s *PostgresLearnerStore) error {
				return s.Touch(context.Background(), 1, "sess-1", at)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			s := NewPostgresLearnerStore(db, nil)

			mock.ExpectExec(regexp.QuoteMeta(tt.fragment)).
				WithArgs(tt.args...).
				WillReturnResult(sqlmock.NewResult(0, 1))

			require.NoError(t, tt.call(s))
			assert.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run(tt.name+" missing row", func(t *testing.T) {
			db, mock := newMockDB(t)
			s := NewPostgresLearnerStore(db, nil)

			mock.ExpectExec(regexp.QuoteMeta(tt.fragment)).
				WillReturnResult(sqlmock.NewResult(0, 0))

			err := tt.call(s)
			assert.ErrorIs(t, err, store.ErrLearnerStateNotFound)
		})
	}
}

func TestPostgresLearnerStore_UpdateFailureIsStoreError(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresLearnerStore(db, nil)
	boom := errors.New("connection reset")

	mock.ExpectExec(regexp.QuoteMeta("SET promotion_streak = $2")).
		WillReturnError(boom)

	err := s.SetStreaks(context.Background(), 1, 1, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var storeErr *store.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "learner_language", storeErr.Entity)
	assert.Equal(t, "set_streaks", storeErr.Operation)
}

func TestPostgresLearnerStore_SetLevelRejectsUnknownLevel(t *testing.T) {
	db, _ := newMockDB(t)
	s := NewPostgresLearnerStore(db, nil)

	err := s.SetLevel(context.Background(), 1, domain.Level("X"), time.Now())
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}
