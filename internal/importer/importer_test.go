package importer_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/importer"
	"github.com/phrazzld/lexis-api/internal/platform/logger"
	"github.com/phrazzld/lexis-api/internal/store"
	"github.com/phrazzld/lexis-api/internal/testutils/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const (
	spanish int64 = 3
	english int64 = 2
)

// newWorkbook builds a single-sheet workbook with a header row followed by rows.
func newWorkbook(t *testing.T, rows ...[]interface{}) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })

	all := append([][]interface{}{{"text", "level", "rank", "translation"}}, rows...)
	for i, row := range all {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellRef, &row))
	}
	return f
}

func workbookBytes(t *testing.T, f *excelize.File) *bytes.Buffer {
	t.Helper()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImport(t *testing.T) {
	ms := memstore.New(1)
	l, logs := logger.NewTestLogger()
	im := importer.New(ms, l)
	ctx := context.Background()

	f := newWorkbook(t,
		[]interface{}{"casa", "A1", 1, "house"},
		[]interface{}{"perro", "a2", "", "dog"},
		[]interface{}{"casa", "A1", 1, "home"},
		[]interface{}{"gato", "D1", 3, "cat"},
		[]interface{}{"árbol", "B1", "abc", "tree"},
		[]interface{}{"", "", "", "orphan"},
		[]interface{}{"sol", "C2", 9, ""},
	)

	result, err := im.Import(ctx, workbookBytes(t, f), importer.DefaultConfig(spanish, english))

	require.NoError(t, err)
	assert.Equal(t, 7, result.Processed)
	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 3, result.Translations)
	assert.Equal(t, 3, result.Skipped)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "row 5")
	assert.Contains(t, result.Errors[1], "row 6")

	casa, err := ms.Items().GetByText(ctx, spanish, "casa")
	require.NoError(t, err)
	assert.Equal(t, 1, casa.Tier)
	require.NotNil(t, casa.FrequencyRank)
	assert.Equal(t, 1, *casa.FrequencyRank)
	tr, err := ms.Translations().Get(ctx, casa.ID, english)
	require.NoError(t, err)
	assert.Equal(t, "home", tr, "a later row replaces the translation")

	perro, err := ms.Items().GetByText(ctx, spanish, "perro")
	require.NoError(t, err)
	assert.Equal(t, domain.LevelA2.Tier(), perro.Tier)
	assert.Nil(t, perro.FrequencyRank)

	sol, err := ms.Items().GetByText(ctx, spanish, "sol")
	require.NoError(t, err)
	assert.Equal(t, domain.MaxTier, sol.Tier)
	_, err = ms.Translations().Get(ctx, sol.ID, english)
	assert.ErrorIs(t, err, store.ErrTranslationNotFound)

	_, err = ms.Items().GetByText(ctx, spanish, "gato")
	assert.ErrorIs(t, err, store.ErrItemNotFound, "rejected rows create nothing")

	entries := logs.EntriesWithMessage("import finished")
	require.Len(t, entries, 1)
	assert.Equal(t, float64(3), entries[0]["created"])
}

func TestImportIsIdempotent(t *testing.T) {
	ms := memstore.New(1)
	im := importer.New(ms, nil)
	ctx := context.Background()
	f := newWorkbook(t,
		[]interface{}{"casa", "A1", 1, "house"},
		[]interface{}{"perro", "A2", 2, "dog"},
	)
	cfg := importer.DefaultConfig(spanish, english)

	first, err := im.Import(ctx, workbookBytes(t, f), cfg)
	require.NoError(t, err)
	second, err := im.Import(ctx, workbookBytes(t, f), cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, first.Created)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.Translations)
	assert.Empty(t, second.Errors)
}

func TestImportCustomLayout(t *testing.T) {
	ms := memstore.New(1)
	im := importer.New(ms, nil)
	ctx := context.Background()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	_, err := f.NewSheet("words")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("words", "A1", &[]interface{}{"maison", "house", "B2"}))

	cfg := importer.Config{
		Sheet:                 "words",
		TargetLanguageID:      4,
		TranslationLanguageID: english,
		TextColumn:            "A",
		TranslationColumn:     "B",
		LevelColumn:           "C",
		RankColumn:            "D",
		StartRow:              1,
	}
	result, err := im.Import(ctx, workbookBytes(t, f), cfg)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	item, err := ms.Items().GetByText(ctx, 4, "maison")
	require.NoError(t, err)
	assert.Equal(t, domain.LevelB2.Tier(), item.Tier)
}

func TestImportFile(t *testing.T) {
	ms := memstore.New(1)
	im := importer.New(ms, nil)

	f := newWorkbook(t, []interface{}{"casa", "A1", 1, "house"})
	path := filepath.Join(t.TempDir(), "vocabulary.xlsx")
	require.NoError(t, f.SaveAs(path))

	result, err := im.ImportFile(context.Background(), path, importer.DefaultConfig(spanish, english))

	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	_, err = im.ImportFile(context.Background(), filepath.Join(t.TempDir(), "absent.xlsx"),
		importer.DefaultConfig(spanish, english))
	assert.Error(t, err)
}

func TestImportErrors(t *testing.T) {
	ctx := context.Background()
	f := newWorkbook(t, []interface{}{"casa", "A1", 1, "house"})

	t.Run("invalid config", func(t *testing.T) {
		im := importer.New(memstore.New(1), nil)

		_, err := im.Import(ctx, workbookBytes(t, f), importer.DefaultConfig(0, english))
		assert.ErrorIs(t, err, domain.ErrInvalidID)

		cfg := importer.DefaultConfig(spanish, english)
		cfg.TextColumn = "1"
		_, err = im.Import(ctx, workbookBytes(t, f), cfg)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unknown sheet", func(t *testing.T) {
		im := importer.New(memstore.New(1), nil)
		cfg := importer.DefaultConfig(spanish, english)
		cfg.Sheet = "missing"

		_, err := im.Import(ctx, workbookBytes(t, f), cfg)
		assert.Error(t, err)
	})

	t.Run("not a workbook", func(t *testing.T) {
		im := importer.New(memstore.New(1), nil)

		_, err := im.Import(ctx, bytes.NewBufferString("text,level\n"), importer.DefaultConfig(spanish, english))
		assert.Error(t, err)
	})

	t.Run("store failure aborts", func(t *testing.T) {
		ms := memstore.New(1)
		ms.FailOn(memstore.OpCreateItem, assert.AnError)
		im := importer.New(ms, nil)

		result, err := im.Import(ctx, workbookBytes(t, f), importer.DefaultConfig(spanish, english))

		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "row 2")
		require.NotNil(t, result)
		assert.Equal(t, 0, result.Created)
	})

	t.Run("canceled context", func(t *testing.T) {
		im := importer.New(memstore.New(1), nil)
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := im.Import(canceled, workbookBytes(t, f), importer.DefaultConfig(spanish, english))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewPanicsOnNilStore(t *testing.T) {
	assert.Panics(t, func() { importer.New(nil, nil) })
}
