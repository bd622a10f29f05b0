package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/store"
	"github.com/xuri/excelize/v2"
)

// Config describes where the data sits in the workbook.
type Config struct {
	// Sheet to read; empty means the first sheet.
	Sheet string

	TargetLanguageID      int64
	TranslationLanguageID int64

	// Column letters of each field.
	TextColumn        string
	LevelColumn       string
	RankColumn        string
	TranslationColumn string

	// StartRow is the first data row (1-based); rows above it are headers.
	StartRow int
}

// DefaultConfig returns the layout text, level, rank, translation in
// columns A to D with one header row.
func DefaultConfig(targetLanguageID, translationLanguageID int64) Config {
	return Config{
		TargetLanguageID:      targetLanguageID,
		TranslationLanguageID: translationLanguageID,
		TextColumn:            "A",
		LevelColumn:           "B",
		RankColumn:            "C",
		TranslationColumn:     "D",
		StartRow:              2,
	}
}

func (c Config) validate() error {
	if c.TargetLanguageID <= 0 || c.TranslationLanguageID <= 0 {
		return fmt.Errorf("%w: language ids must be positive", domain.ErrInvalidID)
	}
	if c.StartRow < 1 {
		return fmt.Errorf("%w: start row must be at least 1", domain.ErrValidation)
	}
	for _, col := range []string{c.TextColumn, c.LevelColumn, c.RankColumn, c.TranslationColumn} {
		if _, err := excelize.ColumnNameToNumber(col); err != nil {
			return fmt.Errorf("%w: column %q: %v", domain.ErrValidation, col, err)
		}
	}
	return nil
}

// Result summarizes an import.
type Result struct {
	// Processed counts data rows, blank rows included.
	Processed int
	// Created counts new vocabulary items.
	Created int
	// Translations counts upserted translations.
	Translations int
	// Skipped counts blank and rejected rows.
	Skipped int
	// Errors describes each rejected row.
	Errors []string
}

// Importer writes spreadsheet rows into the store.
type Importer struct {
	store  store.Store
	logger *slog.Logger
}

// New creates an Importer.
func New(st store.Store, logger *slog.Logger) *Importer {
	if st == nil {
		panic("store cannot be nil for Importer")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		store:  st,
		logger: logger.With(slog.String("component", "importer")),
	}
}

// ImportFile imports the workbook at path.
func (im *Importer) ImportFile(ctx context.Context, path string, cfg Config) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	return im.importWorkbook(ctx, f, cfg)
}

// Import imports a workbook read from r.
func (im *Importer) Import(ctx context.Context, r io.Reader, cfg Config) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	return im.importWorkbook(ctx, f, cfg)
}

type columns struct {
	text, level, rank, translation int
}

func (im *Importer) importWorkbook(ctx context.Context, f *excelize.File, cfg Config) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	sheet := cfg.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	cols := columns{
		text:        columnIndex(cfg.TextColumn),
		level:       columnIndex(cfg.LevelColumn),
		rank:        columnIndex(cfg.RankColumn),
		translation: columnIndex(cfg.TranslationColumn),
	}

	result := &Result{Errors: []string{}}
	for i, row := range rows {
		rowNum := i + 1
		if rowNum < cfg.StartRow {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.Processed++
		if err := im.importRow(ctx, row, cols, cfg, result); err != nil {
			if errors.Is(err, errBlankRow) {
				result.Skipped++
				continue
			}
			if !isRowError(err) {
				return result, fmt.Errorf("row %d: %w", rowNum, err)
			}
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
		}
	}

	im.logger.InfoContext(ctx, "import finished",
		slog.String("sheet", sheet),
		slog.Int("processed", result.Processed),
		slog.Int("created", result.Created),
		slog.Int("translations", result.Translations),
		slog.Int("skipped", result.Skipped))

	return result, nil
}

var errBlankRow = errors.New("blank row")

// isRowError reports whether err rejects only the current row.
func isRowError(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrInvalidLevel) ||
		errors.Is(err, domain.ErrEmptyContent) ||
		errors.Is(err, store.ErrInvalidEntity)
}

// importRow creates the item if needed and upserts its translation in one
// transaction.
func (im *Importer) importRow(ctx context.Context, row []string, cols columns, cfg Config, result *Result) error {
	text := cell(row, cols.text)
	if text == "" {
		return errBlankRow
	}

	level, err := domain.ParseLevel(cell(row, cols.level))
	if err != nil {
		return err
	}

	var rank *int
	if raw := cell(row, cols.rank); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: frequency rank %q", domain.ErrValidation, raw)
		}
		rank = &n
	}

	item, err := domain.NewVocabularyItem(text, cfg.TargetLanguageID, level, rank)
	if err != nil {
		return err
	}
	translation := cell(row, cols.translation)

	var created, translated bool
	err = im.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		existing, err := tx.Items().GetByText(ctx, cfg.TargetLanguageID, item.Text)
		switch {
		case err == nil:
			item = existing
		case errors.Is(err, store.ErrItemNotFound):
			if err := tx.Items().Create(ctx, item); err != nil {
				return err
			}
			created = true
		default:
			return err
		}

		if translation == "" {
			return nil
		}
		if err := tx.Translations().Upsert(ctx, &domain.Translation{
			ItemID:     item.ID,
			LanguageID: cfg.TranslationLanguageID,
			Text:       translation,
		}); err != nil {
			return err
		}
		translated = true
		return nil
	})
	if err != nil {
		return err
	}

	if created {
		result.Created++
	}
	if translated {
		result.Translations++
	}
	return nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// columnIndex converts a validated column letter to a 0-based index.
func columnIndex(col string) int {
	n, _ := excelize.ColumnNameToNumber(col)
	return n - 1
}
