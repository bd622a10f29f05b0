package domain

import (
	"fmt"
	"strings"
)

// VocabularyItem is a word or phrase in a target language. Items are
// immutable reference data.
type VocabularyItem struct {
	ID               int64  `json:"id" db:"id"`
	Text             string `json:"text" db:"text"`
	TargetLanguageID int64  `json:"target_language_id" db:"target_language_id"`
	Tier             int    `json:"tier" db:"tier"`
	// FrequencyRank orders items by how common they are; lower is more
	// frequent. Nil means unranked and sorts last.
	FrequencyRank *int `json:"frequency_rank,omitempty" db:"frequency_rank"`
}

// NewVocabularyItem creates a validated item at the tier of level.
func NewVocabularyItem(text string, targetLanguageID int64, level Level, frequencyRank *int) (*VocabularyItem, error) {
	item := &VocabularyItem{
		Text:             strings.TrimSpace(text),
		TargetLanguageID: targetLanguageID,
		Tier:             level.Tier(),
		FrequencyRank:    frequencyRank,
	}

	if !level.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLevel, level)
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

// Validate checks if the item has valid data.
func (i *VocabularyItem) Validate() error {
	if strings.TrimSpace(i.Text) == "" {
		return fmt.Errorf("%w: item text", ErrEmptyContent)
	}
	if i.TargetLanguageID <= 0 {
		return fmt.Errorf("%w: target language", ErrInvalidID)
	}
	if i.Tier < MinTier || i.Tier > MaxTier {
		return fmt.Errorf("%w: %d", ErrInvalidTier, i.Tier)
	}
	if i.FrequencyRank != nil && *i.FrequencyRank < 0 {
		return fmt.Errorf("%w: negative frequency rank", ErrValidation)
	}
	return nil
}

// Translation is the rendering of an item in another language.
type Translation struct {
	ItemID     int64  `json:"item_id" db:"item_id"`
	LanguageID int64  `json:"language_id" db:"language_id"`
	Text       string `json:"text" db:"text"`
}

// Validate checks if the translation has valid data.
func (t *Translation) Validate() error {
	if t.ItemID <= 0 {
		return fmt.Errorf("%w: item", ErrInvalidID)
	}
	if t.LanguageID <= 0 {
		return fmt.Errorf("%w: language", ErrInvalidID)
	}
	if strings.TrimSpace(t.Text) == "" {
		return fmt.Errorf("%w: translation text", ErrEmptyContent)
	}
	return nil
}
