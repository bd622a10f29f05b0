package domain

// Category names why an item was put into a batch.
type Category string

// Batch categories.
const (
	CategoryWeak    Category = "weak"
	CategoryReview  Category = "review"
	CategoryNew     Category = "new"
	CategoryStretch Category = "stretch"
	CategoryPatch   Category = "patch"
	// CategoryPadding marks items drawn by the unconditional fill-up step.
	CategoryPadding Category = "padding"
	// CategoryReinforce marks onboarding items repeated from the first session.
	CategoryReinforce Category = "reinforce"
)

// SelectedItem is one entry of a practice batch.
type SelectedItem struct {
	ItemID             int64    `json:"itemId"`
	Text               string   `json:"text"`
	CorrectTranslation string   `json:"correctTranslation"`
	Options            []string `json:"options"`
	Category           Category `json:"-"`
}
