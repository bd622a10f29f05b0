package store

import "time"

// ProgressFilter restricts items by whether the learner has a progress record for them.
type ProgressFilter int

const (
	// AnyProgress applies no restriction.
	AnyProgress ProgressFilter = iota
	// Seen keeps items with a progress record.
	Seen
	// Unseen keeps items without a progress record.
	Unseen
	// UnseenOrStale keeps items without a progress record or last seen before
	// ItemQuery.SeenBefore.
	UnseenOrStale
)

// ItemOrder is the primary sort key of an item query. Ties are always
// broken randomly.
type ItemOrder int

const (
	// OrderRandom sorts randomly.
	OrderRandom ItemOrder = iota
	// OrderSuccessRate sorts by ascending success rate.
	OrderSuccessRate
	// OrderLastSeen sorts by ascending last-seen time (longest unseen first).
	OrderLastSeen
	// OrderRecentlySeen sorts by descending last-seen time.
	OrderRecentlySeen
	// OrderFrequency sorts by ascending frequency rank, unranked items last.
	OrderFrequency
)

// ItemQuery describes one item lookup. Zero values mean "no restriction"
// except Limit, which must be positive.
type ItemQuery struct {
	// TargetLanguageID restricts items to one target language. Zero means any language.
	TargetLanguageID int64
	// LearnerLanguageID selects whose progress records are joined.
	LearnerLanguageID int64
	// Tier restricts items to one difficulty tier. Zero means any tier.
	Tier int
	// ExcludeIDs removes items already chosen.
	ExcludeIDs []int64

	Progress ProgressFilter

	// Success-rate band for seen items: MinSuccessRate <= rate < MaxSuccessRate.
	// Nil bounds are open.
	MinSuccessRate *float64
	MaxSuccessRate *float64
	// OrLastAnswerWrong lets items whose last answer was wrong bypass the band.
	OrLastAnswerWrong bool
	// SeenBefore keeps seen items whose last_seen is strictly earlier. With
	// UnseenOrStale it is the staleness cutoff.
	SeenBefore *time.Time

	Order ItemOrder
	Limit int
}

// HasBand reports whether the query restricts success rates.
func (q ItemQuery) HasBand() bool {
	return q.MinSuccessRate != nil || q.MaxSuccessRate != nil
}
