package domain

import (
	"fmt"
	"time"
)

// ProgressRecord tracks how a learner has done on a single item within one
// target language. It is created on first exposure and never deleted.
//
// SuccessRate is a percentage: 100 * Successes / Repeats, or 0 before the
// first answer.
type ProgressRecord struct {
	LearnerLanguageID int64     `json:"learner_language_id" db:"learner_language_id"`
	ItemID            int64     `json:"item_id" db:"item_id"`
	Repeats           int       `json:"repeats" db:"repeats"`
	Successes         int       `json:"successes" db:"successes"`
	SuccessRate       float64   `json:"success_rate" db:"success_rate"`
	LastSeen          time.Time `json:"last_seen" db:"last_seen"`
	LastAnswerWrong   bool      `json:"last_answer_wrong" db:"last_answer_wrong"`
	SessionID         string    `json:"session_id" db:"session_id"`
}

// NewProgressRecord creates an empty record for a first exposure.
func NewProgressRecord(learnerLanguageID, itemID int64) *ProgressRecord {
	return &ProgressRecord{
		LearnerLanguageID: learnerLanguageID,
		ItemID:            itemID,
	}
}

// RecordAnswer applies one answer to the record.
func (p *ProgressRecord) RecordAnswer(correct bool, sessionID string, now time.Time) {
	p.Repeats++
	if correct {
		p.Successes++
	}
	p.SuccessRate = SuccessRate(p.Successes, p.Repeats)
	p.LastSeen = now.UTC()
	p.LastAnswerWrong = !correct
	p.SessionID = sessionID
}

// Validate checks the counter invariants.
func (p *ProgressRecord) Validate() error {
	if p.LearnerLanguageID <= 0 || p.ItemID <= 0 {
		return fmt.Errorf("%w: progress key", ErrInvalidID)
	}
	if p.Repeats < 0 || p.Successes < 0 || p.Successes > p.Repeats {
		return fmt.Errorf("%w: %d successes of %d repeats", ErrInvalidProgress, p.Successes, p.Repeats)
	}
	return nil
}

// SuccessRate returns 100 * successes / repeats, or 0 when repeats is zero.
func SuccessRate(successes, repeats int) float64 {
	if repeats <= 0 {
		return 0
	}
	return 100 * float64(successes) / float64(repeats)
}
