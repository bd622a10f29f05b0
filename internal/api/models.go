package api

import (
	"time"

	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/service/practice"
)

// StartSessionRequest defines the payload for starting a practice session.
// Zero language ids fall back to the configured defaults.
type StartSessionRequest struct {
	TargetLanguageID      int64 `json:"targetLanguageId"      validate:"gte=0"`
	TranslationLanguageID int64 `json:"translationLanguageId" validate:"gte=0"`
}

// SessionItemResponse is one multiple-choice item of a session.
type SessionItemResponse struct {
	ItemID             int64    `json:"itemId"`
	Text               string   `json:"text"`
	CorrectTranslation string   `json:"correctTranslation"`
	Options            []string `json:"options"`
}

// SessionResponse defines the response for a started session.
type SessionResponse struct {
	SessionID  string                `json:"sessionId"`
	Items      []SessionItemResponse `json:"items"`
	TotalItems int                   `json:"totalItems"`
	Onboarding bool                  `json:"onboarding"`
	Level      string                `json:"level"`
}

// SubmitAnswerRequest defines the payload for answering one item.
type SubmitAnswerRequest struct {
	ItemID                int64  `json:"itemId"                validate:"required,gt=0"`
	Answer                string `json:"answer"                validate:"required"`
	TargetLanguageID      int64  `json:"targetLanguageId"      validate:"gte=0"`
	TranslationLanguageID int64  `json:"translationLanguageId" validate:"gte=0"`
}

// AnswerResponse tells the learner whether the answer was correct.
type AnswerResponse struct {
	IsCorrect          bool   `json:"isCorrect"`
	CorrectTranslation string `json:"correctTranslation"`
}

// FinishSessionRequest defines the payload for finishing a session.
type FinishSessionRequest struct {
	TargetLanguageID int64 `json:"targetLanguageId" validate:"gte=0"`
}

// SessionResultResponse reports the evaluation of a finished session.
// NewLevel is null unless the level changed.
type SessionResultResponse struct {
	Status     string  `json:"status"`
	ExtraPatch bool    `json:"extraPatch"`
	NewLevel   *string `json:"newLevel"`
}

// LearnerStateResponse is a learner's standing in one target language.
type LearnerStateResponse struct {
	TargetLanguageID int64      `json:"targetLanguageId"`
	Level            string     `json:"level"`
	PromotionStreak  int        `json:"promotionStreak"`
	DemotionStreak   int        `json:"demotionStreak"`
	PatchBoost       bool       `json:"patchBoost"`
	LastActiveAt     *time.Time `json:"lastActiveAt,omitempty"`
	LevelChangedAt   *time.Time `json:"levelChangedAt,omitempty"`
}

func sessionToResponse(s *practice.Session) SessionResponse {
	items := make([]SessionItemResponse, 0, len(s.Items))
	for _, item := range s.Items {
		items = append(items, SessionItemResponse{
			ItemID:             item.ItemID,
			Text:               item.Text,
			CorrectTranslation: item.CorrectTranslation,
			Options:            item.Options,
		})
	}
	return SessionResponse{
		SessionID:  s.ID,
		Items:      items,
		TotalItems: len(items),
		Onboarding: s.Onboarding,
		Level:      s.Level.String(),
	}
}

func sessionResultToResponse(r *practice.SessionResult) SessionResultResponse {
	resp := SessionResultResponse{
		Status:     r.Status,
		ExtraPatch: r.ExtraPatch,
	}
	if r.NewLevel != nil {
		level := r.NewLevel.String()
		resp.NewLevel = &level
	}
	return resp
}

func learnerStateToResponse(s *domain.LearnerLanguageState) LearnerStateResponse {
	return LearnerStateResponse{
		TargetLanguageID: s.TargetLanguageID,
		Level:            s.Level.String(),
		PromotionStreak:  s.PromotionStreak,
		DemotionStreak:   s.DemotionStreak,
		PatchBoost:       s.PatchBoost,
		LastActiveAt:     s.LastActiveAt,
		LevelChangedAt:   s.LevelChangedAt,
	}
}
