package practice

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/lexis-api/internal/domain"
)

// SessionRequest identifies the learner and the languages of a new session.
type SessionRequest struct {
	LearnerID             int64
	TargetLanguageID      int64
	TranslationLanguageID int64
}

// Session is a freshly composed practice batch.
type Session struct {
	ID    string
	Items []domain.SelectedItem
	// Onboarding is set when the batch came from the onboarding selector.
	Onboarding bool
	Level      domain.Level
}

// AnswerInput is one answer to an item of a session.
type AnswerInput struct {
	SessionID             string
	ItemID                int64
	Answer                string
	TranslationLanguageID int64
}

// AnswerResult tells the learner whether the answer was right.
type AnswerResult struct {
	Correct            bool
	CorrectTranslation string
}

// SessionStatusCompleted is the status of a finished session.
const SessionStatusCompleted = "completed"

// SessionResult is the evaluation outcome of a finished session.
type SessionResult struct {
	Status     string
	ExtraPatch bool
	// NewLevel is nil unless the level changed.
	NewLevel *domain.Level
	// Degraded is set when evaluation could not run; the level is unchanged.
	Degraded bool
}

// Service runs practice sessions: it composes batches, records answers and
// evaluates finished sessions.
type Service interface {
	// StartSession composes a batch for the learner in the target language.
	// The learner's state is created at the starting level on first use.
	// Learners with less than a batch of history get the onboarding batch.
	//
	// Returns:
	//   - (*Session, nil): a batch of exactly the configured size
	//   - (nil, ErrNoItems): the target language has no translated items at all
	//   - (nil, error): any other error, typically from the database
	StartSession(ctx context.Context, req SessionRequest) (*Session, error)

	// SubmitAnswer checks an answer against the stored translation and
	// records it in the learner's progress.
	//
	// Returns:
	//   - (*AnswerResult, nil): whether the answer was correct, and the correct translation
	//   - (nil, ErrInvalidSessionID): the session id is not a UUID
	//   - (nil, ErrLearnerStateNotFound): the learner never started a session in the language
	//   - (nil, ErrItemNotFound): the item does not exist or has no translation
	SubmitAnswer(ctx context.Context, learnerID, targetLanguageID int64, in AnswerInput) (*AnswerResult, error)

	// FinishSession evaluates the session and reports any level change.
	// Evaluation failures do not fail the call; the result is marked Degraded.
	//
	// Returns:
	//   - (*SessionResult, nil): the evaluation outcome
	//   - (nil, ErrInvalidSessionID): the session id is not a UUID
	//   - (nil, ErrLearnerStateNotFound): the learner never started a session in the language
	//   - (nil, ErrSessionNotFound): no answer was recorded under the session id
	FinishSession(ctx context.Context, learnerID, targetLanguageID int64, sessionID string) (*SessionResult, error)

	// GetLearnerState returns the learner's level, streaks and patch flag.
	//
	// Returns ErrLearnerStateNotFound if the learner never practiced the language.
	GetLearnerState(ctx context.Context, learnerID, targetLanguageID int64) (*domain.LearnerLanguageState, error)
}

// Common error types for Service
var (
	// ErrNoItems indicates the vocabulary pool has nothing to practice.
	ErrNoItems = errors.New("no vocabulary items available")

	// ErrLearnerStateNotFound indicates the learner has no state in the language.
	ErrLearnerStateNotFound = errors.New("learner has not started this language")

	// ErrItemNotFound indicates the item or its translation does not exist.
	ErrItemNotFound = errors.New("vocabulary item not found")

	// ErrSessionNotFound indicates no answer was recorded for the session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidSessionID indicates a malformed session id.
	ErrInvalidSessionID = errors.New("invalid session id")
)

// ServiceError wraps errors from the practice service with additional context.
// This allows consumers to differentiate between different types of service errors
// using errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "start_session", "submit_answer")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError returns a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
