package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrItemNotFound, ErrTranslationNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., the same item text twice in one language).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	// ErrItemNotFound indicates that the requested vocabulary item does not exist.
	ErrItemNotFound = fmt.Errorf("%w: vocabulary item", ErrNotFound)

	// ErrProgressNotFound indicates that the learner has never seen the item.
	ErrProgressNotFound = fmt.Errorf("%w: progress record", ErrNotFound)

	// ErrLearnerStateNotFound indicates that the learner has no state for the target language.
	ErrLearnerStateNotFound = fmt.Errorf("%w: learner language state", ErrNotFound)

	// ErrTranslationNotFound indicates that the item has no translation in the requested language.
	ErrTranslationNotFound = fmt.Errorf("%w: translation", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrItemExists indicates that an item with the same text already exists
	// in the target language.
	ErrItemExists = fmt.Errorf("%w: vocabulary item", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// All entity-specific not found errors wrap ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "progress_record", "learner_language")
	Operation string // The operation that failed (e.g., "find", "upsert")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
