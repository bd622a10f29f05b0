package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidLevel is returned when a proficiency level name is not on the A1..C2 scale.
	ErrInvalidLevel = errors.New("invalid proficiency level")

	// ErrInvalidTier is returned when a difficulty tier is outside 1..6.
	ErrInvalidTier = errors.New("invalid difficulty tier")

	// ErrInvalidID is returned when an identifier is zero or negative.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyContent is returned when required text is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidProgress is returned when a progress record breaks successes <= repeats.
	ErrInvalidProgress = errors.New("invalid progress counters")
)
