package meet

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDuration        = errors.New("duration must be a positive number of seconds")
	ErrAthleteAlreadyActive   = errors.New("another athlete is already lifting on this platform")
	ErrNoActiveAttempt        = errors.New("no attempt in progress")
	ErrInvalidAttemptSequence = errors.New("attempt number out of sequence")
	ErrDuplicateAttempt       = errors.New("attempt already recorded")
	ErrPersistenceFailure     = errors.New("persistence failure")

	ErrNotFound          = errors.New("not found")
	ErrNoWaitingAthlete  = errors.New("no athlete waiting on this platform")
	ErrAttemptsExhausted = errors.New("athlete has no attempts left")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidWeight     = errors.New("weight must be positive")
	ErrInvalidResult     = errors.New("result must be valid or invalid")
	ErrPlatformInUse     = errors.New("platform has an attempt in progress")
	ErrAlreadyEnrolled   = errors.New("athlete is already enrolled in this competition")
)

// ValidationError reports a malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
