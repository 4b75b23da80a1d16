package repository

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateAttempt is returned when the (student, exam, attempt number)
	// triple or the single open attempt per (student, exam) is already taken.
	ErrDuplicateAttempt = errors.New("attempt already exists")
	// ErrNotInProgress is returned when a write requires an open attempt.
	ErrNotInProgress = errors.New("attempt is not in progress")
	// ErrStaleAttempt is returned by Close when the attempt changed after it was read.
	ErrStaleAttempt = errors.New("attempt was modified concurrently")
)
