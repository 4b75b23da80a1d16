package service

import "errors"

// Attempt lifecycle errors. Every one of them is recoverable and is reported
// to the caller; the HTTP layer maps each to its own error code.
var (
	ErrNotEligible      = errors.New("student is not eligible for this exam")
	ErrExamNotActive    = errors.New("exam is outside its schedule window")
	ErrAlreadyAttempted = errors.New("attempt already exists or attempt limit reached")
	ErrSessionNotActive = errors.New("attempt session is not active")
	ErrAlreadySubmitted = errors.New("attempt has already been submitted")
	ErrUnknownQuestion  = errors.New("question does not belong to this exam")
	ErrInvalidSession   = errors.New("attempt does not belong to this student")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrExamNotFound     = errors.New("exam not found")
)

// ErrNotExpired is returned when an auto-submit is requested before the deadline.
var ErrNotExpired = errors.New("attempt deadline has not passed")
