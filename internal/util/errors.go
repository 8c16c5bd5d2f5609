package util

import "errors"

var (
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("resource not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("permission denied")
	ErrConflict             = errors.New("conflict")
	ErrAttemptLimitExceeded = errors.New("maximum attempts reached for this test")

	ErrEmailRegistered     = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountDeactivated  = errors.New("account has been deactivated")
	ErrTestNotAccessible   = errors.New("test is not currently available")
	ErrTestArchived        = errors.New("test has been archived")
	ErrTestHasNoQuestions  = errors.New("test must have at least one question")
	ErrQuestionsLocked     = errors.New("cannot modify questions after test has submissions")
	ErrSubmissionClosed    = errors.New("submission already completed")
	ErrQuestionNotInTest   = errors.New("question not found in submission")
	ErrAccessCodeExhausted = errors.New("could not allocate a unique access code")
	ErrRateLimited         = errors.New("too many requests")
)
