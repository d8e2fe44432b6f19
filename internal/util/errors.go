package util

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailRegistered      = errors.New("email already registered")
	ErrUsernameTaken        = errors.New("username already taken")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrActivityNotFound     = errors.New("activity not found")
	ErrExamNotFound         = errors.New("exam not found")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrCourseNotFound       = errors.New("course not found")
	ErrNoAttemptsRemaining  = errors.New("No attempts remaining.")
	ErrAttemptNotInProgress = errors.New("attempt is not in progress")
	ErrResetTokenInvalid    = errors.New("reset token is invalid or expired")
)
