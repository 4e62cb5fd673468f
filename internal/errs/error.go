package errs

import (
	"errors"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidState       = errors.New("invalid state")
	ErrAlreadyReturned    = errors.New("borrowing already returned")
	ErrInvalidDate        = errors.New("invalid date")
	ErrUnavailable        = errors.New("book is not available")
	ErrDuplicate          = errors.New("duplicate record")
	ErrGateway            = errors.New("payment gateway failure")
	ErrVerificationFailed = errors.New("payment not confirmed by gateway")
	ErrUserName           = errors.New("username is required")
)
