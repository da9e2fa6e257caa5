package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrMisconfigured   = errors.New("server misconfigured")
	ErrProviderFailure = errors.New("provider failure")
)
