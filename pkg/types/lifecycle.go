package types

import "errors"

// Store lifecycle errors.
var (
	ErrAlreadyAttached = errors.New("store is already attached")
	ErrNotConfigured   = errors.New("store connection is not configured")
)
