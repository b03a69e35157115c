package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("participant not found")
	ErrInvalidName  = errors.New("invalid participant name")
	ErrInvalidValue = errors.New("invalid measurement value")
	ErrClosed       = errors.New("store closed")
)
