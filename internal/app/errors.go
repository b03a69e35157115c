package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrUnknownMode  = errors.New("unknown mode")
	ErrUnknownStage = errors.New("unknown stage")
)
