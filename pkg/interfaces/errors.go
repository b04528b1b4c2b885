package interfaces

import "errors"

// Errors shared across package boundaries.
var (
	ErrChannelClosed = errors.New("session channel closed")
)
