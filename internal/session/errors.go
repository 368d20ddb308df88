package session

import "errors"

// Sentinel errors for session transitions.
var (
	ErrWrongPhase    = errors.New("operation not valid in current phase")
	ErrSkipDisabled  = errors.New("skipping is disabled for this study")
	ErrSessionOver   = errors.New("session already submitted")
	ErrNoSkipPending = errors.New("no skip confirmation pending")
)
