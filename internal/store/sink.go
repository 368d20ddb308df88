package store

import (
	"context"

	"github.com/brandtiboy/prototype-test/internal/models"
)

// SessionSink adapts the store to the sink dispatcher, so every submitted
// session is kept locally regardless of network sink outcomes.
type SessionSink struct {
	store *Store
}

// Sink returns a sink view of the store.
func (s *Store) Sink() *SessionSink {
	return &SessionSink{store: s}
}

// Name identifies the sink in logs.
func (s *SessionSink) Name() string { return "sqlite" }

// Submit inserts the session row.
func (s *SessionSink) Submit(_ context.Context, sub *models.SessionSubmission) error {
	return s.store.SaveSession(sub)
}
