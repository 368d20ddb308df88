package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brandtiboy/prototype-test/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "results.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSubmission(id string, submitted time.Time) *models.SessionSubmission {
	return &models.SessionSubmission{
		SessionID:          id,
		ProjectName:        "Checkout Redesign",
		TesterName:         "Ada",
		TesterEmail:        "ada@example.com",
		SubmittedAt:        submitted,
		SessionDurationMs:  125000,
		SessionDurationFmt: "2m 5s",
		OverallRating:      4,
		OverallComment:     "smooth",
		CompletedTasks:     1,
		TotalTasks:         2,
		TaskResults: []models.TaskResult{
			{TaskID: "task-1", TaskTitle: "Find pricing", TaskType: models.TaskKindStandard,
				Completed: true, DurationMs: 3000, DurationFmt: "3s", EaseRating: 4,
				Clicks: []models.ClickEvent{{OffsetMs: 500, X: 1, Y: 2, ElementTag: "button"}}},
			{TaskID: "task-2", TaskTitle: "Change plan", TaskType: models.TaskKindStandard,
				Completed: false, Comment: "confusing", Clicks: []models.ClickEvent{}},
		},
	}
}

func TestNewCreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "results.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("Database file not created: %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestSaveAndGetSession(t *testing.T) {
	s := newTestStore(t)

	sub := testSubmission("pt-001", time.Date(2026, 3, 14, 10, 5, 0, 0, time.UTC))
	if err := s.SaveSession(sub); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := s.GetSession("pt-001")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected stored session, got nil")
	}
	if got.ProjectName != sub.ProjectName || got.TesterName != "Ada" {
		t.Errorf("Unexpected session: %+v", got)
	}
	if got.SessionDurationFmt != "2m 5s" || got.OverallRating != 4 {
		t.Errorf("Unexpected duration/rating: %+v", got)
	}
	if len(got.TaskResults) != 2 {
		t.Fatalf("Expected 2 task results, got %d", len(got.TaskResults))
	}
	if len(got.TaskResults[0].Clicks) != 1 {
		t.Errorf("Click trail did not survive storage: %+v", got.TaskResults[0])
	}
	if got.TaskResults[1].Comment != "confusing" {
		t.Errorf("Unexpected second result: %+v", got.TaskResults[1])
	}
}

func TestGetMissingSession(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetSession("nope")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing session, got %+v", got)
	}
}

func TestDuplicateSessionIDRejected(t *testing.T) {
	s := newTestStore(t)
	sub := testSubmission("pt-dup", time.Now().UTC())
	if err := s.SaveSession(sub); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if err := s.SaveSession(sub); err == nil {
		t.Error("Expected unique constraint violation on duplicate session_id")
	}
}

func TestListSessions(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	older := testSubmission("pt-old", base)
	newer := testSubmission("pt-new", base.Add(time.Hour))
	other := testSubmission("pt-other", base.Add(30*time.Minute))
	other.ProjectName = "Other Study"

	for _, sub := range []*models.SessionSubmission{older, newer, other} {
		if err := s.SaveSession(sub); err != nil {
			t.Fatalf("SaveSession failed: %v", err)
		}
	}

	all, err := s.ListSessions("")
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(all))
	}
	// Newest first.
	if all[0].SessionID != "pt-new" || all[2].SessionID != "pt-old" {
		t.Errorf("Unexpected order: %s, %s, %s", all[0].SessionID, all[1].SessionID, all[2].SessionID)
	}

	filtered, err := s.ListSessions("Other Study")
	if err != nil {
		t.Fatalf("ListSessions with filter failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].SessionID != "pt-other" {
		t.Errorf("Unexpected filtered result: %+v", filtered)
	}
}

func TestStoreSink(t *testing.T) {
	s := newTestStore(t)
	snk := s.Sink()

	if snk.Name() != "sqlite" {
		t.Errorf("Unexpected sink name: %s", snk.Name())
	}
	sub := testSubmission("pt-sink", time.Now().UTC())
	if err := snk.Submit(context.Background(), sub); err != nil {
		t.Fatalf("Sink submit failed: %v", err)
	}
	got, err := s.GetSession("pt-sink")
	if err != nil || got == nil {
		t.Fatalf("Session not stored via sink: %v", err)
	}
}
