package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/brandtiboy/prototype-test/internal/config"
	"github.com/brandtiboy/prototype-test/internal/models"
	"github.com/brandtiboy/prototype-test/internal/session"
)

type recordingSubmitter struct {
	sub *models.SessionSubmission
}

func (r *recordingSubmitter) Dispatch(sub *models.SessionSubmission) {
	r.sub = sub
}

func boolPtr(b bool) *bool { return &b }

func newTestServer(t *testing.T, tasks []models.TaskDefinition) (*httptest.Server, *recordingSubmitter) {
	t.Helper()
	cfg := &config.Config{
		Project:      "Checkout Redesign",
		PrototypeDir: t.TempDir(),
		PrimaryColor: config.DefaultPrimaryColor,
		AllowSkip:    boolPtr(true),
		Tasks:        tasks,
	}
	rec := &recordingSubmitter{}
	service := NewService(cfg, rec)
	srv := httptest.NewServer(NewServer(service, "127.0.0.1:0", cfg.PrototypeDir).Handler())
	t.Cleanup(srv.Close)
	return srv, rec
}

func post(t *testing.T, srv *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

func mustPost(t *testing.T, srv *httptest.Server, path string, body any) session.Snapshot {
	t.Helper()
	resp := post(t, srv, path, body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST %s returned %d", path, resp.StatusCode)
	}
	var snap session.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("Decode snapshot failed: %v", err)
	}
	return snap
}

func getSnapshot(t *testing.T, srv *httptest.Server) session.Snapshot {
	t.Helper()
	resp, err := http.Get(srv.URL + "/api/session")
	if err != nil {
		t.Fatalf("GET /api/session failed: %v", err)
	}
	defer resp.Body.Close()
	var snap session.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("Decode snapshot failed: %v", err)
	}
	return snap
}

func TestFullSessionOverHTTP(t *testing.T) {
	srv, rec := newTestServer(t, []models.TaskDefinition{
		{Title: "Find pricing", GoalEvent: "pricing-viewed"},
		{Title: "Change plan"},
	})

	snap := getSnapshot(t, srv)
	if snap.Phase != session.PhaseWelcome {
		t.Fatalf("Expected welcome, got %s", snap.Phase)
	}

	snap = mustPost(t, srv, "/api/session/begin", map[string]string{
		"testerName": "Ada", "testerEmail": "ada@example.com",
	})
	if snap.Phase != session.PhaseTaskIntro {
		t.Fatalf("Expected task intro, got %s", snap.Phase)
	}

	mustPost(t, srv, "/api/session/start", nil)

	// The prototype fires its goal event through the shim.
	snap = mustPost(t, srv, "/api/session/goal", map[string]string{"event": "pricing-viewed"})
	if snap.Phase != session.PhaseGoalModal {
		t.Fatalf("Expected goal modal, got %s", snap.Phase)
	}

	snap = mustPost(t, srv, "/api/session/rating", map[string]any{"rating": 4, "comment": ""})
	if snap.Phase != session.PhaseTaskIntro || snap.TaskIndex != 1 {
		t.Fatalf("Expected intro for task 2, got %s idx=%d", snap.Phase, snap.TaskIndex)
	}

	mustPost(t, srv, "/api/session/start", nil)
	mustPost(t, srv, "/api/session/skip/request", nil)
	mustPost(t, srv, "/api/session/skip/confirm", nil)
	snap = mustPost(t, srv, "/api/session/skip", map[string]string{"comment": "confusing"})
	if snap.Phase != session.PhaseFinalFeedback {
		t.Fatalf("Expected final feedback, got %s", snap.Phase)
	}

	snap = mustPost(t, srv, "/api/session/final", map[string]any{"rating": 5, "comment": "nice"})
	if snap.Phase != session.PhaseSubmitted {
		t.Fatalf("Expected submitted, got %s", snap.Phase)
	}

	if rec.sub == nil {
		t.Fatal("Submission was not dispatched")
	}
	if rec.sub.CompletedTasks != 1 || rec.sub.TotalTasks != 2 {
		t.Errorf("Unexpected counts: %d/%d", rec.sub.CompletedTasks, rec.sub.TotalTasks)
	}
}

func TestClickBatchEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, []models.TaskDefinition{{Title: "A"}})

	mustPost(t, srv, "/api/session/begin", map[string]string{})
	mustPost(t, srv, "/api/session/start", nil)

	resp := post(t, srv, "/api/session/clicks", []map[string]any{
		{"x": 10, "y": 20, "elementTag": "BUTTON", "elementId": "buy", "text": "Buy now"},
		{"x": 30, "y": 40, "elementTag": "a"},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("Expected 202 for click batch, got %d", resp.StatusCode)
	}

	if snap := getSnapshot(t, srv); snap.ClickCount != 2 {
		t.Errorf("Expected 2 recorded clicks, got %d", snap.ClickCount)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	srv, _ := newTestServer(t, []models.TaskDefinition{{Title: "A"}})

	// Completing from the welcome phase is a state conflict.
	resp := post(t, srv, "/api/session/complete", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for wrong phase, got %d", resp.StatusCode)
	}

	mustPost(t, srv, "/api/session/begin", map[string]string{})
	mustPost(t, srv, "/api/session/start", nil)

	// Confirming a skip that was never requested.
	resp = post(t, srv, "/api/session/skip/confirm", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for no pending skip, got %d", resp.StatusCode)
	}

	// Finish the session, then poke it again.
	mustPost(t, srv, "/api/session/complete", nil)
	mustPost(t, srv, "/api/session/rating", map[string]any{"rating": 5})
	mustPost(t, srv, "/api/session/final", map[string]any{"rating": 5})

	resp = post(t, srv, "/api/session/complete", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusGone {
		t.Errorf("Expected 410 after submission, got %d", resp.StatusCode)
	}
}

func TestSkipDisabledStatus(t *testing.T) {
	cfg := &config.Config{
		Project:      "p",
		PrototypeDir: t.TempDir(),
		AllowSkip:    boolPtr(false),
		Tasks:        []models.TaskDefinition{{Title: "A"}},
	}
	service := NewService(cfg, nil)
	srv := httptest.NewServer(NewServer(service, "127.0.0.1:0", cfg.PrototypeDir).Handler())
	defer srv.Close()

	mustPost(t, srv, "/api/session/begin", map[string]string{})
	mustPost(t, srv, "/api/session/start", nil)

	resp := post(t, srv, "/api/session/skip/request", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403 when skipping is disabled, got %d", resp.StatusCode)
	}
}

func TestInvalidBodyRejected(t *testing.T) {
	srv, _ := newTestServer(t, []models.TaskDefinition{{Title: "A"}})

	resp, err := http.Post(srv.URL+"/api/session/begin", "application/json", strings.NewReader("{broken"))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid JSON, got %d", resp.StatusCode)
	}
}

func TestExportArtifact(t *testing.T) {
	srv, _ := newTestServer(t, []models.TaskDefinition{{Title: "A"}})

	// Not available before the session is submitted.
	resp, err := http.Get(srv.URL + "/api/session/export")
	if err != nil {
		t.Fatalf("GET export failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected 404 before submission, got %d", resp.StatusCode)
	}

	mustPost(t, srv, "/api/session/begin", map[string]string{})
	mustPost(t, srv, "/api/session/start", nil)
	mustPost(t, srv, "/api/session/complete", nil)
	mustPost(t, srv, "/api/session/rating", map[string]any{"rating": 5})
	snap := mustPost(t, srv, "/api/session/final", map[string]any{"rating": 4})

	resp, err = http.Get(srv.URL + "/api/session/export")
	if err != nil {
		t.Fatalf("GET export failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	want := "pt-session-" + snap.SessionID + ".json"
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, want) {
		t.Errorf("Expected artifact name %q in disposition, got %q", want, cd)
	}

	var sub models.SessionSubmission
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		t.Fatalf("Export body is not a submission: %v", err)
	}
	if sub.SessionID != snap.SessionID {
		t.Errorf("Export session mismatch: %s vs %s", sub.SessionID, snap.SessionID)
	}
}

func TestResetStartsFreshSession(t *testing.T) {
	srv, _ := newTestServer(t, []models.TaskDefinition{{Title: "A"}})

	first := mustPost(t, srv, "/api/session/begin", map[string]string{"testerName": "Ada"})

	snap := mustPost(t, srv, "/api/session/reset", nil)
	if snap.Phase != session.PhaseWelcome {
		t.Errorf("Expected fresh session in welcome, got %s", snap.Phase)
	}
	if snap.SessionID == first.SessionID {
		t.Error("Reset must mint a new session ID")
	}
}

func TestOverlayScriptServed(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/pt/overlay.js")
	if err != nil {
		t.Fatalf("GET overlay failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/javascript" {
		t.Errorf("Unexpected content type: %s", ct)
	}
}

func TestConfigEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, []models.TaskDefinition{{Title: "A"}})

	resp, err := http.Get(srv.URL + "/api/config")
	if err != nil {
		t.Fatalf("GET config failed: %v", err)
	}
	defer resp.Body.Close()

	var cfg map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		t.Fatalf("Decode config failed: %v", err)
	}
	if cfg["project"] != "Checkout Redesign" {
		t.Errorf("Unexpected project: %v", cfg["project"])
	}
	if cfg["allowSkip"] != true {
		t.Errorf("Expected allowSkip true, got %v", cfg["allowSkip"])
	}
}
