package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brandtiboy/prototype-test/internal/models"
)

// sessionsTable is the remote table that receives one row per session.
const sessionsTable = "test_sessions"

// DatabaseSink writes one flattened row per session to a REST-style database
// endpoint (Supabase-compatible). Access is key-based: the anon key is sent
// both as the api key and as the bearer token.
type DatabaseSink struct {
	baseURL string
	anonKey string
	client  *http.Client
}

// NewDatabaseSink creates a database sink for the given endpoint.
func NewDatabaseSink(baseURL, anonKey string) *DatabaseSink {
	return &DatabaseSink{
		baseURL: baseURL,
		anonKey: anonKey,
		client:  &http.Client{Timeout: submitTimeout},
	}
}

// Name implements Sink.
func (d *DatabaseSink) Name() string { return "database" }

// sessionRow is the flattened row shape the remote table stores.
type sessionRow struct {
	SessionID          string              `json:"session_id"`
	ProjectName        string              `json:"project_name"`
	TesterName         string              `json:"tester_name"`
	TesterEmail        string              `json:"tester_email"`
	SubmittedAt        time.Time           `json:"submitted_at"`
	SessionDurationFmt string              `json:"session_duration_fmt"`
	OverallRating      int                 `json:"overall_rating"`
	OverallComment     string              `json:"overall_comment"`
	CompletedTasks     int                 `json:"completed_tasks"`
	TotalTasks         int                 `json:"total_tasks"`
	Tasks              []models.TaskResult `json:"tasks"`
}

// Submit implements Sink.
func (d *DatabaseSink) Submit(ctx context.Context, sub *models.SessionSubmission) error {
	row := sessionRow{
		SessionID:          sub.SessionID,
		ProjectName:        sub.ProjectName,
		TesterName:         sub.TesterName,
		TesterEmail:        sub.TesterEmail,
		SubmittedAt:        sub.SubmittedAt,
		SessionDurationFmt: sub.SessionDurationFmt,
		OverallRating:      sub.OverallRating,
		OverallComment:     sub.OverallComment,
		CompletedTasks:     sub.CompletedTasks,
		TotalTasks:         sub.TotalTasks,
		Tasks:              sub.TaskResults,
	}

	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal session row: %w", err)
	}

	url := d.baseURL + "/rest/v1/" + sessionsTable
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", d.anonKey)
	req.Header.Set("Authorization", "Bearer "+d.anonKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("database request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("database error (%d): %s", resp.StatusCode, string(msg))
	}
	return nil
}
