// Package models defines the core domain types for prototype-test.
package models

import (
	"fmt"
	"time"
)

// TaskKind identifies how a task is completed.
type TaskKind string

const (
	// TaskKindStandard tasks are completed manually or by a goal event.
	TaskKindStandard TaskKind = "standard"
	// TaskKindRecall tasks show content for a fixed window, then ask a question.
	TaskKindRecall TaskKind = "recall"
)

// DefaultLookDurationMs is the recall look window when none is configured.
const DefaultLookDurationMs = 5000

// TaskDefinition describes one task in a study. Definitions are supplied at
// session start and never mutated.
type TaskDefinition struct {
	ID          string   `json:"id" yaml:"id"`
	Kind        TaskKind `json:"kind" yaml:"kind"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Hint        string   `json:"hint,omitempty" yaml:"hint"`

	// GoalEvent names the one-shot completion signal the prototype fires.
	// Empty means the task can only be completed manually.
	GoalEvent string `json:"goalEvent,omitempty" yaml:"goal_event"`

	// Recall-only fields.
	Question       string   `json:"question,omitempty" yaml:"question"`
	LookDurationMs int      `json:"lookDurationMs,omitempty" yaml:"look_duration_ms"`
	Options        []string `json:"options,omitempty" yaml:"options"`
	CorrectAnswer  string   `json:"correctAnswer,omitempty" yaml:"correct_answer"`
}

// IsRecall reports whether the task uses the recall flow.
func (t TaskDefinition) IsRecall() bool {
	return t.Kind == TaskKindRecall
}

// HasGoalEvent reports whether the prototype signals completion for this task.
func (t TaskDefinition) HasGoalEvent() bool {
	return !t.IsRecall() && t.GoalEvent != ""
}

// LookDuration returns the recall look window, defaulting when unset.
func (t TaskDefinition) LookDuration() time.Duration {
	ms := t.LookDurationMs
	if ms <= 0 {
		ms = DefaultLookDurationMs
	}
	return time.Duration(ms) * time.Millisecond
}

// ClickEvent is one click on the host prototype while a task was active.
// Offsets are relative to the task start.
type ClickEvent struct {
	OffsetMs   int64  `json:"offsetMs"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	ElementTag string `json:"elementTag"`
	ElementID  string `json:"elementId,omitempty"`
	Text       string `json:"text,omitempty"`
}

// TaskResult is the immutable outcome of one task. EaseRating is 0 when the
// tester skipped the task or declined to rate it.
type TaskResult struct {
	TaskID      string       `json:"taskId"`
	TaskTitle   string       `json:"taskTitle"`
	TaskType    TaskKind     `json:"taskType"`
	Completed   bool         `json:"completed"`
	DurationMs  int64        `json:"durationMs"`
	DurationFmt string       `json:"durationFmt"`
	EaseRating  int          `json:"easeRating"`
	Comment     string       `json:"comment,omitempty"`
	Clicks      []ClickEvent `json:"clicks"`

	// Recall-only. RecallCorrect is nil when no correct answer was configured.
	RecallAnswer  string `json:"recallAnswer,omitempty"`
	RecallCorrect *bool  `json:"recallCorrect,omitempty"`
}

// SessionSubmission is the terminal artifact of a session: everything the
// configured sinks receive. Built exactly once, when the final feedback is
// submitted.
type SessionSubmission struct {
	SessionID          string       `json:"sessionId"`
	ProjectName        string       `json:"projectName"`
	TesterName         string       `json:"testerName,omitempty"`
	TesterEmail        string       `json:"testerEmail,omitempty"`
	SubmittedAt        time.Time    `json:"submittedAt"`
	SessionDurationMs  int64        `json:"sessionDurationMs"`
	SessionDurationFmt string       `json:"sessionDurationFmt"`
	OverallRating      int          `json:"overallRating"`
	OverallComment     string       `json:"overallComment,omitempty"`
	CompletedTasks     int          `json:"completedTasks"`
	TotalTasks         int          `json:"totalTasks"`
	TaskResults        []TaskResult `json:"taskResults"`
}

// ArtifactName returns the canonical file name for the downloadable payload.
func (s *SessionSubmission) ArtifactName() string {
	return "pt-session-" + s.SessionID + ".json"
}

// FormatDurationMs renders a millisecond duration as "Ns" under a minute and
// "Mm Ss" from a minute up (45000 -> "45s", 125000 -> "2m 5s").
func FormatDurationMs(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	secs := ms / 1000
	if secs < 60 {
		return fmt.Sprintf("%ds", secs)
	}
	return fmt.Sprintf("%dm %ds", secs/60, secs%60)
}
