package session

import "github.com/brandtiboy/prototype-test/internal/models"

// Snapshot is the read model the overlay chrome and the moderator console
// render from. It is a point-in-time copy; mutating it has no effect on the
// controller.
type Snapshot struct {
	SessionID  string `json:"sessionId"`
	Project    string `json:"project"`
	Phase      Phase  `json:"phase"`
	TesterName string `json:"testerName,omitempty"`

	TaskIndex  int                    `json:"taskIndex"`
	TotalTasks int                    `json:"totalTasks"`
	Task       *models.TaskDefinition `json:"task,omitempty"`

	ElapsedMs   int64 `json:"elapsedMs"`
	CountdownMs int64 `json:"countdownMs"`

	AllowSkip  bool `json:"allowSkip"`
	SkipPrompt bool `json:"skipPrompt"`
	HintOpen   bool `json:"hintOpen"`

	ClickCount     int `json:"clickCount"`
	CompletedTasks int `json:"completedTasks"`
	SkippedTasks   int `json:"skippedTasks"`

	// RecallCorrect is set only in the recall feedback phase.
	RecallCorrect *bool `json:"recallCorrect,omitempty"`

	Results []models.TaskResult `json:"results"`
}

// Snapshot returns the current session state for rendering.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		SessionID:   c.sessionID,
		Project:     c.project,
		Phase:       c.phase,
		TesterName:  c.testerName,
		TaskIndex:   c.taskIdx,
		TotalTasks:  len(c.tasks),
		ElapsedMs:   c.elapsedMs,
		CountdownMs: c.countdown.Milliseconds(),
		AllowSkip:   c.allowSkip,
		SkipPrompt:  c.skipPrompt,
		HintOpen:    c.hintOpen,
		ClickCount:  len(c.trail),
		Results:     make([]models.TaskResult, len(c.results)),
	}
	copy(snap.Results, c.results)

	for _, r := range c.results {
		if r.Completed {
			snap.CompletedTasks++
		} else {
			snap.SkippedTasks++
		}
	}

	if c.taskIdx < len(c.tasks) && c.phase != PhaseWelcome && c.phase != PhaseFinalFeedback && c.phase != PhaseSubmitted {
		// The tester-facing copy never carries the correct answer.
		task := c.tasks[c.taskIdx]
		task.CorrectAnswer = ""
		snap.Task = &task
	}

	if c.phase == PhaseRecallFeedback && len(c.results) > 0 {
		last := c.results[len(c.results)-1]
		if last.RecallCorrect != nil {
			v := *last.RecallCorrect
			snap.RecallCorrect = &v
		}
	}

	return snap
}
