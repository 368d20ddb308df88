// Package session implements the task-sequencing state machine for one
// usability-test session. A Controller instance owns all mutable session
// state; callers drive it through event methods and a periodic Tick.
package session

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brandtiboy/prototype-test/internal/models"
)

// Phase is the current state of the task sequencer.
type Phase string

const (
	PhaseWelcome         Phase = "welcome"
	PhaseTaskIntro       Phase = "task_intro"
	PhaseTaskActive      Phase = "task_active"
	PhaseGoalModal       Phase = "goal_modal"
	PhaseSkipModal       Phase = "skip_modal"
	PhaseRecallReady     Phase = "recall_ready"
	PhaseRecallCountdown Phase = "recall_countdown"
	PhaseRecallQuestion  Phase = "recall_question"
	PhaseRecallFeedback  Phase = "recall_feedback"
	PhaseFinalFeedback   Phase = "final_feedback"
	PhaseSubmitted       Phase = "submitted"
)

// DefaultClickLimit caps the click trail per task. The trail is unbounded in
// principle; the cap keeps a tester who idles on a page from growing the
// payload without limit.
const DefaultClickLimit = 1000

// maxClickText is the longest text snippet kept per click.
const maxClickText = 60

// Submitter receives the finished submission. Dispatch must not block.
type Submitter interface {
	Dispatch(sub *models.SessionSubmission)
}

// Config configures a Controller.
type Config struct {
	Project   string
	Tasks     []models.TaskDefinition
	AllowSkip bool
	Submitter Submitter

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
	// ClickLimit overrides DefaultClickLimit when positive.
	ClickLimit int
}

// Controller walks an ordered task list through the session state machine.
// All exported methods are safe for concurrent use; transitions are applied
// in strict call order under a single mutex.
type Controller struct {
	mu sync.Mutex

	project    string
	tasks      []models.TaskDefinition
	allowSkip  bool
	submitter  Submitter
	now        func() time.Time
	clickLimit int

	sessionID    string
	testerName   string
	testerEmail  string
	sessionStart time.Time

	phase     Phase
	taskIdx   int
	taskStart time.Time
	elapsedMs int64

	trail        []models.ClickEvent
	trailCapped  bool
	results      []models.TaskResult
	goalFired    bool
	skipPrompt   bool
	hintOpen     bool
	taskDuration time.Duration
	countdown    time.Duration

	submission *models.SessionSubmission
}

// New creates a Controller in the Welcome phase. Task IDs missing from the
// definitions are defaulted to positional names.
func New(cfg *Config) *Controller {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	limit := cfg.ClickLimit
	if limit <= 0 {
		limit = DefaultClickLimit
	}

	tasks := make([]models.TaskDefinition, len(cfg.Tasks))
	copy(tasks, cfg.Tasks)
	for i := range tasks {
		if tasks[i].ID == "" {
			tasks[i].ID = defaultTaskID(i)
		}
		if tasks[i].Kind == "" {
			tasks[i].Kind = models.TaskKindStandard
		}
	}

	start := now()
	return &Controller{
		project:      cfg.Project,
		tasks:        tasks,
		allowSkip:    cfg.AllowSkip,
		submitter:    cfg.Submitter,
		now:          now,
		clickLimit:   limit,
		sessionID:    newSessionID(start),
		sessionStart: start,
		phase:        PhaseWelcome,
	}
}

// newSessionID builds a correlation ID: start timestamp plus a random suffix.
func newSessionID(start time.Time) string {
	return strings.Join([]string{
		"pt",
		strings.ToLower(start.UTC().Format("20060102T150405")),
		uuid.NewString()[:8],
	}, "-")
}

func defaultTaskID(i int) string {
	return fmt.Sprintf("task-%d", i+1)
}

// SessionID returns the opaque session correlation ID.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Begin records optional tester identity and moves to the first task intro.
func (c *Controller) Begin(testerName, testerEmail string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseWelcome {
		return ErrWrongPhase
	}
	c.testerName = strings.TrimSpace(testerName)
	c.testerEmail = strings.TrimSpace(testerEmail)
	if len(c.tasks) == 0 {
		c.phase = PhaseFinalFeedback
		return nil
	}
	c.phase = PhaseTaskIntro
	return nil
}

// StartTask dismisses the task instructions and starts the task clock.
func (c *Controller) StartTask() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseTaskIntro {
		return ErrWrongPhase
	}
	c.taskStart = c.now()
	c.elapsedMs = 0
	c.trail = nil
	c.trailCapped = false
	c.goalFired = false
	c.skipPrompt = false
	c.hintOpen = false
	if c.currentTask().IsRecall() {
		c.phase = PhaseRecallReady
	} else {
		c.phase = PhaseTaskActive
	}
	return nil
}

// SignalGoal delivers the host prototype's completion signal. It completes
// the current task iff the task is active, declares this goal event, and has
// not already fired. Mis-timed, repeated, or unknown signals are tolerated
// no-ops, matching the host contract.
func (c *Controller) SignalGoal(event string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if event == "" || c.phase != PhaseTaskActive || c.goalFired {
		return nil
	}
	if c.currentTask().GoalEvent != event {
		return nil
	}
	c.completeCurrentLocked()
	return nil
}

// Complete is the public "task completed" entry point: the manual mark-done
// affordance, and the path a host may force-call directly. The same guard
// that makes goal events one-shot suppresses duplicates here.
func (c *Controller) Complete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseSubmitted {
		return ErrSessionOver
	}
	if c.phase != PhaseTaskActive || c.goalFired {
		return ErrWrongPhase
	}
	c.completeCurrentLocked()
	return nil
}

func (c *Controller) completeCurrentLocked() {
	c.goalFired = true
	c.taskDuration = c.now().Sub(c.taskStart)
	c.phase = PhaseGoalModal
}

// SubmitRating confirms the success modal with a 1-5 ease rating (0 accepted
// as "declined to rate") and optional comment, then advances.
func (c *Controller) SubmitRating(rating int, comment string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseGoalModal {
		return ErrWrongPhase
	}
	c.appendResultLocked(models.TaskResult{
		Completed:  true,
		EaseRating: clampRating(rating),
		Comment:    comment,
	})
	c.advanceLocked()
	return nil
}

// RequestSkip reveals the inline skip confirmation. Available whenever the
// tester is working on a task, but not during a recall countdown.
func (c *Controller) RequestSkip() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.allowSkip {
		return ErrSkipDisabled
	}
	if c.phase != PhaseTaskActive && c.phase != PhaseRecallReady {
		return ErrWrongPhase
	}
	c.skipPrompt = true
	return nil
}

// CancelSkip dismisses the inline skip confirmation.
func (c *Controller) CancelSkip() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.skipPrompt {
		return ErrNoSkipPending
	}
	c.skipPrompt = false
	return nil
}

// ConfirmSkip accepts the inline confirmation and opens the skip modal.
func (c *Controller) ConfirmSkip() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.skipPrompt {
		return ErrNoSkipPending
	}
	c.skipPrompt = false
	c.taskDuration = c.now().Sub(c.taskStart)
	c.phase = PhaseSkipModal
	return nil
}

// SubmitSkip records a non-completed result with an optional comment and
// advances. Skipped tasks rate 0.
func (c *Controller) SubmitSkip(comment string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseSkipModal {
		return ErrWrongPhase
	}
	c.appendResultLocked(models.TaskResult{
		Completed:  false,
		EaseRating: 0,
		Comment:    comment,
	})
	c.advanceLocked()
	return nil
}

// SetHintOpen toggles the hint panel flag.
func (c *Controller) SetHintOpen(open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hintOpen = open
}

// StartRecallTimer begins the look countdown for a recall task. Skip and
// done controls are unavailable until the question appears.
func (c *Controller) StartRecallTimer() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseRecallReady {
		return ErrWrongPhase
	}
	c.skipPrompt = false
	c.countdown = c.currentTask().LookDuration()
	c.phase = PhaseRecallCountdown
	return nil
}

// SubmitRecallAnswer records the tester's answer. Recall tasks are always
// completed; correctness is a case-insensitive exact match when a correct
// answer was configured, and nil otherwise.
func (c *Controller) SubmitRecallAnswer(answer string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseRecallQuestion {
		return ErrWrongPhase
	}
	c.taskDuration = c.now().Sub(c.taskStart)

	task := c.currentTask()
	res := models.TaskResult{
		Completed:    true,
		RecallAnswer: answer,
	}
	if task.CorrectAnswer != "" {
		correct := strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(task.CorrectAnswer))
		res.RecallCorrect = &correct
		c.appendResultLocked(res)
		c.phase = PhaseRecallFeedback
		return nil
	}
	c.appendResultLocked(res)
	c.advanceLocked()
	return nil
}

// AckRecallFeedback dismisses the correct/incorrect feedback and advances.
func (c *Controller) AckRecallFeedback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseRecallFeedback {
		return ErrWrongPhase
	}
	c.advanceLocked()
	return nil
}

// SubmitFinal collects the overall rating and comment, builds the submission,
// and hands it to the dispatcher. The session is terminal afterwards.
func (c *Controller) SubmitFinal(rating int, comment string) error {
	c.mu.Lock()
	if c.phase != PhaseFinalFeedback {
		over := c.phase == PhaseSubmitted
		c.mu.Unlock()
		if over {
			return ErrSessionOver
		}
		return ErrWrongPhase
	}

	now := c.now()
	durMs := now.Sub(c.sessionStart).Milliseconds()
	completed := 0
	for _, r := range c.results {
		if r.Completed {
			completed++
		}
	}
	results := make([]models.TaskResult, len(c.results))
	copy(results, c.results)

	sub := &models.SessionSubmission{
		SessionID:          c.sessionID,
		ProjectName:        c.project,
		TesterName:         c.testerName,
		TesterEmail:        c.testerEmail,
		SubmittedAt:        now.UTC(),
		SessionDurationMs:  durMs,
		SessionDurationFmt: models.FormatDurationMs(durMs),
		OverallRating:      clampRating(rating),
		OverallComment:     comment,
		CompletedTasks:     completed,
		TotalTasks:         len(c.tasks),
		TaskResults:        results,
	}
	c.submission = sub
	c.phase = PhaseSubmitted
	submitter := c.submitter
	c.mu.Unlock()

	// Fire-and-forget: the thank-you state is reached regardless of what the
	// sinks do with the payload.
	if submitter != nil {
		submitter.Dispatch(sub)
	}
	return nil
}

// Submission returns the terminal payload, or nil before submission.
func (c *Controller) Submission() *models.SessionSubmission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submission
}

// RecordClick adds a click to the current task's trail. Clicks arriving while
// no task is active are dropped, as are clicks past the per-task cap.
func (c *Controller) RecordClick(x, y int, elementTag, elementID, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.phase {
	case PhaseTaskActive, PhaseRecallReady, PhaseRecallCountdown:
	default:
		return
	}
	if len(c.trail) >= c.clickLimit {
		if !c.trailCapped {
			c.trailCapped = true
			log.Printf("click trail for task %d hit cap of %d, dropping further clicks", c.taskIdx, c.clickLimit)
		}
		return
	}
	if len(text) > maxClickText {
		text = text[:maxClickText]
	}
	c.trail = append(c.trail, models.ClickEvent{
		OffsetMs:   c.now().Sub(c.taskStart).Milliseconds(),
		X:          x,
		Y:          y,
		ElementTag: strings.ToLower(elementTag),
		ElementID:  elementID,
		Text:       text,
	})
}

// Tick drives the elapsed-time display and the recall countdown. The caller
// invokes it on a fixed one-second period; each call accounts for one period
// of countdown time.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.phase {
	case PhaseTaskActive:
		c.elapsedMs = c.now().Sub(c.taskStart).Milliseconds()
	case PhaseRecallCountdown:
		c.countdown -= time.Second
		if c.countdown <= 0 {
			c.countdown = 0
			c.phase = PhaseRecallQuestion
		}
	}
}

func (c *Controller) currentTask() models.TaskDefinition {
	return c.tasks[c.taskIdx]
}

// appendResultLocked fills in the identity, duration, and click fields shared
// by every result shape and appends it.
func (c *Controller) appendResultLocked(res models.TaskResult) {
	task := c.currentTask()
	res.TaskID = task.ID
	res.TaskTitle = task.Title
	res.TaskType = task.Kind
	res.DurationMs = c.taskDuration.Milliseconds()
	res.DurationFmt = models.FormatDurationMs(res.DurationMs)
	res.Clicks = c.trail
	if res.Clicks == nil {
		res.Clicks = []models.ClickEvent{}
	}
	c.results = append(c.results, res)
}

// advanceLocked moves to the next task intro, or to final feedback after the
// last task. Per-task transient state is reset.
func (c *Controller) advanceLocked() {
	c.taskStart = time.Time{}
	c.taskDuration = 0
	c.elapsedMs = 0
	c.trail = nil
	c.trailCapped = false
	c.goalFired = false
	c.skipPrompt = false
	c.hintOpen = false
	c.countdown = 0

	if c.taskIdx+1 < len(c.tasks) {
		c.taskIdx++
		c.phase = PhaseTaskIntro
		return
	}
	c.phase = PhaseFinalFeedback
}

func clampRating(r int) int {
	if r < 0 {
		return 0
	}
	if r > 5 {
		return 5
	}
	return r
}
