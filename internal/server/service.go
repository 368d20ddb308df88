// Package server hosts the static prototype and the session API that the
// overlay shim drives.
package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/brandtiboy/prototype-test/internal/config"
	"github.com/brandtiboy/prototype-test/internal/session"
)

// Service owns the active session controller and its tick loop. One
// controller runs at a time; a reset discards the current one and creates a
// fresh instance for the next tester.
type Service struct {
	cfg       *config.Config
	submitter session.Submitter

	mu   sync.Mutex
	ctrl *session.Controller

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a service with the first controller ready in the
// Welcome phase.
func NewService(cfg *config.Config, submitter session.Submitter) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		cfg:       cfg,
		submitter: submitter,
		ctx:       ctx,
		cancel:    cancel,
	}
	s.ctrl = s.newController()
	return s
}

func (s *Service) newController() *session.Controller {
	return session.New(&session.Config{
		Project:   s.cfg.Project,
		Tasks:     s.cfg.Tasks,
		AllowSkip: s.cfg.SkipAllowed(),
		Submitter: s.submitter,
	})
}

// Controller returns the active controller.
func (s *Service) Controller() *session.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl
}

// Reset discards the active controller and starts a fresh session for the
// next tester. Submitted sessions are never resumed.
func (s *Service) Reset() *session.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.ctrl.Snapshot()
	if old.Phase != session.PhaseSubmitted && old.Phase != session.PhaseWelcome {
		log.Printf("resetting mid-session; discarding unsubmitted session %s", old.SessionID)
	}
	s.ctrl = s.newController()
	log.Printf("new session %s ready", s.ctrl.SessionID())
	return s.ctrl
}

// Start begins the one-second tick loop driving the elapsed-time display and
// recall countdowns.
func (s *Service) Start() {
	s.wg.Add(1)
	go s.tickLoop()
}

// Stop ends the tick loop.
func (s *Service) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Service) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Controller().Tick()
		}
	}
}
