// Package sink delivers finished session payloads to configured
// destinations. Delivery is best-effort fan-out: every sink gets one
// attempt, failures are reported to the observer and logged, nothing is
// retried, and nothing ever blocks the tester's thank-you screen.
package sink

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/brandtiboy/prototype-test/internal/models"
)

// submitTimeout bounds a single sink attempt. The tester never waits on it;
// it only keeps dispatch goroutines from lingering forever.
const submitTimeout = 30 * time.Second

// Sink is one destination for a finished session.
type Sink interface {
	// Name returns the sink identifier for logs and diagnostics.
	Name() string

	// Submit delivers the payload once.
	Submit(ctx context.Context, sub *models.SessionSubmission) error
}

// Observer is notified of every sink outcome, success or failure. It exists
// so failure paths can be tested without scraping log output.
type Observer func(sinkName string, err error)

// Dispatcher fans a submission out to all configured sinks concurrently.
type Dispatcher struct {
	sinks    []Sink
	observer Observer
	wg       sync.WaitGroup
}

// NewDispatcher creates a dispatcher. The observer may be nil.
func NewDispatcher(sinks []Sink, observer Observer) *Dispatcher {
	return &Dispatcher{sinks: sinks, observer: observer}
}

// Dispatch sends the submission to every sink in its own goroutine and
// returns immediately. Order between sinks is not defined.
func (d *Dispatcher) Dispatch(sub *models.SessionSubmission) {
	for _, s := range d.sinks {
		s := s
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
			defer cancel()

			err := s.Submit(ctx, sub)
			if err != nil {
				log.Printf("sink %s failed for session %s: %v", s.Name(), sub.SessionID, err)
			} else {
				log.Printf("sink %s delivered session %s", s.Name(), sub.SessionID)
			}
			if d.observer != nil {
				d.observer(s.Name(), err)
			}
		}()
	}
}

// Wait blocks until all in-flight deliveries finish. Tests and graceful
// shutdown use it; the session flow never does.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
