package viewer

import (
	"context"
	"sync"
	"time"
)

// DefaultResizeDebounce is how long RequestDebounced waits for resizes to
// settle.
const DefaultResizeDebounce = 100 * time.Millisecond

// Scheduler runs a render function with at most one run in flight.
// Requests made during a run collapse into a single follow-up run.
type Scheduler struct {
	run      func(ctx context.Context) error
	debounce time.Duration

	// OnError, if set, receives errors returned by run.
	OnError func(error)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	pending bool
	closed  bool
	timer   *time.Timer
}

// NewScheduler returns a scheduler for run. A non-positive debounce selects
// DefaultResizeDebounce.
func NewScheduler(run func(ctx context.Context) error, debounce time.Duration) *Scheduler {
	if debounce <= 0 {
		debounce = DefaultResizeDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{run: run, debounce: debounce, ctx: ctx, cancel: cancel}
}

// Request starts a run now, or marks one pending if a run is in flight.
func (s *Scheduler) Request() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.running {
		s.pending = true
		return
	}
	s.running = true
	s.wg.Add(1)
	go s.loop()
}

// RequestDebounced calls Request once no further RequestDebounced call has
// been made for the debounce interval.
func (s *Scheduler) RequestDebounced() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.Request)
}

func (s *Scheduler) loop() {
	defer s.wg.Done()
	for {
		if err := s.run(s.ctx); err != nil && s.OnError != nil {
			s.OnError(err)
		}

		s.mu.Lock()
		if s.pending && !s.closed {
			s.pending = false
			s.mu.Unlock()
			continue
		}
		s.pending = false
		s.running = false
		s.mu.Unlock()
		return
	}
}

// Close cancels the context passed to run, drops pending requests and
// waits for the run in flight to return.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
