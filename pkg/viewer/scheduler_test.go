package viewer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerCoalesces(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 8)
	var runs, inFlight, maxInFlight atomic.Int32

	s := NewScheduler(func(ctx context.Context) error {
		n := inFlight.Add(1)
		if n > maxInFlight.Load() {
			maxInFlight.Store(n)
		}
		runs.Add(1)
		started <- struct{}{}
		<-gate
		inFlight.Add(-1)
		return nil
	}, time.Millisecond)
	defer s.Close()

	s.Request()
	<-started
	s.Request()
	s.Request()
	s.Request()
	close(gate)

	<-started
	time.Sleep(20 * time.Millisecond)
	if got := runs.Load(); got != 2 {
		t.Errorf("runs = %d, want 2", got)
	}
	if got := maxInFlight.Load(); got != 1 {
		t.Errorf("max concurrent runs = %d, want 1", got)
	}
}

func TestSchedulerDebounce(t *testing.T) {
	var runs atomic.Int32
	done := make(chan struct{}, 8)
	s := NewScheduler(func(ctx context.Context) error {
		runs.Add(1)
		done <- struct{}{}
		return nil
	}, 50*time.Millisecond)
	defer s.Close()

	for range 5 {
		s.RequestDebounced()
		time.Sleep(time.Millisecond)
	}
	if got := runs.Load(); got != 0 {
		t.Fatalf("run fired before the debounce settled (%d runs)", got)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced run never happened")
	}
	time.Sleep(100 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
}

func TestSchedulerOnErrorAndClose(t *testing.T) {
	boom := errors.New("boom")
	errs := make(chan error, 1)
	s := NewScheduler(func(ctx context.Context) error { return boom }, 0)
	s.OnError = func(err error) { errs <- err }

	s.Request()
	select {
	case err := <-errs:
		if !errors.Is(err, boom) {
			t.Errorf("OnError got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnError not called")
	}

	s.Close()
	s.Request()
	s.RequestDebounced()
	select {
	case err := <-errs:
		t.Errorf("run after Close: %v", err)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSchedulerCloseCancelsRun(t *testing.T) {
	started := make(chan struct{})
	s := NewScheduler(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, 0)
	s.Request()
	<-started

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
}
