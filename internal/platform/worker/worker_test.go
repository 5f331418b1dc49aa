package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32

	done := make(chan error, 1)

	go func() {
		done <- Loop(ctx, Config{
			Name:         "test",
			PollInterval: time.Millisecond,
			Process: func(context.Context) error {
				calls.Add(1)
				return nil
			},
		})
	}()

	for calls.Load() < 3 {
		time.Sleep(time.Millisecond)
	}

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancel")
	}
}

func TestLoopContinuesAfterProcessError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32

	go func() {
		_ = Loop(ctx, Config{
			Name:         "test",
			PollInterval: time.Millisecond,
			Process: func(context.Context) error {
				calls.Add(1)
				return errors.New("transient")
			},
		})
	}()

	deadline := time.After(time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatal("process not retried after error")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestPeriodicTaskRuns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32

	go func() {
		_ = Loop(ctx, Config{
			Name:         "test",
			PollInterval: time.Millisecond,
			PeriodicTasks: []PeriodicTask{{
				Name:     "tick",
				Interval: time.Millisecond,
				Run:      func(context.Context) { runs.Add(1) },
			}},
		})
	}()

	deadline := time.After(time.Second)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("periodic task did not run")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestWaitZeroDuration(t *testing.T) {
	if err := Wait(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
