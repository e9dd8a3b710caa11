package commands

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestRestartableRunner_RestartsAfterFailure(t *testing.T) {
	var calls atomic.Int32
	r := NewRestartableRunner(RunnerConfig{Name: "test", RestartBackoff: time.Millisecond}, func(ctx context.Context) error {
		if calls.Add(1) <= 2 {
			return errors.New("boom")
		}
		<-ctx.Done()
		return nil
	})

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, func() bool { return calls.Load() == 3 })

	if got := r.RestartCount(); got != 2 {
		t.Errorf("RestartCount() = %d, want 2", got)
	}
	if !r.IsRunning() {
		t.Error("expected runner to be running")
	}

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if r.IsRunning() {
		t.Error("expected runner to be stopped")
	}
}

func TestRestartableRunner_RecoversPanic(t *testing.T) {
	var calls atomic.Int32
	r := NewRestartableRunner(RunnerConfig{Name: "test", RestartBackoff: time.Millisecond}, func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			panic("unexpected")
		}
		<-ctx.Done()
		return nil
	})

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop()

	waitFor(t, func() bool { return calls.Load() == 2 })
	if got := r.RestartCount(); got != 1 {
		t.Errorf("RestartCount() = %d, want 1", got)
	}
}

func TestRestartableRunner_GivesUpAfterMaxRestarts(t *testing.T) {
	r := NewRestartableRunner(RunnerConfig{Name: "test", MaxRestarts: 3, RestartBackoff: time.Millisecond}, func(ctx context.Context) error {
		return errors.New("always")
	})

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not give up")
	}

	if got := r.RestartCount(); got != 3 {
		t.Errorf("RestartCount() = %d, want 3", got)
	}
	if r.LastError() == nil {
		t.Error("expected last error to be kept")
	}
	if err := r.Stop(); err != nil {
		t.Errorf("Stop after give-up failed: %v", err)
	}
}

func TestRestartableRunner_StartTwice(t *testing.T) {
	r := NewRestartableRunner(RunnerConfig{Name: "test"}, func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop()

	if err := r.Start(context.Background()); err == nil {
		t.Error("expected error on second Start")
	}
}

func TestRestartableRunner_StopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRestartableRunner(RunnerConfig{Name: "test"}, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cancel()

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop with its parent context")
	}
	if got := r.RestartCount(); got != 0 {
		t.Errorf("RestartCount() = %d, want 0", got)
	}
}
