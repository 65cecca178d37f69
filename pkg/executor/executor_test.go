package executor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecutor_SubmitRunsTask(t *testing.T) {
	e := New(Config{})
	defer e.Close()

	done := make(chan struct{})
	var ran atomic.Bool
	err := e.Submit(func(ctx context.Context) error {
		ran.Store(true)
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run in time")
	}
	if !ran.Load() {
		t.Error("expected task to have run")
	}
}

func TestExecutor_SubmitAfterCloseFails(t *testing.T) {
	e := New(Config{})
	e.Close()

	if err := e.Submit(func(ctx context.Context) error { return nil }); err == nil {
		t.Error("expected Submit after Close to fail")
	}
}

func TestExecutor_CloseCancelsInFlightTask(t *testing.T) {
	e := New(Config{})

	started := make(chan struct{})
	canceled := make(chan struct{})
	err := e.Submit(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(canceled)
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	<-started
	e.Close()

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("expected Close to cancel the in-flight task's context")
	}
}

func TestExecutor_QueueDepth(t *testing.T) {
	e := New(Config{QueueSize: 4})
	defer e.Close()

	block := make(chan struct{})
	_ = e.Submit(func(ctx context.Context) error {
		<-block
		return nil
	})
	_ = e.Submit(func(ctx context.Context) error { return nil })

	// Give the worker a moment to pick up the first (blocking) task.
	time.Sleep(10 * time.Millisecond)
	if depth := e.QueueDepth(); depth == 0 {
		t.Error("expected nonzero queue depth while a task is queued/in-flight")
	}
	close(block)
}
