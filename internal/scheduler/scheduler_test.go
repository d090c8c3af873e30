package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"newslens/internal/validate"
)

func TestAddAndTrigger(t *testing.T) {
	s := New()
	defer s.Close()

	var ran atomic.Int32
	if err := s.Add("@every 1h", "count", func(context.Context) { ran.Add(1) }); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Trigger(context.Background(), "count"); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if got := ran.Load(); got != 1 {
		t.Fatalf("job ran %d times, want 1", got)
	}
}

func TestDuplicateNameRejected(t *testing.T) {
	s := New()
	defer s.Close()

	job := func(context.Context) {}
	if err := s.Add("@every 1h", "dup", job); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if err := s.Add("@every 1h", "dup", job); err == nil {
		t.Fatal("second Add with same name must fail")
	}
}

func TestBadSpecRejected(t *testing.T) {
	s := New()
	defer s.Close()

	if err := s.Add("not a cron spec", "bad", func(context.Context) {}); err == nil {
		t.Fatal("invalid spec must fail")
	}
	// A failed registration must not leave a phantom job behind.
	if err := s.Trigger(context.Background(), "bad"); err == nil {
		t.Fatal("phantom job should not be triggerable")
	}
}

func TestTriggerUnknownJob(t *testing.T) {
	s := New()
	defer s.Close()

	if err := s.Trigger(context.Background(), "missing"); err == nil {
		t.Fatal("unknown job must error")
	}
}

func TestScheduleSweepsRuns(t *testing.T) {
	s := New()
	defer s.Close()

	v := validate.New(validate.NewTracker(nil), time.Hour)
	if err := s.ScheduleSweeps("", nil, v); err != nil {
		t.Fatalf("ScheduleSweeps: %v", err)
	}
	if err := s.Trigger(context.Background(), "window_sweep"); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
}

func TestStartedJobFires(t *testing.T) {
	s := New()

	done := make(chan struct{})
	var once atomic.Bool
	if err := s.Add("@every 10ms", "tick", func(context.Context) {
		if once.CompareAndSwap(false, true) {
			close(done)
		}
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	s.Start()
	defer s.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled job never fired")
	}
}
