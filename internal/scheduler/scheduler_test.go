package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	// Should add a valid cron job without error
	if err := s.AddJob("every-minute", "* * * * *", func() {}); err != nil {
		t.Errorf("Expected no error adding job, got %v", err)
	}
	if err := s.AddJob("descriptor", "@every 10m", func() {}); err != nil {
		t.Errorf("Expected descriptor to be accepted, got %v", err)
	}
	if s.Jobs() != 2 {
		t.Errorf("Expected 2 jobs, got %d", s.Jobs())
	}
}

func TestSchedulerAddJobInvalid(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	for _, expr := range []string{"", "not a schedule", "61 * * * *", "@every soon"} {
		if err := s.AddJob("bad", expr, func() {}); err == nil {
			t.Errorf("Expected error for %q", expr)
		}
	}
	if s.Jobs() != 0 {
		t.Errorf("Invalid jobs must not be scheduled, got %d", s.Jobs())
	}
}

func TestSchedulerRunsAndRecovers(t *testing.T) {
	s := NewScheduler()

	var runs atomic.Int32
	if err := s.AddJob("panicky", "@every 1s", func() {
		runs.Add(1)
		panic("job failed")
	}); err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	s.Stop()
	if runs.Load() < 2 {
		t.Errorf("Expected the job to keep running after a panic, ran %d times", runs.Load())
	}
}
