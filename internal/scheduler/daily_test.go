package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"stockpilot/internal/scheduler"
)

type fakeRunner struct {
	runs atomic.Int32
}

func (f *fakeRunner) Run(context.Context) error {
	f.runs.Add(1)
	return nil
}

type fakeHistory struct {
	count int64
	err   error
}

func (f *fakeHistory) CountAll(context.Context) (int64, error) {
	return f.count, f.err
}

func waitForRuns(t *testing.T, r *fakeRunner, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.runs.Load() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d runs, got %d", want, r.runs.Load())
}

func TestStartupCatchUp_EmptyHistory(t *testing.T) {
	runner := &fakeRunner{}
	d := scheduler.New(runner, &fakeHistory{count: 0}, scheduler.Config{})

	d.StartupCatchUp(context.Background())
	waitForRuns(t, runner, 1)
}

func TestStartupCatchUp_ExistingHistory(t *testing.T) {
	runner := &fakeRunner{}
	d := scheduler.New(runner, &fakeHistory{count: 42}, scheduler.Config{})

	d.StartupCatchUp(context.Background())
	time.Sleep(100 * time.Millisecond)
	if runner.runs.Load() != 0 {
		t.Fatal("catch-up must not run when history exists")
	}
}

func TestStartStop(t *testing.T) {
	runner := &fakeRunner{}
	d := scheduler.New(runner, &fakeHistory{count: 1}, scheduler.Config{
		CronSpec: "* * * * * *", // every second, test only
	})

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Running() {
		t.Fatal("expected running after Start")
	}
	// Idempotent Start.
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	waitForRuns(t, runner, 1)

	d.Stop()
	if d.Running() {
		t.Fatal("expected stopped after Stop")
	}
}

func TestStart_InvalidSpec(t *testing.T) {
	d := scheduler.New(&fakeRunner{}, &fakeHistory{}, scheduler.Config{
		CronSpec: "not a cron spec",
	})
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}
