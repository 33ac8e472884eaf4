package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrAlreadyRunning means a batch run is in progress and a second one was
// refused.
var ErrAlreadyRunning = errors.New("batch run already in progress")

// Runner serializes batch runs. The scheduler and the manual HTTP trigger
// share one Runner so two runs can never overlap.
type Runner struct {
	orch *Orchestrator

	mu      sync.Mutex
	running bool
}

func NewRunner(orch *Orchestrator) *Runner {
	return &Runner{orch: orch}
}

// Running reports whether a run is currently in progress.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Run executes one batch pass, refusing to overlap with another.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	_, err := r.orch.Run(ctx)
	return err
}

// TriggerAsync starts a detached run and returns immediately. The caller
// gets an error only when a run is already in progress; the run itself
// reports through logs and the notifier.
func (r *Runner) TriggerAsync(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	r.running = true
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			r.running = false
			r.mu.Unlock()
		}()
		if _, err := r.orch.Run(ctx); err != nil {
			fmt.Printf("[BATCH] Triggered run failed: %v\n", err)
		}
	}()
	return nil
}
