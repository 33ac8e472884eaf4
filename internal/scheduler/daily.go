package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// BatchRunner starts one batch run. Satisfied by batch.Runner.
type BatchRunner interface {
	Run(ctx context.Context) error
}

// HistoryCounter reports how many analysis records exist in total.
// Satisfied by repository.AnalysisRepo.
type HistoryCounter interface {
	CountAll(ctx context.Context) (int64, error)
}

// Config for the daily scheduler. CronSpec uses six fields (seconds first);
// the default fires at 16:00 on weekdays in the configured location.
type Config struct {
	CronSpec string
	Location *time.Location
}

// Daily triggers the analysis batch on a cron schedule, plus a one-time
// startup catch-up when the history table is empty (fresh deployment that
// missed today's scheduled run).
type Daily struct {
	runner  BatchRunner
	history HistoryCounter
	cron    *cron.Cron
	spec    string

	mu      sync.Mutex
	running bool
}

func New(runner BatchRunner, history HistoryCounter, cfg Config) *Daily {
	if cfg.CronSpec == "" {
		cfg.CronSpec = "0 0 16 * * 1-5"
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Daily{
		runner:  runner,
		history: history,
		cron:    cron.New(cron.WithSeconds(), cron.WithLocation(cfg.Location)),
		spec:    cfg.CronSpec,
	}
}

// Start registers the cron job and begins scheduling. Runs launched by the
// schedule use the given context so shutdown interrupts an in-flight batch.
func (d *Daily) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return nil
	}

	_, err := d.cron.AddFunc(d.spec, func() {
		if err := d.runner.Run(ctx); err != nil {
			fmt.Printf("[SCHEDULER] Scheduled run failed: %v\n", err)
		}
	})
	if err != nil {
		return fmt.Errorf("register daily job %q: %w", d.spec, err)
	}

	d.cron.Start()
	d.running = true
	fmt.Printf("[SCHEDULER] Daily analysis scheduled: %s\n", d.spec)
	return nil
}

// Stop halts scheduling and waits for a running job callback to return.
func (d *Daily) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	<-d.cron.Stop().Done()
	d.running = false
	fmt.Println("[SCHEDULER] Stopped")
}

func (d *Daily) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// StartupCatchUp fires one detached run when no analysis history exists at
// all. An established deployment restarts without triggering anything; only
// a first boot gets the catch-up pass.
func (d *Daily) StartupCatchUp(ctx context.Context) {
	go func() {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		n, err := d.history.CountAll(checkCtx)
		cancel()
		if err != nil {
			fmt.Printf("[SCHEDULER] Catch-up check failed: %v\n", err)
			return
		}
		if n > 0 {
			return
		}

		fmt.Println("[SCHEDULER] No analysis history found - running startup catch-up")
		if err := d.runner.Run(ctx); err != nil {
			fmt.Printf("[SCHEDULER] Catch-up run failed: %v\n", err)
		}
	}()
}
