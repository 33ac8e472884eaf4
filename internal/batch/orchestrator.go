package batch

import (
	"context"
	"fmt"
	"time"

	"stockpilot/internal/models"
)

// WatchlistSource lists the stocks eligible for the daily run, in run order.
// Satisfied by repository.WatchlistRepo.
type WatchlistSource interface {
	ListActive(ctx context.Context) ([]models.WatchlistEntry, error)
}

// PriceSyncer refreshes the trailing bars for one stock before analysis.
// Satisfied by pricesync.Engine.
type PriceSyncer interface {
	SyncRecent(ctx context.Context, stockCode string, days int) (int, error)
}

// Analyzer produces a recommendation for one stock.
// Satisfied by external.AnalysisClient.
type Analyzer interface {
	Analyze(ctx context.Context, stock *models.Stock) (*models.AnalysisResult, error)
}

// AnalysisStore persists and gates analysis records.
// Satisfied by repository.AnalysisRepo.
type AnalysisStore interface {
	Save(ctx context.Context, h *models.AnalysisHistory) (*models.AnalysisHistory, error)
	FindByStockAndDate(ctx context.Context, stockID int64, date time.Time) (*models.AnalysisHistory, error)
	ExistsForDate(ctx context.Context, date time.Time) (bool, error)
}

// Notifier delivers the run summary. May be nil when no webhook is
// configured.
type Notifier interface {
	Send(ctx context.Context, message string) error
}

// Options tune one orchestrator instance. Zero values fall back to the
// production defaults.
type Options struct {
	ItemDelay        time.Duration
	SyncLookbackDays int
	Location         *time.Location

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Orchestrator runs the daily analysis batch: weekend gate, day-level
// idempotency gate, then per-stock sync and analysis in watchlist order.
// One stock's failure never stops the rest of the run.
type Orchestrator struct {
	watchlist WatchlistSource
	syncer    PriceSyncer
	analyzer  Analyzer
	store     AnalysisStore
	notifier  Notifier

	itemDelay    time.Duration
	lookbackDays int
	loc          *time.Location
	now          func() time.Time
}

func NewOrchestrator(watchlist WatchlistSource, syncer PriceSyncer, analyzer Analyzer, store AnalysisStore, notifier Notifier, opts Options) *Orchestrator {
	if opts.ItemDelay <= 0 {
		opts.ItemDelay = 3 * time.Second
	}
	if opts.SyncLookbackDays <= 0 {
		opts.SyncLookbackDays = 5
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		watchlist:    watchlist,
		syncer:       syncer,
		analyzer:     analyzer,
		store:        store,
		notifier:     notifier,
		itemDelay:    opts.ItemDelay,
		lookbackDays: opts.SyncLookbackDays,
		loc:          opts.Location,
		now:          opts.Now,
	}
}

// Run executes one batch pass. The returned outcome is always non-nil; a
// non-nil error means the run aborted before processing any stock.
func (o *Orchestrator) Run(ctx context.Context) (*models.RunOutcome, error) {
	started := o.now()
	outcome := &models.RunOutcome{StartedAt: started}

	localNow := started.In(o.loc)
	today := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, time.UTC)

	if wd := localNow.Weekday(); wd == time.Saturday || wd == time.Sunday {
		outcome.SkipReason = "weekend"
		outcome.FinishedAt = o.now()
		fmt.Printf("[BATCH] %s is a %s - skipping run\n", today.Format("2006-01-02"), wd)
		return outcome, nil
	}

	done, err := o.store.ExistsForDate(ctx, today)
	if err != nil {
		outcome.FinishedAt = o.now()
		return outcome, fmt.Errorf("check day gate: %w", err)
	}
	if done {
		outcome.SkipReason = "already analyzed"
		outcome.FinishedAt = o.now()
		fmt.Printf("[BATCH] %s already analyzed - skipping run\n", today.Format("2006-01-02"))
		return outcome, nil
	}

	entries, err := o.watchlist.ListActive(ctx)
	if err != nil {
		outcome.FinishedAt = o.now()
		return outcome, fmt.Errorf("load watchlist: %w", err)
	}
	outcome.Total = len(entries)
	fmt.Printf("[BATCH] Starting daily analysis for %s: %d stocks\n",
		today.Format("2006-01-02"), len(entries))

	for i, entry := range entries {
		if ctx.Err() != nil {
			outcome.Interrupted = true
			break
		}

		if err := o.processStock(ctx, entry.Stock, today); err != nil {
			outcome.Failed++
			fmt.Printf("[BATCH] %s failed: %v\n", entry.Stock.Code, err)
		} else {
			outcome.Success++
		}

		// Pace outbound calls between stocks, failed ones included.
		if i < len(entries)-1 {
			select {
			case <-ctx.Done():
				outcome.Interrupted = true
			case <-time.After(o.itemDelay):
			}
			if outcome.Interrupted {
				break
			}
		}
	}

	outcome.FinishedAt = o.now()
	o.report(today, outcome)
	return outcome, nil
}

// processStock syncs prices, then analyzes unless a record already exists
// for (stock, today). The sync always runs so price history stays current
// even for already-analyzed stocks.
func (o *Orchestrator) processStock(ctx context.Context, stock models.Stock, today time.Time) error {
	if _, err := o.syncer.SyncRecent(ctx, stock.Code, o.lookbackDays); err != nil {
		return fmt.Errorf("price sync: %w", err)
	}

	existing, err := o.store.FindByStockAndDate(ctx, stock.ID, today)
	if err != nil {
		return fmt.Errorf("check existing analysis: %w", err)
	}
	if existing != nil {
		fmt.Printf("[BATCH] %s already analyzed today (%s)\n", stock.Code, existing.Recommendation)
		return nil
	}

	result, err := o.analyzer.Analyze(ctx, &stock)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	if _, err := o.store.Save(ctx, models.NewAnalysisHistory(stock.ID, today, result)); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}

	fmt.Printf("[BATCH] %s -> %s (confidence %d)\n",
		stock.Code, result.Recommendation, result.ConfidenceScore)
	return nil
}

func (o *Orchestrator) report(today time.Time, outcome *models.RunOutcome) {
	status := "completed"
	if outcome.Interrupted {
		status = "interrupted"
	}
	fmt.Printf("[BATCH] Run %s: %d/%d succeeded, %d failed in %s\n",
		status, outcome.Success, outcome.Total, outcome.Failed,
		outcome.Duration().Round(time.Millisecond))

	if o.notifier == nil {
		return
	}
	// Summaries go out even when the run context was cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	msg := fmt.Sprintf("Daily analysis %s for %s: %d/%d succeeded, %d failed (%s)",
		status, today.Format("2006-01-02"), outcome.Success, outcome.Total,
		outcome.Failed, outcome.Duration().Round(time.Second))
	if err := o.notifier.Send(ctx, msg); err != nil {
		fmt.Printf("[BATCH] Failed to send run summary: %v\n", err)
	}
}
