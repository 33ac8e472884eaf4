package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockpilot/internal/api"
	"stockpilot/internal/batch"
	"stockpilot/internal/config"
	"stockpilot/internal/db"
	"stockpilot/internal/external"
	"stockpilot/internal/notifications"
	"stockpilot/internal/pricesync"
	"stockpilot/internal/repository"
	"stockpilot/internal/scheduler"
)

const banner = `
╔══════════════════════════════════════╗
║   StockPilot Daily Analysis v0.1     ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	// Database
	fmt.Printf("\n[DB] Connecting to %s:%d/%s ...\n", cfg.DBHost, cfg.DBPort, cfg.DBName)
	pool, err := db.Connect(cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Connection failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		pool.Close()
		fmt.Println("[DB] Connection pool closed")
	}()

	if err := db.TestConnection(pool); err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Test query failed: %v\n", err)
		os.Exit(1)
	}

	// Repos
	stockRepo := repository.NewStockRepo(pool)
	priceRepo := repository.NewPriceRepo(pool)
	watchlistRepo := repository.NewWatchlistRepo(pool)
	analysisRepo := repository.NewAnalysisRepo(pool)

	// KIS client with Redis-backed token cache
	tokenStore, err := external.NewRedisTokenStore(cfg.RedisURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[REDIS] Connection failed: %v\n", err)
		os.Exit(1)
	}
	defer tokenStore.Close()

	tokens := external.NewTokenCache(tokenStore, cfg.KisBaseURL, cfg.KisAppKey, cfg.KisAppSecret)
	kis := external.NewKisClient(external.KisOptions{
		BaseURL:   cfg.KisBaseURL,
		AppKey:    cfg.KisAppKey,
		AppSecret: cfg.KisAppSecret,
		Timeout:   cfg.RequestTimeout,
	}, tokens)

	// AI worker client
	analyzer := external.NewAnalysisClient(cfg.AIWorkerURL, cfg.AnalysisLookbackDays, priceRepo, 60*time.Second)

	// Notifications
	notify := notifications.NewSender(cfg.WebhookURL, cfg.BotName)

	// Price sync and batch pipeline
	syncer := pricesync.NewEngine(stockRepo, priceRepo, kis)
	orch := batch.NewOrchestrator(watchlistRepo, syncer, analyzer, analysisRepo, notify, batch.Options{
		ItemDelay:        cfg.BatchItemDelay,
		SyncLookbackDays: cfg.SyncLookbackDays,
		Location:         cfg.Location(),
	})
	runner := batch.NewRunner(orch)

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. API server
	srv := api.NewServer(ctx, pool, syncer, runner, cfg.APIPort, cfg.APIKey, cfg.CORSAllowOrigin)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "[API] Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	// 2. Daily batch scheduler
	var sched *scheduler.Daily
	if cfg.BatchEnabled {
		sched = scheduler.New(runner, analysisRepo, scheduler.Config{
			CronSpec: cfg.BatchCron,
			Location: cfg.Location(),
		})
		if err := sched.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "[SCHEDULER] Start failed: %v\n", err)
			os.Exit(1)
		}
		sched.StartupCatchUp(ctx)
	} else {
		fmt.Println("[SCHEDULER] Skipped - batch disabled")
	}

	fmt.Println("\nAll services started successfully")

	// Wait for shutdown signal
	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "[API] Shutdown error: %v\n", err)
	}
	fmt.Println("[API] Server closed")
	fmt.Println("Shutdown complete")
}
