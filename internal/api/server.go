package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"stockpilot/internal/batch"
	"stockpilot/internal/pricesync"
	"stockpilot/internal/repository"
)

const maxQueryLimit = 1000

var dateRegexp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type Server struct {
	pool          *pgxpool.Pool
	stockRepo     *repository.StockRepo
	priceRepo     *repository.PriceRepo
	watchlistRepo *repository.WatchlistRepo
	analysisRepo  *repository.AnalysisRepo
	syncer        *pricesync.Engine
	runner        *batch.Runner
	httpServer    *http.Server
	apiKey        string

	// runCtx outlives individual requests; detached batch runs triggered
	// over HTTP are tied to it so server shutdown can interrupt them.
	runCtx context.Context
}

func NewServer(runCtx context.Context, pool *pgxpool.Pool, syncer *pricesync.Engine, runner *batch.Runner, port int, apiKey, corsOrigin string) *Server {
	s := &Server{
		pool:          pool,
		stockRepo:     repository.NewStockRepo(pool),
		priceRepo:     repository.NewPriceRepo(pool),
		watchlistRepo: repository.NewWatchlistRepo(pool),
		analysisRepo:  repository.NewAnalysisRepo(pool),
		syncer:        syncer,
		runner:        runner,
		apiKey:        apiKey,
		runCtx:        runCtx,
	}

	mux := http.NewServeMux()

	// Stock routes
	mux.HandleFunc("GET /api/v1/stocks/{code}", s.handleStock)
	mux.HandleFunc("GET /api/v1/stocks/{code}/analysis", s.handleStockAnalysis)

	// Price routes
	mux.HandleFunc("GET /api/v1/stocks/{code}/prices", s.handleStockPrices)
	mux.HandleFunc("POST /api/v1/stocks/{code}/prices/sync", s.handlePriceSync)
	mux.HandleFunc("POST /api/v1/stocks/{code}/prices/sync/recent", s.handlePriceSyncRecent)

	// Watchlist routes
	mux.HandleFunc("GET /api/v1/watchlist", s.handleWatchlist)

	// Batch routes
	mux.HandleFunc("POST /api/v1/batch/daily-analysis", s.handleBatchTrigger)
	mux.HandleFunc("GET /api/v1/batch/status", s.handleBatchStatus)

	// Health check (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)

	handler := s.authMiddleware(corsMiddleware(mux, corsOrigin))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	fmt.Printf("[API] REST API server started on http://localhost%s\n", s.httpServer.Addr)
	fmt.Printf("[API] Health check: http://localhost%s/health\n", s.httpServer.Addr)
	if s.apiKey != "" {
		fmt.Println("[API] Authentication: enabled (Bearer token)")
	} else {
		fmt.Println("[API] Authentication: disabled (no API_KEY configured)")
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- validation helpers ---

func validateDate(date string) bool {
	if !dateRegexp.MatchString(date) {
		return false
	}
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

func parseDays(r *http.Request, defaultDays int) int {
	v := r.URL.Query().Get("days")
	if v == "" {
		return defaultDays
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultDays
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
