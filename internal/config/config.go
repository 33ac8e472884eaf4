package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Secrets (from .env)
	KisAppKey       string
	KisAppSecret    string
	WebhookURL      string
	BotName         string
	APIKey          string
	CORSAllowOrigin string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Redis (KIS token cache)
	RedisURL string

	// External services
	KisBaseURL     string
	AIWorkerURL    string
	RequestTimeout time.Duration

	// Batch
	BatchEnabled         bool
	BatchCron            string
	BatchTimezone        string
	BatchItemDelay       time.Duration
	SyncLookbackDays     int
	AnalysisLookbackDays int

	// API
	APIPort int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Secrets
		KisAppKey:       envStr("KIS_APP_KEY", ""),
		KisAppSecret:    envStr("KIS_APP_SECRET", ""),
		WebhookURL:      envStr("WEBHOOK_URL", ""),
		BotName:         envStr("BOT_NAME", "StockPilot"),
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),

		// Database
		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "stockpilot"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),

		// Redis
		RedisURL: envStr("REDIS_URL", "redis://localhost:6379/0"),

		// External services
		KisBaseURL:     envStr("KIS_BASE_URL", "https://openapi.koreainvestment.com:9443"),
		AIWorkerURL:    envStr("AI_WORKER_URL", "http://localhost:8000"),
		RequestTimeout: time.Duration(envInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,

		// Batch
		BatchEnabled:         envBool("BATCH_ENABLED", true),
		BatchCron:            envStr("BATCH_CRON", "0 0 16 * * 1-5"),
		BatchTimezone:        envStr("BATCH_TIMEZONE", "Asia/Seoul"),
		BatchItemDelay:       time.Duration(envInt("BATCH_ITEM_DELAY_SECONDS", 3)) * time.Second,
		SyncLookbackDays:     envInt("SYNC_LOOKBACK_DAYS", 5),
		AnalysisLookbackDays: envInt("ANALYSIS_LOOKBACK_DAYS", 120),

		// API
		APIPort: envInt("API_PORT", 3001),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.KisAppKey == "" {
		errs = append(errs, "KIS_APP_KEY is required")
	}
	if c.KisAppSecret == "" {
		errs = append(errs, "KIS_APP_SECRET is required")
	}
	if c.DBUser == "" {
		errs = append(errs, "DB_USER is required")
	}
	if c.SyncLookbackDays <= 0 {
		errs = append(errs, "SYNC_LOOKBACK_DAYS must be positive")
	}
	if c.AnalysisLookbackDays <= 0 {
		errs = append(errs, "ANALYSIS_LOOKBACK_DAYS must be positive")
	}
	if _, err := time.LoadLocation(c.BatchTimezone); err != nil {
		errs = append(errs, fmt.Sprintf("BATCH_TIMEZONE invalid: %v", err))
	}

	if !c.BatchEnabled {
		fmt.Println("[WARN] BATCH_ENABLED=false - daily analysis batch subsystem is disabled")
	}
	if c.APIKey == "" {
		fmt.Println("[WARN] API_KEY not set - REST API has no authentication")
	}
	if c.WebhookURL == "" {
		fmt.Println("[WARN] WEBHOOK_URL not set - run summaries go to console only")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== StockPilot Daily Analysis Configuration ===")
	fmt.Printf("KIS API: %s (app key %s)\n", c.KisBaseURL, maskKey(c.KisAppKey))
	fmt.Printf("AI Worker: %s\n", c.AIWorkerURL)
	fmt.Println("--------------------------------------")
	fmt.Println("Batch Configuration:")
	fmt.Printf("  Enabled: %v\n", c.BatchEnabled)
	fmt.Printf("  Cron: %s (%s)\n", c.BatchCron, c.BatchTimezone)
	fmt.Printf("  Item Delay: %s\n", c.BatchItemDelay)
	fmt.Printf("  Sync Lookback: %d days\n", c.SyncLookbackDays)
	fmt.Printf("  Analysis Lookback: %d days\n", c.AnalysisLookbackDays)
	fmt.Println("--------------------------------------")
	fmt.Printf("API Port: %d\n", c.APIPort)
	fmt.Printf("Webhook: %s\n", boolLabel(c.WebhookURL != "", "configured", "not set"))
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// Location resolves the batch time zone. Validate has already rejected
// unknown zone names, so a failure here falls back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.BatchTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

func maskKey(key string) string {
	if len(key) <= 6 {
		return "***"
	}
	return key[:4] + "..."
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
