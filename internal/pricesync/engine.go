package pricesync

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"stockpilot/internal/external"
	"stockpilot/internal/models"
)

// StockFinder resolves watch-listed stocks and records their latest close.
// Satisfied by repository.StockRepo.
type StockFinder interface {
	GetByCode(ctx context.Context, code string) (*models.Stock, error)
	UpdateCurrentPrice(ctx context.Context, stockID int64, price decimal.Decimal) error
}

// PriceStore persists daily bars. Satisfied by repository.PriceRepo.
type PriceStore interface {
	UpsertBatch(ctx context.Context, points []models.PricePoint) (int, error)
}

// MarketDataClient fetches daily OHLCV bars from the brokerage.
// Satisfied by external.KisClient.
type MarketDataClient interface {
	FetchDailyPrices(ctx context.Context, stockCode string, start, end time.Time) ([]external.DailyBar, error)
}

// Engine pulls daily bars from the brokerage and upserts them, so re-syncing
// an already covered range converges to upstream values without duplicates.
type Engine struct {
	stocks StockFinder
	prices PriceStore
	market MarketDataClient
	now    func() time.Time
}

func NewEngine(stocks StockFinder, prices PriceStore, market MarketDataClient) *Engine {
	return &Engine{
		stocks: stocks,
		prices: prices,
		market: market,
		now:    time.Now,
	}
}

// Sync fetches bars for [start, end] and stores them, returning the number
// of bars written. An empty upstream response (holiday range) returns 0 with
// no error. Any malformed bar fails the whole sync before anything is saved.
func (e *Engine) Sync(ctx context.Context, stockCode string, start, end time.Time) (int, error) {
	stock, err := e.stocks.GetByCode(ctx, stockCode)
	if err != nil {
		return 0, err
	}

	bars, err := e.market.FetchDailyPrices(ctx, stockCode, start, end)
	if err != nil {
		return 0, fmt.Errorf("fetch prices for %s: %w", stockCode, err)
	}
	if len(bars) == 0 {
		fmt.Printf("[SYNC] %s: no bars for %s..%s\n",
			stockCode, start.Format("2006-01-02"), end.Format("2006-01-02"))
		return 0, nil
	}

	points := make([]models.PricePoint, 0, len(bars))
	for _, bar := range bars {
		p, err := parseBar(stock.ID, bar)
		if err != nil {
			return 0, fmt.Errorf("parse bar for %s: %w", stockCode, err)
		}
		points = append(points, p)
	}

	n, err := e.prices.UpsertBatch(ctx, points)
	if err != nil {
		return 0, fmt.Errorf("store prices for %s: %w", stockCode, err)
	}

	// KIS returns bars newest first, so the first one carries today's close.
	latest := newestPoint(points)
	if err := e.stocks.UpdateCurrentPrice(ctx, stock.ID, latest.Close); err != nil {
		return 0, fmt.Errorf("update current price for %s: %w", stockCode, err)
	}

	fmt.Printf("[SYNC] %s: %d bars stored, close %s\n", stockCode, n, latest.Close)
	return n, nil
}

// SyncRecent syncs the trailing N days up to today.
func (e *Engine) SyncRecent(ctx context.Context, stockCode string, days int) (int, error) {
	if days <= 0 {
		days = 5
	}
	end := e.now()
	start := end.AddDate(0, 0, -days)
	return e.Sync(ctx, stockCode, start, end)
}

func parseBar(stockID int64, bar external.DailyBar) (models.PricePoint, error) {
	date, err := time.Parse("20060102", bar.BusinessDate)
	if err != nil {
		return models.PricePoint{}, fmt.Errorf("business date %q: %w", bar.BusinessDate, err)
	}

	open, err := decimal.NewFromString(bar.OpenPrice)
	if err != nil {
		return models.PricePoint{}, fmt.Errorf("open %q: %w", bar.OpenPrice, err)
	}
	high, err := decimal.NewFromString(bar.HighPrice)
	if err != nil {
		return models.PricePoint{}, fmt.Errorf("high %q: %w", bar.HighPrice, err)
	}
	low, err := decimal.NewFromString(bar.LowPrice)
	if err != nil {
		return models.PricePoint{}, fmt.Errorf("low %q: %w", bar.LowPrice, err)
	}
	closePrice, err := decimal.NewFromString(bar.ClosePrice)
	if err != nil {
		return models.PricePoint{}, fmt.Errorf("close %q: %w", bar.ClosePrice, err)
	}

	volume, err := strconv.ParseInt(bar.Volume, 10, 64)
	if err != nil {
		return models.PricePoint{}, fmt.Errorf("volume %q: %w", bar.Volume, err)
	}

	changeRate := decimal.Zero
	if bar.ChangeRate != "" {
		changeRate, err = decimal.NewFromString(bar.ChangeRate)
		if err != nil {
			return models.PricePoint{}, fmt.Errorf("change rate %q: %w", bar.ChangeRate, err)
		}
	}

	return models.PricePoint{
		StockID:    stockID,
		Date:       date,
		Open:       open,
		High:       high,
		Low:        low,
		Close:      closePrice,
		Volume:     volume,
		ChangeRate: changeRate,
	}, nil
}

func newestPoint(points []models.PricePoint) models.PricePoint {
	latest := points[0]
	for _, p := range points[1:] {
		if p.Date.After(latest.Date) {
			latest = p
		}
	}
	return latest
}
