package pricesync_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockpilot/internal/external"
	"stockpilot/internal/models"
	"stockpilot/internal/pricesync"
	"stockpilot/internal/repository"
)

type fakeStocks struct {
	stock       *models.Stock
	priceUpdate decimal.Decimal
	updated     bool
}

func (f *fakeStocks) GetByCode(_ context.Context, code string) (*models.Stock, error) {
	if f.stock == nil || f.stock.Code != code {
		return nil, repository.ErrStockNotFound
	}
	return f.stock, nil
}

func (f *fakeStocks) UpdateCurrentPrice(_ context.Context, _ int64, price decimal.Decimal) error {
	f.priceUpdate = price
	f.updated = true
	return nil
}

type fakePrices struct {
	saved []models.PricePoint
}

func (f *fakePrices) UpsertBatch(_ context.Context, points []models.PricePoint) (int, error) {
	f.saved = append(f.saved, points...)
	return len(points), nil
}

type fakeMarket struct {
	bars []external.DailyBar
	err  error
}

func (f *fakeMarket) FetchDailyPrices(context.Context, string, time.Time, time.Time) ([]external.DailyBar, error) {
	return f.bars, f.err
}

func bar(date, closePrice string) external.DailyBar {
	return external.DailyBar{
		BusinessDate: date,
		OpenPrice:    "70000",
		HighPrice:    "71000",
		LowPrice:     "69500",
		ClosePrice:   closePrice,
		Volume:       "1234567",
		ChangeRate:   "0.71",
	}
}

func TestEngine_Sync(t *testing.T) {
	stocks := &fakeStocks{stock: &models.Stock{ID: 7, Code: "005930"}}
	prices := &fakePrices{}
	market := &fakeMarket{bars: []external.DailyBar{
		bar("20250110", "70500"),
		bar("20250109", "69900"),
	}}

	engine := pricesync.NewEngine(stocks, prices, market)
	n, err := engine.Sync(context.Background(), "005930", time.Now().AddDate(0, 0, -5), time.Now())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 bars, got %d", n)
	}
	if len(prices.saved) != 2 {
		t.Fatalf("expected 2 saved points, got %d", len(prices.saved))
	}
	if prices.saved[0].StockID != 7 {
		t.Fatalf("stock ID not propagated: %d", prices.saved[0].StockID)
	}
	if !prices.saved[0].Open.Equal(decimal.NewFromInt(70000)) {
		t.Fatalf("open mismatch: %s", prices.saved[0].Open)
	}

	// Current price tracks the newest bar's close, not the last in the slice.
	if !stocks.updated {
		t.Fatal("current price not updated")
	}
	if !stocks.priceUpdate.Equal(decimal.NewFromInt(70500)) {
		t.Fatalf("expected newest close 70500, got %s", stocks.priceUpdate)
	}
}

func TestEngine_SyncUnknownStock(t *testing.T) {
	engine := pricesync.NewEngine(&fakeStocks{}, &fakePrices{}, &fakeMarket{})
	_, err := engine.Sync(context.Background(), "999999", time.Now(), time.Now())
	if err == nil {
		t.Fatal("expected error for unknown stock")
	}
}

func TestEngine_SyncEmptyRange(t *testing.T) {
	stocks := &fakeStocks{stock: &models.Stock{ID: 1, Code: "005930"}}
	prices := &fakePrices{}
	engine := pricesync.NewEngine(stocks, prices, &fakeMarket{})

	n, err := engine.Sync(context.Background(), "005930", time.Now(), time.Now())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 bars for empty range, got %d", n)
	}
	if len(prices.saved) != 0 {
		t.Fatal("nothing should be saved for an empty range")
	}
	if stocks.updated {
		t.Fatal("current price must not change without bars")
	}
}

func TestEngine_SyncMalformedBarFailsWhole(t *testing.T) {
	stocks := &fakeStocks{stock: &models.Stock{ID: 1, Code: "005930"}}
	prices := &fakePrices{}
	market := &fakeMarket{bars: []external.DailyBar{
		bar("20250110", "70500"),
		bar("20250109", "not-a-number"),
	}}

	engine := pricesync.NewEngine(stocks, prices, market)
	_, err := engine.Sync(context.Background(), "005930", time.Now().AddDate(0, 0, -5), time.Now())
	if err == nil {
		t.Fatal("expected error for malformed bar")
	}
	if len(prices.saved) != 0 {
		t.Fatal("no partial save on malformed input")
	}
}
