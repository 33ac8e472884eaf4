package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one daily OHLCV bar. Identity is (StockID, Date); a re-sync
// of the same date overwrites the row rather than appending a new one.
type PricePoint struct {
	StockID    int64           `json:"-"`
	Date       time.Time       `json:"date"`
	Open       decimal.Decimal `json:"open"`
	High       decimal.Decimal `json:"high"`
	Low        decimal.Decimal `json:"low"`
	Close      decimal.Decimal `json:"close"`
	Volume     int64           `json:"volume"`
	ChangeRate decimal.Decimal `json:"changeRate"`
}
