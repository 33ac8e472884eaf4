package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Stock struct {
	ID           int64               `json:"id"`
	Code         string              `json:"code"`
	Name         string              `json:"name"`
	Market       string              `json:"market"`
	CurrentPrice decimal.NullDecimal `json:"currentPrice"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}
