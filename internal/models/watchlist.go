package models

import "time"

// WatchlistEntry marks a stock as eligible for the daily analysis batch.
// At most one entry exists per stock. Lower priority runs first; equal
// priorities are broken by stock code so run order stays deterministic.
type WatchlistEntry struct {
	ID        int64     `json:"id"`
	Stock     Stock     `json:"stock"`
	IsActive  bool      `json:"isActive"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
