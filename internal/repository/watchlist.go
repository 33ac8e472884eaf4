package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"stockpilot/internal/models"
)

type WatchlistRepo struct {
	pool *pgxpool.Pool
}

func NewWatchlistRepo(pool *pgxpool.Pool) *WatchlistRepo {
	return &WatchlistRepo{pool: pool}
}

// ListActive returns the stocks eligible for a batch run. Order is priority
// ascending with stock code as tie-break, so run order is deterministic.
func (r *WatchlistRepo) ListActive(ctx context.Context) ([]models.WatchlistEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT w.id, w.is_active, w.priority, w.created_at, w.updated_at,
		        s.id, s.stock_code, s.stock_name, s.market, s.current_price, s.updated_at
		 FROM watchlist w
		 JOIN stock s ON s.id = w.stock_id
		 WHERE w.is_active = true
		 ORDER BY w.priority ASC, s.stock_code ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.WatchlistEntry
	for rows.Next() {
		var e models.WatchlistEntry
		err := rows.Scan(
			&e.ID, &e.IsActive, &e.Priority, &e.CreatedAt, &e.UpdatedAt,
			&e.Stock.ID, &e.Stock.Code, &e.Stock.Name, &e.Stock.Market,
			&e.Stock.CurrentPrice, &e.Stock.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *WatchlistRepo) Add(ctx context.Context, stockID int64, priority int) (*models.WatchlistEntry, error) {
	var e models.WatchlistEntry
	err := r.pool.QueryRow(ctx,
		`INSERT INTO watchlist (stock_id, is_active, priority)
		 VALUES ($1, true, $2)
		 RETURNING id, is_active, priority, created_at, updated_at`,
		stockID, priority,
	).Scan(&e.ID, &e.IsActive, &e.Priority, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Stock.ID = stockID
	return &e, nil
}

func (r *WatchlistRepo) SetActive(ctx context.Context, stockID int64, active bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE watchlist SET is_active = $1, updated_at = NOW() WHERE stock_id = $2`,
		active, stockID,
	)
	return err
}
