package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"stockpilot/internal/models"
)

type PriceRepo struct {
	pool *pgxpool.Pool
}

func NewPriceRepo(pool *pgxpool.Pool) *PriceRepo {
	return &PriceRepo{pool: pool}
}

// UpsertBatch writes all bars in one transaction, keyed on (stock_id, date).
// An existing row for the same date is overwritten in place, so re-syncing
// an overlapping range converges to the same stored values. Returns the
// number of bars processed.
func (r *PriceRepo) UpsertBatch(ctx context.Context, points []models.PricePoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	for _, p := range points {
		_, err := tx.Exec(ctx,
			`INSERT INTO stock_price
			 (stock_id, date, open_price, high_price, low_price, close_price, volume, change_rate)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (stock_id, date) DO UPDATE SET
			   open_price  = EXCLUDED.open_price,
			   high_price  = EXCLUDED.high_price,
			   low_price   = EXCLUDED.low_price,
			   close_price = EXCLUDED.close_price,
			   volume      = EXCLUDED.volume,
			   change_rate = EXCLUDED.change_rate`,
			p.StockID, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume, p.ChangeRate,
		)
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(points), nil
}

func (r *PriceRepo) GetRange(ctx context.Context, stockID int64, start, end time.Time) ([]models.PricePoint, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT stock_id, date, open_price, high_price, low_price, close_price, volume, change_rate
		 FROM stock_price
		 WHERE stock_id = $1 AND date BETWEEN $2 AND $3
		 ORDER BY date ASC`,
		stockID, start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPrices(rows)
}

// GetRecent returns up to limit bars, most recent first.
func (r *PriceRepo) GetRecent(ctx context.Context, stockID int64, limit int) ([]models.PricePoint, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT stock_id, date, open_price, high_price, low_price, close_price, volume, change_rate
		 FROM stock_price
		 WHERE stock_id = $1
		 ORDER BY date DESC
		 LIMIT $2`,
		stockID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPrices(rows)
}

// CountSince counts stored bars on or after the cutoff date. The analysis
// precondition uses this to verify price history exists in the lookback
// window before any AI call is made.
func (r *PriceRepo) CountSince(ctx context.Context, stockID int64, cutoff time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM stock_price WHERE stock_id = $1 AND date >= $2`,
		stockID, cutoff,
	).Scan(&n)
	return n, err
}

func collectPrices(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]models.PricePoint, error) {
	var out []models.PricePoint
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.StockID, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume, &p.ChangeRate); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
