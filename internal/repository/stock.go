package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"stockpilot/internal/models"
)

// ErrStockNotFound is returned when a stock code has no matching record.
// Stocks must be registered before they can be synced or analyzed.
var ErrStockNotFound = errors.New("stock not found")

type StockRepo struct {
	pool *pgxpool.Pool
}

func NewStockRepo(pool *pgxpool.Pool) *StockRepo {
	return &StockRepo{pool: pool}
}

func (r *StockRepo) GetByCode(ctx context.Context, code string) (*models.Stock, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, stock_code, stock_name, market, current_price, updated_at
		 FROM stock WHERE stock_code = $1`,
		code,
	)
	s, err := scanStock(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStockNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *StockRepo) Create(ctx context.Context, s *models.Stock) (*models.Stock, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO stock (stock_code, stock_name, market, current_price, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING id, stock_code, stock_name, market, current_price, updated_at`,
		s.Code, s.Name, s.Market, s.CurrentPrice,
	)
	return scanStock(row)
}

// UpdateCurrentPrice refreshes the last-known price after a sync.
func (r *StockRepo) UpdateCurrentPrice(ctx context.Context, id int64, price decimal.Decimal) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE stock SET current_price = $1, updated_at = NOW() WHERE id = $2`,
		price, id,
	)
	return err
}

func scanStock(row scannable) (*models.Stock, error) {
	var s models.Stock
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Market, &s.CurrentPrice, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// scannable lets scan helpers accept both QueryRow results and Rows.
type scannable interface {
	Scan(dest ...any) error
}
