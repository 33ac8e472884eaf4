package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stockpilot/internal/models"
)

type AnalysisRepo struct {
	pool *pgxpool.Pool
}

func NewAnalysisRepo(pool *pgxpool.Pool) *AnalysisRepo {
	return &AnalysisRepo{pool: pool}
}

// Save inserts one analysis record. The uk_analysis_stock_date constraint
// rejects a second record for the same (stock, date) even if the caller's
// existence check raced with a concurrent run.
func (r *AnalysisRepo) Save(ctx context.Context, h *models.AnalysisHistory) (*models.AnalysisHistory, error) {
	factors, err := json.Marshal(h.RiskFactors)
	if err != nil {
		factors = []byte("[]")
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO stock_analysis_history
		 (stock_id, analyzed_date, recommendation, confidence_score,
		  technical_analysis, supply_analysis, risk_factors, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		 RETURNING id, stock_id, analyzed_date, recommendation, confidence_score,
		           technical_analysis, supply_analysis, risk_factors, created_at`,
		h.StockID, h.AnalyzedDate, h.Recommendation, h.ConfidenceScore,
		h.TechnicalAnalysis, h.SupplyAnalysis, factors,
	)
	return scanAnalysis(row)
}

// FindByStockAndDate is the per-stock idempotency gate. Returns nil when no
// record exists for the pair.
func (r *AnalysisRepo) FindByStockAndDate(ctx context.Context, stockID int64, date time.Time) (*models.AnalysisHistory, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, stock_id, analyzed_date, recommendation, confidence_score,
		        technical_analysis, supply_analysis, risk_factors, created_at
		 FROM stock_analysis_history
		 WHERE stock_id = $1 AND analyzed_date = $2`,
		stockID, date,
	)
	h, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return h, nil
}

// ExistsForDate reports whether any stock was analyzed on the given date.
// Used as the aggregate day gate before a run touches the network.
func (r *AnalysisRepo) ExistsForDate(ctx context.Context, date time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM stock_analysis_history WHERE analyzed_date = $1)`,
		date,
	).Scan(&exists)
	return exists, err
}

func (r *AnalysisRepo) CountAll(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_analysis_history`).Scan(&n)
	return n, err
}

func (r *AnalysisRepo) LatestByStock(ctx context.Context, stockID int64) (*models.AnalysisHistory, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, stock_id, analyzed_date, recommendation, confidence_score,
		        technical_analysis, supply_analysis, risk_factors, created_at
		 FROM stock_analysis_history
		 WHERE stock_id = $1
		 ORDER BY analyzed_date DESC
		 LIMIT 1`,
		stockID,
	)
	h, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return h, nil
}

func scanAnalysis(row scannable) (*models.AnalysisHistory, error) {
	var h models.AnalysisHistory
	var rec string
	var factors []byte
	err := row.Scan(&h.ID, &h.StockID, &h.AnalyzedDate, &rec, &h.ConfidenceScore,
		&h.TechnicalAnalysis, &h.SupplyAnalysis, &factors, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	h.Recommendation = models.ParseRecommendation(rec)
	if err := json.Unmarshal(factors, &h.RiskFactors); err != nil {
		h.RiskFactors = nil
	}
	return &h, nil
}
