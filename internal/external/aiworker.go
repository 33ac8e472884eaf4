package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"stockpilot/internal/models"
)

// ErrNoPriceData means the stock has no stored bars inside the lookback
// window. Analysis is refused outright: the caller must sync prices first.
var ErrNoPriceData = errors.New("no price data in lookback window")

// PriceCounter reports how many bars are stored for a stock since a cutoff
// date. Satisfied by repository.PriceRepo.
type PriceCounter interface {
	CountSince(ctx context.Context, stockID int64, cutoff time.Time) (int, error)
}

// AnalysisClient calls the AI worker for a stock recommendation.
// Calls are single-attempt: a failed analysis simply counts against that
// stock for the current batch run, and the next run retries naturally.
type AnalysisClient struct {
	baseURL      string
	lookbackDays int
	prices       PriceCounter
	httpClient   *http.Client
	now          func() time.Time
}

func NewAnalysisClient(baseURL string, lookbackDays int, prices PriceCounter, timeout time.Duration) *AnalysisClient {
	if lookbackDays <= 0 {
		lookbackDays = 120
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AnalysisClient{
		baseURL:      baseURL,
		lookbackDays: lookbackDays,
		prices:       prices,
		httpClient:   &http.Client{Timeout: timeout},
		now:          time.Now,
	}
}

type analysisRequest struct {
	StockCode    string `json:"stock_code"`
	LookbackDays int    `json:"lookback_days"`
}

type analysisResponse struct {
	Recommendation    string   `json:"recommendation"`
	ConfidenceScore   int      `json:"confidence_score"`
	TechnicalAnalysis string   `json:"technical_analysis"`
	SupplyAnalysis    string   `json:"supply_analysis"`
	RiskFactors       []string `json:"risk_factors"`
}

// Analyze requests a recommendation for the stock. Precondition: at least
// one PricePoint stored within the lookback window, checked before any
// network traffic.
func (c *AnalysisClient) Analyze(ctx context.Context, stock *models.Stock) (*models.AnalysisResult, error) {
	cutoff := c.now().UTC().AddDate(0, 0, -c.lookbackDays)
	n, err := c.prices.CountSince(ctx, stock.ID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("count price history: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: stock %s, sync prices first", ErrNoPriceData, stock.Code)
	}

	body, err := json.Marshal(analysisRequest{
		StockCode:    stock.Code,
		LookbackDays: c.lookbackDays,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal analysis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/analysis", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ai worker call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ai worker returned status %d", resp.StatusCode)
	}

	var out analysisResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode analysis response: %w", err)
	}

	rec := models.ParseRecommendation(out.Recommendation)
	if rec == models.RecommendHold && out.Recommendation != string(models.RecommendHold) {
		fmt.Printf("[AI] Unknown recommendation %q for %s - defaulting to HOLD\n",
			out.Recommendation, stock.Code)
	}

	return &models.AnalysisResult{
		Recommendation:    rec,
		ConfidenceScore:   out.ConfidenceScore,
		TechnicalAnalysis: out.TechnicalAnalysis,
		SupplyAnalysis:    out.SupplyAnalysis,
		RiskFactors:       out.RiskFactors,
	}, nil
}
