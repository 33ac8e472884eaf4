package models

import "time"

// Recommendation is the closed set of analysis verdicts.
type Recommendation string

const (
	RecommendBuy  Recommendation = "BUY"
	RecommendSell Recommendation = "SELL"
	RecommendHold Recommendation = "HOLD"
)

// ParseRecommendation decodes a label from the AI worker. Unknown labels map
// to HOLD: a verdict we cannot interpret must never become a trade signal.
func ParseRecommendation(label string) Recommendation {
	switch Recommendation(label) {
	case RecommendBuy, RecommendSell, RecommendHold:
		return Recommendation(label)
	default:
		return RecommendHold
	}
}

// AnalysisResult is the outcome of one AI analysis call.
type AnalysisResult struct {
	Recommendation    Recommendation `json:"recommendation"`
	ConfidenceScore   int            `json:"confidenceScore"`
	TechnicalAnalysis string         `json:"technicalAnalysis"`
	SupplyAnalysis    string         `json:"supplyAnalysis"`
	RiskFactors       []string       `json:"riskFactors"`
}

// AnalysisHistory is a persisted AnalysisResult for one (stock, date) pair.
// Rows are written once and never mutated.
type AnalysisHistory struct {
	ID                int64          `json:"id"`
	StockID           int64          `json:"-"`
	AnalyzedDate      time.Time      `json:"analyzedDate"`
	Recommendation    Recommendation `json:"recommendation"`
	ConfidenceScore   int            `json:"confidenceScore"`
	TechnicalAnalysis string         `json:"technicalAnalysis"`
	SupplyAnalysis    string         `json:"supplyAnalysis"`
	RiskFactors       []string       `json:"riskFactors"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// NewAnalysisHistory builds a history row from an analysis result.
func NewAnalysisHistory(stockID int64, date time.Time, r *AnalysisResult) *AnalysisHistory {
	return &AnalysisHistory{
		StockID:           stockID,
		AnalyzedDate:      date,
		Recommendation:    r.Recommendation,
		ConfidenceScore:   r.ConfidenceScore,
		TechnicalAnalysis: r.TechnicalAnalysis,
		SupplyAnalysis:    r.SupplyAnalysis,
		RiskFactors:       r.RiskFactors,
	}
}
