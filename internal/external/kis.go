package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"stockpilot/internal/httputil"
)

const (
	kisDateFormat   = "20060102"
	trIDDailyPrice  = "FHKST03010100" // domestic stock, daily period chart
	dailyPricePath  = "/uapi/domestic-stock/v1/quotations/inquire-daily-itemchartprice"
	kisSuccessCode  = "0"
	marketDivStock  = "J"
	periodDivDaily  = "D"
	rawPriceDivCode = "0"
)

// TokenSource supplies a valid access token for outbound KIS calls.
type TokenSource interface {
	Get(ctx context.Context) (string, error)
}

// KisClient talks to the KIS OpenAPI for daily OHLCV data.
type KisClient struct {
	baseURL    string
	appKey     string
	appSecret  string
	tokens     TokenSource
	httpClient *http.Client
	retry      httputil.RetryConfig
}

type KisOptions struct {
	BaseURL   string
	AppKey    string
	AppSecret string
	Timeout   time.Duration
}

func NewKisClient(opts KisOptions, tokens TokenSource) *KisClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &KisClient{
		baseURL:    opts.BaseURL,
		appKey:     opts.AppKey,
		appSecret:  opts.AppSecret,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
		},
	}
}

// DailyBar is one daily OHLCV row as KIS returns it. All numeric fields are
// strings on the wire; parsing happens at the sync layer so a malformed bar
// fails the whole sync instead of being silently dropped.
type DailyBar struct {
	BusinessDate string `json:"stck_bsop_date"` // yyyyMMdd
	OpenPrice    string `json:"stck_oprc"`
	HighPrice    string `json:"stck_hgpr"`
	LowPrice     string `json:"stck_lwpr"`
	ClosePrice   string `json:"stck_clpr"`
	Volume       string `json:"acml_vol"`
	ChangeAmount string `json:"prdy_vrss"`
	ChangeRate   string `json:"prdy_ctrt"`
}

type ohlcvResponse struct {
	ResultCode  string     `json:"rt_cd"`
	MessageCode string     `json:"msg_cd"`
	Message     string     `json:"msg1"`
	Output1     []DailyBar `json:"output1"`
}

// FetchDailyPrices returns the daily bars for one stock over a date range.
// A non-success status embedded in the envelope is an error; an empty bar
// list is not (weekends and holidays legitimately return no rows).
func (c *KisClient) FetchDailyPrices(ctx context.Context, stockCode string, start, end time.Time) ([]DailyBar, error) {
	token, err := c.tokens.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("kis token: %w", err)
	}

	q := url.Values{}
	q.Set("FID_COND_MRKT_DIV_CODE", marketDivStock)
	q.Set("FID_INPUT_ISCD", stockCode)
	q.Set("FID_INPUT_DATE_1", start.Format(kisDateFormat))
	q.Set("FID_INPUT_DATE_2", end.Format(kisDateFormat))
	q.Set("FID_PERIOD_DIV_CODE", periodDivDaily)
	q.Set("FID_ORG_ADJ_PRC", rawPriceDivCode)
	reqURL := c.baseURL + dailyPricePath + "?" + q.Encode()

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("appkey", c.appKey)
		req.Header.Set("appsecret", c.appSecret)
		req.Header.Set("tr_id", trIDDailyPrice)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("kis fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kis returned status %d", resp.StatusCode)
	}

	var out ohlcvResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode kis response: %w", err)
	}
	if out.ResultCode != kisSuccessCode {
		return nil, fmt.Errorf("kis error %s: %s", out.MessageCode, out.Message)
	}

	return out.Output1, nil
}
