package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"stockpilot/internal/repository"
)

func (s *Server) handleStockPrices(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	ctx := r.Context()

	stock, err := s.stockRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrStockNotFound) {
			writeError(w, http.StatusNotFound, "stock not found")
			return
		}
		fmt.Printf("Error fetching stock %s: %v\n", code, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch stock")
		return
	}

	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start != "" || end != "" {
		if !validateDate(start) || !validateDate(end) {
			writeError(w, http.StatusBadRequest, "invalid date range, expected start=YYYY-MM-DD&end=YYYY-MM-DD")
			return
		}
		from, _ := time.Parse("2006-01-02", start)
		to, _ := time.Parse("2006-01-02", end)
		prices, err := s.priceRepo.GetRange(ctx, stock.ID, from, to)
		if err != nil {
			fmt.Printf("Error fetching prices for %s: %v\n", code, err)
			writeError(w, http.StatusInternalServerError, "failed to fetch prices")
			return
		}
		writeJSON(w, http.StatusOK, prices)
		return
	}

	prices, err := s.priceRepo.GetRecent(ctx, stock.ID, parseDays(r, 30))
	if err != nil {
		fmt.Printf("Error fetching prices for %s: %v\n", code, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch prices")
		return
	}
	writeJSON(w, http.StatusOK, prices)
}

type syncRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type syncResponse struct {
	StockCode string `json:"stockCode"`
	Synced    int    `json:"synced"`
}

// handlePriceSync pulls bars from the brokerage on demand. With no body the
// sync covers the default trailing window; with one it covers [start, end].
func (s *Server) handlePriceSync(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	ctx := r.Context()

	// An empty body means "recent window"; a malformed one is rejected.
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var n int
	var err error
	if req.StartDate != "" || req.EndDate != "" {
		if !validateDate(req.StartDate) || !validateDate(req.EndDate) {
			writeError(w, http.StatusBadRequest, "invalid date range, expected startDate/endDate as YYYY-MM-DD")
			return
		}
		from, _ := time.Parse("2006-01-02", req.StartDate)
		to, _ := time.Parse("2006-01-02", req.EndDate)
		n, err = s.syncer.Sync(ctx, code, from, to)
	} else {
		n, err = s.syncer.SyncRecent(ctx, code, parseDays(r, 0))
	}
	if err != nil {
		if errors.Is(err, repository.ErrStockNotFound) {
			writeError(w, http.StatusNotFound, "stock not found")
			return
		}
		fmt.Printf("Error syncing prices for %s: %v\n", code, err)
		writeError(w, http.StatusInternalServerError, "price sync failed")
		return
	}

	writeJSON(w, http.StatusOK, syncResponse{StockCode: code, Synced: n})
}

// handlePriceSyncRecent syncs the trailing window only, sized by ?days=.
func (s *Server) handlePriceSyncRecent(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	n, err := s.syncer.SyncRecent(r.Context(), code, parseDays(r, 0))
	if err != nil {
		if errors.Is(err, repository.ErrStockNotFound) {
			writeError(w, http.StatusNotFound, "stock not found")
			return
		}
		fmt.Printf("Error syncing prices for %s: %v\n", code, err)
		writeError(w, http.StatusInternalServerError, "price sync failed")
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{StockCode: code, Synced: n})
}
