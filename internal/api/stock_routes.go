package api

import (
	"errors"
	"fmt"
	"net/http"

	"stockpilot/internal/repository"
)

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	stock, err := s.stockRepo.GetByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrStockNotFound) {
			writeError(w, http.StatusNotFound, "stock not found")
			return
		}
		fmt.Printf("Error fetching stock %s: %v\n", code, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch stock")
		return
	}
	writeJSON(w, http.StatusOK, stock)
}

// handleStockAnalysis serves the most recent persisted recommendation for a
// stock. It never triggers a live analysis; only the batch writes history.
func (s *Server) handleStockAnalysis(w http.ResponseWriter, r *http.Request) {
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

	latest, err := s.analysisRepo.LatestByStock(ctx, stock.ID)
	if err != nil {
		fmt.Printf("Error fetching analysis for %s: %v\n", code, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch analysis")
		return
	}
	if latest == nil {
		writeError(w, http.StatusNotFound, "no analysis available for this stock")
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	entries, err := s.watchlistRepo.ListActive(r.Context())
	if err != nil {
		fmt.Printf("Error fetching watchlist: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch watchlist")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
