package api

import (
	"errors"
	"net/http"

	"stockpilot/internal/batch"
)

// handleBatchTrigger starts a detached batch run and acknowledges
// immediately. The run reports its outcome through logs and the notifier,
// not through this response.
func (s *Server) handleBatchTrigger(w http.ResponseWriter, r *http.Request) {
	if err := s.runner.TriggerAsync(s.runCtx); err != nil {
		if errors.Is(err, batch.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, "a batch run is already in progress")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to start batch run")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"running": s.runner.Running()})
}
