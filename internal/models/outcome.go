package models

import "time"

// RunOutcome summarizes one batch run. It is emitted to logs and the
// notification webhook only, never persisted.
type RunOutcome struct {
	StartedAt   time.Time
	FinishedAt  time.Time
	Total       int
	Success     int
	Failed      int
	Interrupted bool
	SkipReason  string
}

func (o *RunOutcome) Duration() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}

// Skipped reports whether the run ended before processing any stock
// (weekend, already-processed day).
func (o *RunOutcome) Skipped() bool {
	return o.SkipReason != ""
}
