package domain

import "time"

// RunKind names a bookkeeping job.
type RunKind string

const (
	RunAccounts RunKind = "accounts"
	RunPrices   RunKind = "prices"
	RunTrend    RunKind = "trend"
)

// RunRecord summarizes one job execution for the run journal.
type RunRecord struct {
	ID         string    `json:"id"`
	Kind       RunKind   `json:"kind"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	// Updated number of records written successfully.
	Updated int `json:"updated"`
	// Failed number of records whose write failed.
	Failed int    `json:"failed"`
	Error  string `json:"error,omitempty"`
}

// RunRecordEntry bundles a record with its journal index.
type RunRecordEntry struct {
	Index  uint64
	Record RunRecord
}
