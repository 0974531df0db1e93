package models

import (
	"time"
)

// SchedulerConfig holds configuration for the poll scheduler
type SchedulerConfig struct {
	PollInterval      time.Duration `json:"poll_interval"`
	MaxEntriesPerPoll int           `json:"max_entries_per_poll"`
	SourceDelay       time.Duration `json:"source_delay"`
	FetchTimeout      time.Duration `json:"fetch_timeout"`
	DeliverTimeout    time.Duration `json:"deliver_timeout"`
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		PollInterval:      30 * time.Minute, // Poll every half hour
		MaxEntriesPerPoll: 5,                // Newest entries considered per source per run
		SourceDelay:       1 * time.Second,  // Pause between sources
		FetchTimeout:      30 * time.Second,
		DeliverTimeout:    10 * time.Second,
	}
}

// FetcherConfig holds configuration for the feed fetcher
type FetcherConfig struct {
	UserAgent string        `json:"user_agent"`
	Timeout   time.Duration `json:"timeout"`
}

// SourceFailure records one source that failed during a run
type SourceFailure struct {
	Source string `json:"source"`
	URL    string `json:"url"`
	Code   string `json:"code"`
	Error  string `json:"error"`
}

// RunReport summarises one sweep over all sources
type RunReport struct {
	RunID       string          `json:"run_id"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Sources     int             `json:"sources"`
	Processed   int             `json:"processed"`
	Dispatched  int             `json:"dispatched"`
	Unrouted    int             `json:"unrouted"`
	Failures    []SourceFailure `json:"failures"`
	Interrupted bool            `json:"interrupted"`
}

// Duration returns how long the run took
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// SchedulerStats holds cumulative counters for the scheduler
type SchedulerStats struct {
	Runs        int64      `json:"runs"`
	Dispatched  int64      `json:"dispatched"`
	Errors      int64      `json:"errors"`
	LastError   string     `json:"last_error,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
	LastRun     *RunReport `json:"last_run,omitempty"`
	Paused      bool       `json:"paused"`
	Running     bool       `json:"running"`
	NextRunAt   *time.Time `json:"next_run_at,omitempty"`
}
