package models

import (
	"time"
)

// Dispatch outcomes stored in the history table
const (
	DispatchDelivered = "delivered"
	DispatchFailed    = "failed"
)

// DispatchRecord is one audit row describing a send attempt
type DispatchRecord struct {
	ID           int64     `json:"id"`
	RunID        string    `json:"run_id"`
	SourceName   string    `json:"source_name"`
	SourceURL    string    `json:"source_url"`
	Category     string    `json:"category"`
	ChannelID    string    `json:"channel_id"`
	Title        string    `json:"title"`
	Link         string    `json:"link"`
	PublishedAt  time.Time `json:"published_at"`
	DispatchedAt time.Time `json:"dispatched_at"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
}

// HistoryFilter narrows a history listing
type HistoryFilter struct {
	SourceURL string
	Status    string
	Limit     int
}
