package models

import (
	"time"
)

// Entry is one item parsed from a feed. Entries are built per fetch and
// discarded once the dispatch decision has been made.
type Entry struct {
	GUID     string `json:"guid"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Summary  string `json:"summary"`
	ImageURL string `json:"image_url,omitempty"`

	// Parsed timestamps as reported by the feed parser, if any
	Published *time.Time `json:"published,omitempty"`
	Updated   *time.Time `json:"updated,omitempty"`

	// Raw timestamp strings, used when the parser could not interpret them
	PublishedRaw string `json:"published_raw,omitempty"`
	UpdatedRaw   string `json:"updated_raw,omitempty"`
}

// Candidate is an entry selected for dispatch together with its resolved timestamp
type Candidate struct {
	Entry     Entry
	Timestamp time.Time
}
