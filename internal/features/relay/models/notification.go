package models

import (
	"time"
)

// Notification is a destination-neutral message built from one feed entry
type Notification struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Footer      string    `json:"footer"`
	Timestamp   time.Time `json:"timestamp"`
	ImageURL    string    `json:"image_url,omitempty"`
	Color       int       `json:"color"`
}

// Destination is a resolved, send-capable channel
type Destination struct {
	ChannelID string `json:"channel_id"`
	Name      string `json:"name"`
}
