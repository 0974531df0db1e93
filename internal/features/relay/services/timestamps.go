package services

import (
	"strings"
	"time"

	"newsrelay/internal/features/relay/models"
)

// Layouts tried, in order, for raw feed timestamps the parser left uninterpreted
var timestampLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"02 Jan 2006 15:04:05 MST",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ResolveTimestamp returns the entry's publication time in UTC. The published
// field is tried before the updated field; the second result is false when
// neither holds a usable calendar time.
func ResolveTimestamp(entry models.Entry) (time.Time, bool) {
	candidates := []struct {
		parsed *time.Time
		raw    string
	}{
		{entry.Published, entry.PublishedRaw},
		{entry.Updated, entry.UpdatedRaw},
	}

	for _, c := range candidates {
		if c.parsed != nil && !c.parsed.IsZero() {
			return c.parsed.UTC(), true
		}
		if t, ok := parseTimestamp(c.raw); ok {
			return t, true
		}
	}

	return time.Time{}, false
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil && !t.IsZero() {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}
