package services

import (
	"sort"
	"sync"
	"time"

	"newsrelay/internal/features/relay/models"
)

// NeverDispatched is the watermark of a source nothing has been sent for yet
var NeverDispatched = time.Time{}

// Tracker remembers, per source key, the timestamp of the newest entry that
// was successfully dispatched. Watermarks only move forward and live in
// process memory for the lifetime of the relay.
type Tracker struct {
	mu    sync.RWMutex
	marks map[string]time.Time
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		marks: make(map[string]time.Time),
	}
}

// Watermark returns the current watermark for key, NeverDispatched if unseen
func (t *Tracker) Watermark(key string) time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if mark, ok := t.marks[key]; ok {
		return mark
	}
	return NeverDispatched
}

// IsNew reports whether ts is strictly later than the watermark for key
func (t *Tracker) IsNew(key string, ts time.Time) bool {
	return ts.After(t.Watermark(key))
}

// Advance moves the watermark for key to ts when ts is later. It reports
// whether the watermark changed.
func (t *Tracker) Advance(key string, ts time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, ok := t.marks[key]
	if !ok {
		current = NeverDispatched
	}
	if !ts.After(current) {
		return false
	}

	t.marks[key] = ts
	return true
}

// Snapshot returns a copy of every recorded watermark
func (t *Tracker) Snapshot() map[string]time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]time.Time, len(t.marks))
	for k, v := range t.marks {
		out[k] = v
	}
	return out
}

// SelectNew picks the entries of one fetch that are candidates for dispatch:
// timestamp-resolvable, later than the watermark for key, capped to the limit
// most recent. The result is ordered oldest first; entries sharing a timestamp
// keep their feed order.
func (t *Tracker) SelectNew(key string, entries []models.Entry, limit int) []models.Candidate {
	watermark := t.Watermark(key)

	candidates := make([]models.Candidate, 0, len(entries))
	for _, entry := range entries {
		ts, ok := ResolveTimestamp(entry)
		if !ok || !ts.After(watermark) {
			continue
		}
		candidates = append(candidates, models.Candidate{Entry: entry, Timestamp: ts})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Timestamp.Before(candidates[j].Timestamp)
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[len(candidates)-limit:]
	}

	return candidates
}
