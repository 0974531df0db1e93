package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"newsrelay/internal/features/relay/models"
)

func TestResolveTimestamp(t *testing.T) {
	published := time.Date(2024, 3, 1, 14, 0, 0, 0, time.FixedZone("CET", 3600))
	updated := time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)
	zero := time.Time{}

	tests := []struct {
		name   string
		entry  models.Entry
		want   time.Time
		wantOK bool
	}{
		{
			name:   "parsed published wins and is normalized to UTC",
			entry:  models.Entry{Published: &published, Updated: &updated},
			want:   time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "falls back to updated",
			entry:  models.Entry{Updated: &updated},
			want:   updated,
			wantOK: true,
		},
		{
			name:   "raw RFC1123 published",
			entry:  models.Entry{PublishedRaw: "Fri, 01 Mar 2024 10:15:00 GMT"},
			want:   time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "raw numeric zone",
			entry:  models.Entry{PublishedRaw: "Fri, 1 Mar 2024 10:15:00 +0200"},
			want:   time.Date(2024, 3, 1, 8, 15, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "zero parsed value uses raw string",
			entry:  models.Entry{Published: &zero, PublishedRaw: "2024-03-01T10:15:00Z"},
			want:   time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "garbage published, usable updated raw",
			entry:  models.Entry{PublishedRaw: "yesterday-ish", UpdatedRaw: "2024-03-02"},
			want:   time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "nothing usable",
			entry:  models.Entry{PublishedRaw: "soon", UpdatedRaw: "  "},
			wantOK: false,
		},
		{
			name:   "no timestamps at all",
			entry:  models.Entry{Title: "undated"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveTimestamp(tt.entry)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
				assert.Equal(t, time.UTC, got.Location())
			}
		})
	}
}
