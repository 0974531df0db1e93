package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsrelay/internal/core"
	"newsrelay/internal/features/relay/migrations"
	"newsrelay/internal/features/relay/models"
)

func newTestHistory(t *testing.T) *HistoryService {
	t.Helper()

	ctx := context.Background()
	db, err := core.OpenDatabase(ctx, ":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.NewManager(db, testLogger()).Migrate(ctx))
	return NewHistoryService(db, testLogger())
}

func TestHistoryRecordAndList(t *testing.T) {
	history := newTestHistory(t)
	ctx := context.Background()

	records := []models.DispatchRecord{
		{RunID: "r1", SourceName: "BBC", SourceURL: "https://bbc/rss", Category: "world", ChannelID: "111",
			Title: "one", Link: "https://bbc/1", PublishedAt: at(1), DispatchedAt: at(10), Status: models.DispatchDelivered},
		{RunID: "r1", SourceName: "BBC", SourceURL: "https://bbc/rss", Category: "world", ChannelID: "111",
			Title: "two", PublishedAt: at(2), DispatchedAt: at(11), Status: models.DispatchFailed, Error: "discord 500"},
		{RunID: "r1", SourceName: "Ars", SourceURL: "https://ars/rss", Category: "technology", ChannelID: "222",
			Title: "three", Link: "https://ars/3", PublishedAt: at(3), DispatchedAt: at(12), Status: models.DispatchDelivered},
	}
	for _, rec := range records {
		require.NoError(t, history.Record(ctx, rec))
	}

	all, err := history.List(ctx, models.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "three", all[0].Title, "newest first")
	assert.Equal(t, at(3), all[0].PublishedAt)
	assert.Equal(t, at(12), all[0].DispatchedAt)

	failed, err := history.List(ctx, models.HistoryFilter{Status: models.DispatchFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "discord 500", failed[0].Error)
	assert.Empty(t, failed[0].Link)

	bbc, err := history.List(ctx, models.HistoryFilter{SourceURL: "https://bbc/rss", Limit: 1})
	require.NoError(t, err)
	require.Len(t, bbc, 1)
	assert.Equal(t, "two", bbc[0].Title)
}

func TestHistoryRejectsUnknownStatus(t *testing.T) {
	history := newTestHistory(t)

	err := history.Record(context.Background(), models.DispatchRecord{
		RunID: "r1", SourceName: "BBC", SourceURL: "https://bbc/rss", Category: "world",
		ChannelID: "111", Title: "x", PublishedAt: at(1), DispatchedAt: at(2), Status: "maybe",
	})
	assert.True(t, core.IsCode(err, core.ErrCodeDatabase))
}
