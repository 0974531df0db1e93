package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsrelay/internal/core"
	"newsrelay/internal/features/relay/models"
	"newsrelay/internal/features/relay/services"
)

type fakeRelay struct {
	sources []models.Source
	marks   map[string]time.Time
	stats   models.SchedulerStats
	report  *models.RunReport
	runErr  error
	paused  bool
}

func (f *fakeRelay) RunOnce(ctx context.Context) (*models.RunReport, error) {
	return f.report, f.runErr
}
func (f *fakeRelay) Pause()                           { f.paused = true }
func (f *fakeRelay) Resume()                          { f.paused = false }
func (f *fakeRelay) Paused() bool                     { return f.paused }
func (f *fakeRelay) Stats() models.SchedulerStats     { return f.stats }
func (f *fakeRelay) Sources() []models.Source         { return f.sources }
func (f *fakeRelay) Watermarks() map[string]time.Time { return f.marks }

type fakeHistory struct {
	filter  models.HistoryFilter
	records []models.DispatchRecord
}

func (f *fakeHistory) List(ctx context.Context, filter models.HistoryFilter) ([]models.DispatchRecord, error) {
	f.filter = filter
	return f.records, nil
}

var watermark = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestHandlers(history HistoryLister) (*Handlers, *fakeRelay) {
	relay := &fakeRelay{
		sources: []models.Source{
			{Name: "BBC World", URL: "https://bbc/rss", Category: "world"},
			{Name: "Ars Technica", URL: "https://ars/rss", Category: "technology"},
		},
		marks: map[string]time.Time{"https://bbc/rss": watermark},
	}
	logger := core.NewLoggerWithWriter(io.Discard, slog.LevelError)
	return NewHandlers(logger, relay, models.RouteTable{"world": "111"}, history), relay
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var body map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestListSources(t *testing.T) {
	h, _ := newTestHandlers(nil)

	rec := httptest.NewRecorder()
	h.ListSources(rec, httptest.NewRequest(http.MethodGet, "/relay/sources", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)

	var sources []sourceView
	require.NoError(t, json.Unmarshal(body["sources"], &sources))
	require.Len(t, sources, 2)

	assert.True(t, sources[0].Routed)
	assert.Equal(t, "111", sources[0].ChannelID)
	require.NotNil(t, sources[0].Watermark)
	assert.True(t, watermark.Equal(*sources[0].Watermark))

	assert.False(t, sources[1].Routed)
	assert.Nil(t, sources[1].Watermark)

	var groups []models.CategoryGroup
	require.NoError(t, json.Unmarshal(body["categories"], &groups))
	assert.Len(t, groups, 2)
}

func TestGetStatus(t *testing.T) {
	h, relay := newTestHandlers(nil)
	relay.stats = models.SchedulerStats{Runs: 3, Dispatched: 7, Paused: true}

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/relay/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats models.SchedulerStats
	require.NoError(t, json.Unmarshal(decode(t, rec)["scheduler"], &stats))
	assert.Equal(t, int64(3), stats.Runs)
	assert.True(t, stats.Paused)
}

func TestRefresh(t *testing.T) {
	t.Run("returns the run report", func(t *testing.T) {
		h, relay := newTestHandlers(nil)
		relay.report = &models.RunReport{RunID: "abc", Processed: 2, Dispatched: 1}

		rec := httptest.NewRecorder()
		h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/relay/refresh", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var report models.RunReport
		require.NoError(t, json.Unmarshal(decode(t, rec)["run"], &report))
		assert.Equal(t, "abc", report.RunID)
	})

	t.Run("conflict while a run is active", func(t *testing.T) {
		h, relay := newTestHandlers(nil)
		relay.runErr = services.ErrRunInProgress

		rec := httptest.NewRecorder()
		h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/relay/refresh", nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), core.ErrCodeConflict)
	})
}

func TestPauseResume(t *testing.T) {
	h, relay := newTestHandlers(nil)

	rec := httptest.NewRecorder()
	h.Pause(rec, httptest.NewRequest(http.MethodPost, "/relay/pause", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, relay.paused)

	rec = httptest.NewRecorder()
	h.Resume(rec, httptest.NewRequest(http.MethodPost, "/relay/resume", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, relay.paused)
}

func TestListHistory(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		h, _ := newTestHandlers(nil)

		rec := httptest.NewRecorder()
		h.ListHistory(rec, httptest.NewRequest(http.MethodGet, "/relay/history", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("filters are passed through", func(t *testing.T) {
		history := &fakeHistory{records: []models.DispatchRecord{{ID: 1, Title: "one"}}}
		h, _ := newTestHandlers(history)

		rec := httptest.NewRecorder()
		h.ListHistory(rec, httptest.NewRequest(http.MethodGet, "/relay/history?source=https://bbc/rss&status=failed&limit=10", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, models.HistoryFilter{SourceURL: "https://bbc/rss", Status: "failed", Limit: 10}, history.filter)

		var records []models.DispatchRecord
		require.NoError(t, json.Unmarshal(decode(t, rec)["dispatches"], &records))
		assert.Len(t, records, 1)
	})

	t.Run("bad parameters", func(t *testing.T) {
		h, _ := newTestHandlers(&fakeHistory{})

		for _, query := range []string{"?limit=abc", "?limit=0", "?status=lost"} {
			rec := httptest.NewRecorder()
			h.ListHistory(rec, httptest.NewRequest(http.MethodGet, "/relay/history"+query, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		}
	})
}
