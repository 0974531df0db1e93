package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsrelay/internal/core"
	"newsrelay/internal/features/relay/models"
)

const feedBody = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Example</title><link>https://example.com</link><description>x</description>
<item><title>Older</title><link>https://example.com/1</link><pubDate>Fri, 01 Mar 2024 10:00:00 GMT</pubDate></item>
<item><title>Newer</title><link>https://example.com/2</link><pubDate>Fri, 01 Mar 2024 11:00:00 GMT</pubDate></item>
</channel></rss>`

type recordingChat struct {
	mu   sync.Mutex
	sent []string
}

func (c *recordingChat) ResolveChannel(ctx context.Context, channelID string) (models.Destination, error) {
	return models.Destination{ChannelID: channelID, Name: "news"}, nil
}

func (c *recordingChat) Send(ctx context.Context, dest models.Destination, n models.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, dest.ChannelID+":"+n.Title)
	return nil
}

func (c *recordingChat) titles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func testConfig(history bool) *Config {
	coreConfig := &core.Config{}
	coreConfig.Features.Relay = core.RelayConfig{
		Enabled:           true,
		SourcesPath:       "unused.yml",
		PollInterval:      time.Hour,
		MaxEntriesPerPoll: 5,
		FetchTimeout:      time.Second,
		DeliverTimeout:    time.Second,
		UserAgent:         "newsrelay-test",
	}
	coreConfig.Features.History.Enabled = history
	return NewConfig(coreConfig)
}

func TestFeaturePollsOnInit(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedBody)
	}))
	defer feed.Close()

	logger := core.NewLoggerWithWriter(io.Discard, slog.LevelError)
	ctx := context.Background()

	db, err := core.OpenDatabase(ctx, ":memory:", logger)
	require.NoError(t, err)
	defer db.Close()

	sources := &models.SourceConfig{
		Sources: []models.Source{
			{Name: "Example", URL: feed.URL, Category: "world"},
			{Name: "Nowhere", URL: feed.URL + "/other", Category: "sports"},
		},
		CategoryChannels: models.RouteTable{"world": "111"},
	}
	chat := &recordingChat{}

	feature := NewFeature(logger, db, chat, sources, testConfig(true))
	require.NoError(t, feature.Init(ctx))

	assert.Eventually(t, func() bool {
		return feature.GetSchedulerService().Stats().Runs == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"111:Older", "111:Newer"}, chat.titles())

	stats := feature.GetSchedulerService().Stats()
	require.NotNil(t, stats.LastRun)
	assert.Equal(t, 1, stats.LastRun.Unrouted)

	rec := httptest.NewRecorder()
	feature.handlers.ListHistory(rec, httptest.NewRequest(http.MethodGet, "/relay/history", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"Newer"`)

	require.NoError(t, feature.Shutdown(ctx))
}

func TestFeatureRoutes(t *testing.T) {
	logger := core.NewLoggerWithWriter(io.Discard, slog.LevelError)
	sources := &models.SourceConfig{CategoryChannels: models.RouteTable{}}

	feature := NewFeature(logger, nil, &recordingChat{}, sources, testConfig(false))
	assert.Nil(t, feature.GetMigrationManager(), "no history without a database")

	operator := map[string]bool{}
	for _, route := range feature.Routes() {
		operator[route.Method+" "+route.Path] = route.Operator
	}

	assert.Equal(t, map[string]bool{
		"GET /relay/sources":  false,
		"GET /relay/status":   false,
		"GET /relay/history":  false,
		"POST /relay/refresh": true,
		"POST /relay/pause":   true,
		"POST /relay/resume":  true,
	}, operator)

	assert.Error(t, feature.Init(context.Background()), "empty source list is rejected")
}
