package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"newsrelay/internal/core"
	"newsrelay/internal/features/relay/models"
)

// maxFeedBytes bounds how much of a feed body is read
const maxFeedBytes = 10 << 20

// FetcherService retrieves and parses syndication feeds
type FetcherService struct {
	client *http.Client
	logger *core.Logger
	config *models.FetcherConfig
}

// NewFetcherService creates a new fetcher service
func NewFetcherService(logger *core.Logger, config *models.FetcherConfig) *FetcherService {
	client := &http.Client{
		Timeout: config.Timeout,
	}

	return &FetcherService{
		client: client,
		logger: logger,
		config: config,
	}
}

// Fetch retrieves feedURL and returns its entries in the feed's native order.
// Every network, status, timeout or parse failure is returned as a FETCH_ERROR.
func (f *FetcherService) Fetch(ctx context.Context, feedURL string) ([]models.Entry, error) {
	if f.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, core.NewFetchError(feedURL, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/xml, text/xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, core.NewFetchError(feedURL, fmt.Errorf("failed to fetch feed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.NewFetchError(feedURL, fmt.Errorf("feed returned status %d", resp.StatusCode))
	}

	feed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, core.NewFetchError(feedURL, fmt.Errorf("failed to parse feed: %w", err))
	}

	entries := make([]models.Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, convertItem(item))
	}

	f.logger.Debug("Fetched feed", "url", feedURL, "entries", len(entries))
	return entries, nil
}

// convertItem maps a gofeed item onto an Entry
func convertItem(item *gofeed.Item) models.Entry {
	summary := item.Description
	if strings.TrimSpace(summary) == "" {
		summary = item.Content
	}

	link := item.Link
	if link == "" && len(item.Links) > 0 {
		link = item.Links[0]
	}

	return models.Entry{
		GUID:         item.GUID,
		Title:        strings.TrimSpace(item.Title),
		Link:         link,
		Summary:      summary,
		ImageURL:     imageURL(item),
		Published:    item.PublishedParsed,
		Updated:      item.UpdatedParsed,
		PublishedRaw: item.Published,
		UpdatedRaw:   item.Updated,
	}
}

// imageURL prefers the item image, then the first image enclosure
func imageURL(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}
