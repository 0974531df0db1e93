package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newsrelay/internal/core"
	"newsrelay/internal/features/relay/models"
)

// Limits of the destination medium
const (
	MaxTitleLength       = 256
	MaxDescriptionLength = 2000
	NotificationColor    = 0x3498DB
)

// ChatClient is the part of the chat platform the router needs
type ChatClient interface {
	// ResolveChannel turns a channel id into a send-capable destination
	ResolveChannel(ctx context.Context, channelID string) (models.Destination, error)
	// Send delivers one notification to a destination
	Send(ctx context.Context, dest models.Destination, n models.Notification) error
}

// RouterService maps source categories to destinations and delivers notifications
type RouterService struct {
	routes  models.RouteTable
	client  ChatClient
	timeout time.Duration
	logger  *core.Logger
}

// NewRouterService creates a new dispatch router
func NewRouterService(routes models.RouteTable, client ChatClient, timeout time.Duration, logger *core.Logger) *RouterService {
	return &RouterService{
		routes:  routes,
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

// Route returns the destination for category. A category without a configured
// channel, or whose channel cannot be resolved, yields a ROUTE_UNRESOLVED error.
func (r *RouterService) Route(ctx context.Context, category string) (models.Destination, error) {
	channelID, ok := r.routes.Lookup(category)
	if !ok {
		return models.Destination{}, core.NewRouteUnresolvedError(category, nil)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	dest, err := r.client.ResolveChannel(ctx, channelID)
	if err != nil {
		return models.Destination{}, core.NewRouteUnresolvedError(category, fmt.Errorf("resolve channel %s: %w", channelID, err))
	}

	r.logger.Debug("Resolved destination", "category", category, "channel", dest.ChannelID, "name", dest.Name)
	return dest, nil
}

// Send delivers n to dest, bounded by the deliver timeout
func (r *RouterService) Send(ctx context.Context, dest models.Destination, n models.Notification) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.Send(ctx, dest, n); err != nil {
		return core.NewDeliverError(dest.ChannelID, err)
	}

	return nil
}

func (r *RouterService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// FormatNotification builds the notification for one selected entry. The
// candidate timestamp is shown when present; otherwise now is shown instead.
// The displayed time never flows back into the tracker.
func FormatNotification(source models.Source, candidate models.Candidate, now time.Time) models.Notification {
	entry := candidate.Entry

	title := entry.Title
	if title == "" {
		title = "No Title"
	}

	ts := candidate.Timestamp
	if ts.IsZero() {
		ts = now.UTC()
	}

	return models.Notification{
		Title:       truncate(title, MaxTitleLength),
		URL:         entry.Link,
		Description: truncate(stripHTML(entry.Summary), MaxDescriptionLength),
		Footer:      fmt.Sprintf("Source: %s", source.Name),
		Timestamp:   ts,
		ImageURL:    entry.ImageURL,
		Color:       NotificationColor,
	}
}

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// stripHTML reduces an HTML fragment to its text with collapsed whitespace
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}

	return strings.Join(strings.Fields(doc.Text()), " ")
}
