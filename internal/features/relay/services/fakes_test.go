package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"newsrelay/internal/core"
	"newsrelay/internal/features/relay/models"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *core.Logger {
	return core.NewLoggerWithWriter(io.Discard, slog.LevelError)
}

func at(minutes int) time.Time {
	return base.Add(time.Duration(minutes) * time.Minute)
}

func entryAt(title string, ts time.Time) models.Entry {
	return models.Entry{
		Title:     title,
		Link:      "https://example.com/" + title,
		Published: &ts,
	}
}

type fakeFetcher struct {
	mu      sync.Mutex
	feeds   map[string][]models.Entry
	errs    map[string]error
	panics  map[string]bool
	calls   []string
	times   []time.Time
	started chan string
	release chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		feeds:  make(map[string][]models.Entry),
		errs:   make(map[string]error),
		panics: make(map[string]bool),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]models.Entry, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.times = append(f.times, time.Now())
	entries, err, panics := f.feeds[url], f.errs[url], f.panics[url]
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		started <- url
	}
	if release != nil {
		<-release
	}
	if panics {
		panic("parser exploded")
	}
	if err != nil {
		return nil, core.NewFetchError(url, err)
	}
	return entries, nil
}

func (f *fakeFetcher) setFeed(url string, entries ...models.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feeds[url] = entries
}

func (f *fakeFetcher) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeFetcher) fetchTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.times...)
}

type fakeDispatcher struct {
	mu     sync.Mutex
	routes map[string]models.Destination
	failOn map[string]error
	sent   []models.Notification
	onSend func(models.Notification)
}

func newFakeDispatcher(routes map[string]string) *fakeDispatcher {
	d := &fakeDispatcher{
		routes: make(map[string]models.Destination),
		failOn: make(map[string]error),
	}
	for category, channelID := range routes {
		d.routes[category] = models.Destination{ChannelID: channelID, Name: category}
	}
	return d
}

func (d *fakeDispatcher) Route(ctx context.Context, category string) (models.Destination, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dest, ok := d.routes[category]
	if !ok {
		return models.Destination{}, core.NewRouteUnresolvedError(category, nil)
	}
	return dest, nil
}

func (d *fakeDispatcher) Send(ctx context.Context, dest models.Destination, n models.Notification) error {
	d.mu.Lock()
	err := d.failOn[n.Title]
	if err == nil {
		d.sent = append(d.sent, n)
	}
	onSend := d.onSend
	d.mu.Unlock()

	if onSend != nil {
		onSend(n)
	}
	if err != nil {
		return core.NewDeliverError(dest.ChannelID, err)
	}
	return nil
}

func (d *fakeDispatcher) fail(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failOn[title] = errors.New("discord 500")
}

func (d *fakeDispatcher) heal(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.failOn, title)
}

func (d *fakeDispatcher) titles() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	titles := make([]string, 0, len(d.sent))
	for _, n := range d.sent {
		titles = append(titles, n.Title)
	}
	return titles
}

type fakeHistory struct {
	mu      sync.Mutex
	records []models.DispatchRecord
}

func (h *fakeHistory) Record(ctx context.Context, rec models.DispatchRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	return nil
}

type fakeChat struct {
	dests   map[string]models.Destination
	sendErr error
	sent    []models.Notification
	lastCtx context.Context
}

func (c *fakeChat) ResolveChannel(ctx context.Context, channelID string) (models.Destination, error) {
	dest, ok := c.dests[channelID]
	if !ok {
		return models.Destination{}, errors.New("unknown channel")
	}
	return dest, nil
}

func (c *fakeChat) Send(ctx context.Context, dest models.Destination, n models.Notification) error {
	c.lastCtx = ctx
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, n)
	return nil
}
