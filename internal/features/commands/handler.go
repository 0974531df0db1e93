package commands

import (
	"fmt"
	"strings"
	"time"

	"newsrelay/internal/features/relay/models"
)

// RelayInfo is the read-only relay state commands report on
type RelayInfo interface {
	Sources() []models.Source
	Stats() models.SchedulerStats
}

// Handler answers text commands. It has no chat platform dependency.
type Handler struct {
	prefix  string
	relay   RelayInfo
	latency func() time.Duration
	now     func() time.Time
}

// NewHandler creates a command handler
func NewHandler(prefix string, relay RelayInfo, latency func() time.Duration) *Handler {
	return &Handler{
		prefix:  prefix,
		relay:   relay,
		latency: latency,
		now:     time.Now,
	}
}

// Handle returns the reply for content, or false when content is not a known command
func (h *Handler) Handle(content string) (string, bool) {
	fields := strings.Fields(content)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], h.prefix) {
		return "", false
	}

	switch strings.ToLower(strings.TrimPrefix(fields[0], h.prefix)) {
	case "ping":
		return fmt.Sprintf("Pong! Latency: %dms", h.latency().Milliseconds()), true
	case "sources":
		return h.sources(), true
	case "status":
		return h.status(), true
	default:
		return "", false
	}
}

func (h *Handler) sources() string {
	groups := models.GroupByCategory(h.relay.Sources())
	if len(groups) == 0 {
		return "No news sources configured."
	}

	var sb strings.Builder
	sb.WriteString("**News Sources**\n")
	for _, group := range groups {
		sb.WriteString(fmt.Sprintf("\n**%s**\n", group.Category))
		for _, name := range group.Sources {
			sb.WriteString(fmt.Sprintf("• %s\n", name))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (h *Handler) status() string {
	stats := h.relay.Stats()

	var sb strings.Builder
	sb.WriteString("**Relay Status**\n")

	state := "active"
	switch {
	case stats.Running:
		state = "polling"
	case stats.Paused:
		state = "paused"
	}
	sb.WriteString(fmt.Sprintf("• State: %s\n", state))
	sb.WriteString(fmt.Sprintf("• Sources: %d\n", len(h.relay.Sources())))
	sb.WriteString(fmt.Sprintf("• Runs: %d, dispatched: %d, errors: %d\n", stats.Runs, stats.Dispatched, stats.Errors))

	if stats.LastRun != nil {
		run := stats.LastRun
		sb.WriteString(fmt.Sprintf("• Last run: %s ago, %d/%d sources, %d sent, %d failed\n",
			h.now().Sub(run.FinishedAt).Round(time.Second), run.Processed, run.Sources, run.Dispatched, len(run.Failures)))
	} else {
		sb.WriteString("• Last run: never\n")
	}

	if stats.NextRunAt != nil {
		sb.WriteString(fmt.Sprintf("• Next run: in %s\n", stats.NextRunAt.Sub(h.now()).Round(time.Second)))
	}

	if stats.LastError != "" {
		sb.WriteString(fmt.Sprintf("• Last error: %s\n", stats.LastError))
	}

	return strings.TrimRight(sb.String(), "\n")
}
