package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"newsrelay/internal/core"
	"newsrelay/internal/features/relay/models"
	"newsrelay/internal/features/relay/services"
)

// Relay is the scheduler surface the handlers need
type Relay interface {
	RunOnce(ctx context.Context) (*models.RunReport, error)
	Pause()
	Resume()
	Paused() bool
	Stats() models.SchedulerStats
	Sources() []models.Source
	Watermarks() map[string]time.Time
}

// HistoryLister reads recorded dispatches
type HistoryLister interface {
	List(ctx context.Context, filter models.HistoryFilter) ([]models.DispatchRecord, error)
}

// Handlers contains all relay HTTP handlers
type Handlers struct {
	logger  *core.Logger
	relay   Relay
	routes  models.RouteTable
	history HistoryLister
}

// NewHandlers creates a new handlers instance. history may be nil.
func NewHandlers(logger *core.Logger, relay Relay, routes models.RouteTable, history HistoryLister) *Handlers {
	return &Handlers{
		logger:  logger,
		relay:   relay,
		routes:  routes,
		history: history,
	}
}

type sourceView struct {
	Name      string     `json:"name"`
	URL       string     `json:"url"`
	Category  string     `json:"category"`
	ChannelID string     `json:"channel_id,omitempty"`
	Routed    bool       `json:"routed"`
	Watermark *time.Time `json:"watermark,omitempty"`
}

func (h *Handlers) sourceViews() []sourceView {
	marks := h.relay.Watermarks()
	sources := h.relay.Sources()

	views := make([]sourceView, 0, len(sources))
	for _, src := range sources {
		channelID, routed := h.routes.Lookup(src.Category)
		view := sourceView{
			Name:      src.Name,
			URL:       src.URL,
			Category:  src.Category,
			ChannelID: channelID,
			Routed:    routed,
		}
		if mark, ok := marks[src.Key()]; ok {
			view.Watermark = &mark
		}
		views = append(views, view)
	}
	return views
}

// ListSources returns the configured sources grouped by category
func (h *Handlers) ListSources(w http.ResponseWriter, r *http.Request) {
	core.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sources":    h.sourceViews(),
		"categories": models.GroupByCategory(h.relay.Sources()),
	})
}

// GetStatus returns scheduler counters and per-source watermarks
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	core.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"scheduler": h.relay.Stats(),
		"sources":   h.sourceViews(),
	})
}

// ListHistory returns recorded dispatch attempts, newest first
func (h *Handlers) ListHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		core.HandleError(w, core.NewNotFoundError("dispatch history is disabled", nil))
		return
	}

	query := r.URL.Query()
	filter := models.HistoryFilter{
		SourceURL: query.Get("source"),
		Status:    query.Get("status"),
	}

	if filter.Status != "" && filter.Status != models.DispatchDelivered && filter.Status != models.DispatchFailed {
		core.HandleError(w, core.NewValidationError("status must be delivered or failed", nil))
		return
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			core.HandleError(w, core.NewValidationError("limit must be a positive integer", err))
			return
		}
		filter.Limit = limit
	}

	records, err := h.history.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list dispatch history", "error", err)
		core.HandleError(w, err)
		return
	}

	core.WriteJSON(w, http.StatusOK, map[string]interface{}{"dispatches": records})
}

// Refresh runs one poll immediately and returns its report
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	report, err := h.relay.RunOnce(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrRunInProgress) {
			core.HandleError(w, core.NewConflictError("a poll run is already in progress", err))
			return
		}
		h.logger.Error("Manual refresh failed", "error", err)
		core.HandleError(w, err)
		return
	}

	core.WriteJSON(w, http.StatusOK, map[string]interface{}{"run": report})
}

// Pause suspends timed polling
func (h *Handlers) Pause(w http.ResponseWriter, r *http.Request) {
	h.relay.Pause()
	core.WriteJSON(w, http.StatusOK, map[string]interface{}{"paused": true})
}

// Resume re-enables timed polling
func (h *Handlers) Resume(w http.ResponseWriter, r *http.Request) {
	h.relay.Resume()
	core.WriteJSON(w, http.StatusOK, map[string]interface{}{"paused": false})
}
