package services

import (
	"context"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"

	"newsrelay/internal/core"
	"newsrelay/internal/features/relay/models"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

var historyColumns = []string{
	"id", "run_id", "source_name", "source_url", "category", "channel_id",
	"title", "link", "published_at", "dispatched_at", "status", "error",
}

// HistoryService keeps an audit trail of dispatch attempts. It is write-only
// from the scheduler's side: watermarks are never rebuilt from it.
type HistoryService struct {
	db     *core.Database
	logger *core.Logger
}

// NewHistoryService creates a new history service
func NewHistoryService(db *core.Database, logger *core.Logger) *HistoryService {
	return &HistoryService{
		db:     db,
		logger: logger,
	}
}

// Record stores one dispatch attempt
func (h *HistoryService) Record(ctx context.Context, rec models.DispatchRecord) error {
	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("relay_dispatches").
		Cols(historyColumns[1:]...).
		Values(
			rec.RunID, rec.SourceName, rec.SourceURL, rec.Category, rec.ChannelID,
			rec.Title, rec.Link, rec.PublishedAt.UnixMilli(), rec.DispatchedAt.UnixMilli(),
			rec.Status, rec.Error,
		)

	query, args := ib.Build()
	if _, err := h.db.ExecWithTimeout(ctx, query, args...); err != nil {
		return core.NewDatabaseError("failed to record dispatch", err)
	}

	return nil
}

// List returns recorded dispatches, newest first
func (h *HistoryService) List(ctx context.Context, filter models.HistoryFilter) ([]models.DispatchRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(historyColumns...).From("relay_dispatches")
	if filter.SourceURL != "" {
		sb.Where(sb.Equal("source_url", filter.SourceURL))
	}
	if filter.Status != "" {
		sb.Where(sb.Equal("status", filter.Status))
	}
	sb.OrderBy("id").Desc().Limit(limit)

	query, args := sb.Build()
	rows, cancel, err := h.db.QueryWithTimeout(ctx, query, args...)
	if err != nil {
		return nil, core.NewDatabaseError("failed to list dispatches", err)
	}
	defer cancel()
	defer rows.Close()

	records := make([]models.DispatchRecord, 0)
	for rows.Next() {
		var (
			rec                     models.DispatchRecord
			link, errText           *string
			publishedMs, dispatchMs int64
		)
		if err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.SourceName, &rec.SourceURL, &rec.Category, &rec.ChannelID,
			&rec.Title, &link, &publishedMs, &dispatchMs, &rec.Status, &errText,
		); err != nil {
			return nil, core.NewDatabaseError("failed to scan dispatch", err)
		}
		if link != nil {
			rec.Link = *link
		}
		if errText != nil {
			rec.Error = *errText
		}
		rec.PublishedAt = time.UnixMilli(publishedMs).UTC()
		rec.DispatchedAt = time.UnixMilli(dispatchMs).UTC()
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, core.NewDatabaseError("failed to iterate dispatches", err)
	}

	return records, nil
}
