package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"newsrelay/internal/core"
	"newsrelay/internal/features/relay/models"
)

// ErrRunInProgress is returned when a run is requested while another is active
var ErrRunInProgress = errors.New("poll run already in progress")

// ErrAlreadyStarted is returned by Start on a scheduler that is already running
var ErrAlreadyStarted = errors.New("scheduler already started")

// FeedFetcher turns a feed URL into entries
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]models.Entry, error)
}

// Dispatcher resolves destinations and delivers notifications
type Dispatcher interface {
	Route(ctx context.Context, category string) (models.Destination, error)
	Send(ctx context.Context, dest models.Destination, n models.Notification) error
}

// HistoryRecorder stores dispatch attempts for operators
type HistoryRecorder interface {
	Record(ctx context.Context, rec models.DispatchRecord) error
}

// SchedulerService polls every source on a fixed interval and dispatches new
// entries. Only one run is active at a time. The next timed run starts one
// interval after the previous run completed.
type SchedulerService struct {
	sources []models.Source
	fetcher FeedFetcher
	router  Dispatcher
	tracker *Tracker
	history HistoryRecorder
	logger  *core.Logger
	config  *models.SchedulerConfig
	now     func() time.Time

	running atomic.Bool
	paused  atomic.Bool

	lifecycle sync.Mutex
	started   bool
	stopped   bool
	stopChan  chan struct{}
	wg        sync.WaitGroup

	mu        sync.RWMutex
	stats     models.SchedulerStats
	nextRunAt time.Time
}

// NewSchedulerService creates a new scheduler. history may be nil.
func NewSchedulerService(
	sources []models.Source,
	fetcher FeedFetcher,
	router Dispatcher,
	tracker *Tracker,
	history HistoryRecorder,
	logger *core.Logger,
	config *models.SchedulerConfig,
) *SchedulerService {
	return &SchedulerService{
		sources:  append([]models.Source(nil), sources...),
		fetcher:  fetcher,
		router:   router,
		tracker:  tracker,
		history:  history,
		logger:   logger,
		config:   config,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start begins the scheduler. The first run fires immediately. Start after
// Stop is a no-op.
func (s *SchedulerService) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	if s.stopped {
		s.logger.Info("Poll scheduler already stopped, not starting")
		return nil
	}

	s.logger.Info("Starting poll scheduler",
		"interval", s.config.PollInterval,
		"sources", len(s.sources),
		"max_entries", s.config.MaxEntriesPerPoll,
	)

	s.wg.Add(1)
	go s.loop(ctx)

	return nil
}

// Stop signals the scheduler to stop and waits for it. A run in progress
// finishes the source it is working on and skips the rest.
func (s *SchedulerService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping poll scheduler")

	s.lifecycle.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.stopChan)
	}
	s.lifecycle.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for scheduler to stop: %w", ctx.Err())
	}
}

func (s *SchedulerService) loop(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler context cancelled")
			return
		case <-s.stopChan:
			s.logger.Info("Scheduler stop signal received")
			return
		case <-timer.C:
			s.trigger(ctx)

			s.mu.Lock()
			s.nextRunAt = s.now().Add(s.config.PollInterval)
			s.mu.Unlock()

			timer.Reset(s.config.PollInterval)
		}
	}
}

// trigger runs one timed poll unless paused or already running
func (s *SchedulerService) trigger(ctx context.Context) {
	if s.paused.Load() {
		s.logger.Info("Scheduler paused, skipping run")
		return
	}

	if _, err := s.RunOnce(ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			s.logger.Warn("Previous run still active, skipping trigger")
			return
		}
		s.logger.Error("Poll run failed", "error", err)
	}
}

// RunOnce performs one sweep over all sources. It returns ErrRunInProgress
// without doing anything if another run is active.
func (s *SchedulerService) RunOnce(ctx context.Context) (*models.RunReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	runID := uuid.NewString()
	ctx = core.ContextWithRunID(ctx, runID)
	logger := s.logger.WithContext(ctx)

	report := &models.RunReport{
		RunID:     runID,
		StartedAt: s.now(),
		Sources:   len(s.sources),
		Failures:  []models.SourceFailure{},
	}

	logger.Info("Starting poll run", "sources", len(s.sources))

	// Work on a source is never cut short by cancellation; fetch and
	// delivery carry their own timeouts.
	workCtx := context.WithoutCancel(ctx)

	for i, src := range s.sources {
		if s.stopRequested(ctx) || (i > 0 && !s.pace(ctx)) {
			report.Interrupted = true
			logger.Info("Poll run interrupted by shutdown", "processed", report.Processed)
			break
		}

		outcome := s.processSourceSafely(workCtx, logger, src)
		report.Processed++
		report.Dispatched += outcome.dispatched

		if outcome.unrouted {
			report.Unrouted++
		}

		if outcome.err != nil {
			report.Failures = append(report.Failures, models.SourceFailure{
				Source: src.Name,
				URL:    src.URL,
				Code:   core.ErrorCode(outcome.err),
				Error:  outcome.err.Error(),
			})
			logger.Error("Failed to process source",
				"source", src.Name,
				"url", src.URL,
				"category", src.Category,
				"code", core.ErrorCode(outcome.err),
				"dispatched", outcome.dispatched,
				"error", outcome.err,
			)
		}
	}

	report.FinishedAt = s.now()
	s.recordRun(report)

	logger.Info("Poll run completed",
		"duration", report.Duration(),
		"processed", report.Processed,
		"dispatched", report.Dispatched,
		"unrouted", report.Unrouted,
		"failures", len(report.Failures),
	)

	return report, nil
}

type sourceOutcome struct {
	dispatched int
	unrouted   bool
	err        error
}

// processSourceSafely contains a panic in one source to that source
func (s *SchedulerService) processSourceSafely(ctx context.Context, logger *core.Logger, src models.Source) (out sourceOutcome) {
	defer func() {
		if p := recover(); p != nil {
			out.err = core.NewInternalError(fmt.Sprintf("panic while processing source: %v", p), nil)
		}
	}()

	return s.processSource(ctx, logger, src)
}

// processSource routes, fetches, selects and dispatches for one source. The
// batch stops at the first failed delivery. The watermark only moves once every
// candidate sharing a timestamp has been delivered, so no undelivered entry
// ends up at or below it.
func (s *SchedulerService) processSource(ctx context.Context, logger *core.Logger, src models.Source) sourceOutcome {
	var out sourceOutcome

	dest, err := s.router.Route(ctx, src.Category)
	if err != nil {
		if core.IsCode(err, core.ErrCodeRouteUnresolved) {
			routeUnresolved.WithLabelValues(src.Category).Inc()
			logger.Warn("Skipping source without destination",
				"source", src.Name,
				"category", src.Category,
				"reason", err,
			)
			out.unrouted = true
			return out
		}
		out.err = err
		return out
	}

	entries, err := s.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		fetchErrors.WithLabelValues(src.Name).Inc()
		out.err = err
		return out
	}

	candidates := s.tracker.SelectNew(src.Key(), entries, s.config.MaxEntriesPerPoll)
	logger.Debug("Selected new entries",
		"source", src.Name,
		"fetched", len(entries),
		"new", len(candidates),
		"watermark", s.tracker.Watermark(src.Key()),
	)

	for i, candidate := range candidates {
		notification := FormatNotification(src, candidate, s.now())

		err := s.router.Send(ctx, dest, notification)
		s.recordDispatch(ctx, logger, src, dest, candidate, err)

		if err != nil {
			dispatchesTotal.WithLabelValues(src.Category, models.DispatchFailed).Inc()
			out.err = err
			return out
		}

		dispatchesTotal.WithLabelValues(src.Category, models.DispatchDelivered).Inc()
		out.dispatched++

		if i+1 < len(candidates) && !candidates[i+1].Timestamp.After(candidate.Timestamp) {
			continue
		}
		if s.tracker.Advance(src.Key(), candidate.Timestamp) {
			watermarkGauge.WithLabelValues(src.Name).Set(float64(candidate.Timestamp.Unix()))
		}
	}

	return out
}

func (s *SchedulerService) recordDispatch(ctx context.Context, logger *core.Logger, src models.Source, dest models.Destination, c models.Candidate, sendErr error) {
	if s.history == nil {
		return
	}

	rec := models.DispatchRecord{
		SourceName:   src.Name,
		SourceURL:    src.URL,
		Category:     src.Category,
		ChannelID:    dest.ChannelID,
		Title:        c.Entry.Title,
		Link:         c.Entry.Link,
		PublishedAt:  c.Timestamp,
		DispatchedAt: s.now().UTC(),
		Status:       models.DispatchDelivered,
	}
	if runID, ok := core.RunIDFromContext(ctx); ok {
		rec.RunID = runID
	}
	if sendErr != nil {
		rec.Status = models.DispatchFailed
		rec.Error = sendErr.Error()
	}

	if err := s.history.Record(ctx, rec); err != nil {
		logger.Warn("Failed to record dispatch history", "source", src.Name, "error", err)
	}
}

// pace waits the inter-source delay; false means a stop was requested meanwhile
func (s *SchedulerService) pace(ctx context.Context) bool {
	if s.config.SourceDelay <= 0 {
		return !s.stopRequested(ctx)
	}

	t := time.NewTimer(s.config.SourceDelay)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-s.stopChan:
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *SchedulerService) stopRequested(ctx context.Context) bool {
	select {
	case <-s.stopChan:
		return true
	default:
		return ctx.Err() != nil
	}
}

func (s *SchedulerService) recordRun(report *models.RunReport) {
	outcome := "ok"
	if len(report.Failures) > 0 {
		outcome = "partial"
	}
	if report.Interrupted {
		outcome = "interrupted"
	}
	cyclesTotal.WithLabelValues(outcome).Inc()
	cycleDuration.Observe(report.Duration().Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Runs++
	s.stats.Dispatched += int64(report.Dispatched)
	s.stats.Errors += int64(len(report.Failures))
	if n := len(report.Failures); n > 0 {
		at := report.FinishedAt
		s.stats.LastError = report.Failures[n-1].Error
		s.stats.LastErrorAt = &at
	}
	s.stats.LastRun = report
}

// Pause suspends timed runs until Resume is called
func (s *SchedulerService) Pause() {
	if s.paused.CompareAndSwap(false, true) {
		s.logger.Info("Poll scheduler paused")
	}
}

// Resume re-enables timed runs
func (s *SchedulerService) Resume() {
	if s.paused.CompareAndSwap(true, false) {
		s.logger.Info("Poll scheduler resumed")
	}
}

// Paused reports whether timed runs are suspended
func (s *SchedulerService) Paused() bool {
	return s.paused.Load()
}

// Stats returns a snapshot of the scheduler counters
func (s *SchedulerService) Stats() models.SchedulerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := s.stats
	stats.Paused = s.paused.Load()
	stats.Running = s.running.Load()
	if !s.nextRunAt.IsZero() {
		next := s.nextRunAt
		stats.NextRunAt = &next
	}
	return stats
}

// Sources returns the configured sources
func (s *SchedulerService) Sources() []models.Source {
	return append([]models.Source(nil), s.sources...)
}

// Watermarks returns the current watermark per source URL
func (s *SchedulerService) Watermarks() map[string]time.Time {
	return s.tracker.Snapshot()
}
