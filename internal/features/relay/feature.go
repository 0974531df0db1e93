package relay

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"newsrelay/internal/core"
	"newsrelay/internal/features/relay/handlers"
	"newsrelay/internal/features/relay/migrations"
	"newsrelay/internal/features/relay/models"
	"newsrelay/internal/features/relay/services"
)

// Feature represents the feed-to-chat relay
type Feature struct {
	*core.BaseFeature
	config           *Config
	sources          *models.SourceConfig
	migrationMgr     *migrations.Manager
	fetcherService   *services.FetcherService
	routerService    *services.RouterService
	historyService   *services.HistoryService
	schedulerService *services.SchedulerService
	handlers         *handlers.Handlers

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewFeature creates a new relay feature. db may be nil when history is disabled.
func NewFeature(logger *core.Logger, db *core.Database, client services.ChatClient, sources *models.SourceConfig, config *Config) *Feature {
	base := core.NewBaseFeature("relay", "Feed to chat relay", config.Enabled, logger)
	featureLogger := base.Logger()

	fetcherService := services.NewFetcherService(featureLogger.ForComponent("fetcher"), config.Fetcher)
	routerService := services.NewRouterService(
		sources.CategoryChannels,
		client,
		config.Scheduler.DeliverTimeout,
		featureLogger.ForComponent("router"),
	)

	var (
		migrationMgr   *migrations.Manager
		historyService *services.HistoryService
		recorder       services.HistoryRecorder
		lister         handlers.HistoryLister
	)
	if config.HistoryEnabled && db != nil {
		migrationMgr = migrations.NewManager(db, featureLogger.ForComponent("migrations"))
		historyService = services.NewHistoryService(db, featureLogger.ForComponent("history"))
		recorder = historyService
		lister = historyService
	}

	schedulerService := services.NewSchedulerService(
		sources.Sources,
		fetcherService,
		routerService,
		services.NewTracker(),
		recorder,
		featureLogger.ForComponent("scheduler"),
		config.Scheduler,
	)

	return &Feature{
		BaseFeature:      base,
		config:           config,
		sources:          sources,
		migrationMgr:     migrationMgr,
		fetcherService:   fetcherService,
		routerService:    routerService,
		historyService:   historyService,
		schedulerService: schedulerService,
		handlers:         handlers.NewHandlers(featureLogger, schedulerService, sources.CategoryChannels, lister),
	}
}

// Init validates configuration, migrates history tables and starts polling
func (f *Feature) Init(ctx context.Context) error {
	if err := f.BaseFeature.Init(ctx); err != nil {
		return err
	}

	if err := f.config.Validate(); err != nil {
		return err
	}

	if err := f.sources.Validate(); err != nil {
		return core.NewConfigurationError("invalid sources config", err)
	}

	for _, category := range f.sources.UnroutedCategories() {
		f.Logger().Warn("Category has no destination channel, its sources will be skipped", "category", category)
	}

	if f.migrationMgr != nil {
		if err := f.migrationMgr.Migrate(ctx); err != nil {
			return err
		}
	}

	// The scheduler outlives the init context; Shutdown cancels it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f.mu.Lock()
	f.cancel = cancel
	f.mu.Unlock()

	if err := f.schedulerService.Start(runCtx); err != nil {
		cancel()
		return fmt.Errorf("failed to start relay scheduler: %w", err)
	}

	f.Logger().Info("Relay feature initialized successfully",
		"sources", len(f.sources.Sources),
		"categories", len(f.sources.CategoryChannels),
		"history", f.historyService != nil,
	)
	return nil
}

// Routes returns the operator HTTP routes for the relay
func (f *Feature) Routes() []core.Route {
	return []core.Route{
		{Method: http.MethodGet, Path: "/relay/sources", Handler: f.handlers.ListSources},
		{Method: http.MethodGet, Path: "/relay/status", Handler: f.handlers.GetStatus},
		{Method: http.MethodGet, Path: "/relay/history", Handler: f.handlers.ListHistory},

		{Method: http.MethodPost, Path: "/relay/refresh", Handler: f.handlers.Refresh, Operator: true},
		{Method: http.MethodPost, Path: "/relay/pause", Handler: f.handlers.Pause, Operator: true},
		{Method: http.MethodPost, Path: "/relay/resume", Handler: f.handlers.Resume, Operator: true},
	}
}

// Shutdown stops polling. The current source is allowed to finish.
func (f *Feature) Shutdown(ctx context.Context) error {
	f.Logger().Info("Shutting down relay feature")

	if err := f.schedulerService.Stop(ctx); err != nil {
		f.Logger().Error("Failed to stop relay scheduler", "error", err)
	}
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.mu.Unlock()

	return f.BaseFeature.Shutdown(ctx)
}

// GetSchedulerService returns the scheduler service
func (f *Feature) GetSchedulerService() *services.SchedulerService {
	return f.schedulerService
}

// GetMigrationManager returns the migration manager, nil when history is disabled
func (f *Feature) GetMigrationManager() *migrations.Manager {
	return f.migrationMgr
}
