package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"newsrelay/internal/auth"
	"newsrelay/internal/core"
	"newsrelay/internal/features/commands"
	"newsrelay/internal/features/relay"
	"newsrelay/internal/features/relay/models"
	"newsrelay/internal/server/services/discord"
)

const healthPingTimeout = 2 * time.Second

// relayStatus is what the health check reports about polling
type relayStatus interface {
	Stats() models.SchedulerStats
}

type Server struct {
	config    *core.Config
	logger    *core.Logger
	db        *core.Database
	chat      *discord.Client
	auth      *auth.Middleware
	registry  *core.Registry
	status    relayStatus
	latency   func() time.Duration
	server    *http.Server
	startedAt time.Time
}

// New wires the relay process: database, chat client, features and routes
func New(ctx context.Context, config *core.Config, logger *core.Logger, sources *models.SourceConfig) (*Server, error) {
	if err := config.RequireDiscord(); err != nil {
		return nil, err
	}

	var db *core.Database
	if config.Features.History.Enabled {
		var err error
		db, err = core.OpenDatabase(ctx, config.Database.Path, logger.ForComponent("database"))
		if err != nil {
			return nil, err
		}
	}

	chat, err := discord.New(
		config.Discord.Token,
		config.Discord.SendRate,
		config.Discord.OpenTimeout,
		logger.ForComponent("discord"),
	)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}

	registry := core.NewRegistry(logger)

	relayFeature := relay.NewFeature(logger, db, chat, sources, relay.NewConfig(config))
	commandsFeature := commands.NewFeature(
		logger,
		chat,
		relayFeature.GetSchedulerService(),
		config.Discord.CommandPrefix,
		config.IsFeatureEnabled("commands"),
	)

	for _, feature := range []core.Feature{relayFeature, commandsFeature} {
		if err := registry.Register(feature); err != nil {
			return nil, fmt.Errorf("failed to register %s feature: %w", feature.Name(), err)
		}
	}

	srv := &Server{
		config:   config,
		logger:   logger,
		db:       db,
		chat:     chat,
		auth:     auth.NewMiddleware(auth.NewOperatorToken(config.Auth.OperatorTokenHash), logger.ForComponent("auth")),
		registry: registry,
		status:   relayFeature.GetSchedulerService(),
		latency:  chat.Latency,
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv, nil
}

func (s *Server) routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.Recoverer)
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Logger)

	mux.Get("/health", s.healthHandler)
	mux.Handle("/metrics", promhttp.Handler())

	routes := s.registry.GetAllRoutes()

	for _, route := range routes {
		if !route.Operator {
			mux.Method(route.Method, route.Path, route.Handler)
		}
	}

	// Operator routes change runtime state and need the operator token
	mux.Group(func(r chi.Router) {
		r.Use(s.auth.RequireOperator)

		for _, route := range routes {
			if route.Operator {
				r.Method(route.Method, route.Path, route.Handler)
			}
		}
	})

	return mux
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	code := http.StatusOK
	body := map[string]interface{}{
		"status":   "ok",
		"features": s.registry.GetFeatureStatus(),
	}

	// The database only exists when dispatch history is enabled
	if s.db != nil {
		if err := s.db.PingWithTimeout(healthPingTimeout); err != nil {
			s.logger.Warn("Health check database ping failed", "error", err)
			code = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = "unreachable"
		} else {
			body["database"] = "ok"
		}
	}

	if !s.startedAt.IsZero() {
		body["uptime"] = time.Since(s.startedAt).Round(time.Second).String()
	}

	if s.latency != nil {
		body["latency_ms"] = s.latency().Milliseconds()
	}

	if s.status != nil {
		stats := s.status.Stats()
		body["paused"] = stats.Paused
		body["running"] = stats.Running
		if stats.LastRun != nil {
			body["last_run"] = stats.LastRun
		}
		if stats.NextRunAt != nil {
			body["next_run_at"] = stats.NextRunAt
		}
	}

	core.WriteJSON(w, code, body)
}

// Start connects to chat, starts the features and serves HTTP until Shutdown
func (s *Server) Start(ctx context.Context) error {
	s.startedAt = time.Now()

	if err := s.chat.Open(ctx); err != nil {
		return err
	}

	if err := s.registry.InitAll(ctx); err != nil {
		s.logger.Error("Failed to initialize features", "error", err)
		return err
	}

	s.logger.Info("Starting server", "host", s.config.Server.Host, "port", s.config.Server.Port)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops HTTP, lets the poll finish its current source, then disconnects
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown HTTP server", "error", err)
	}

	if err := s.registry.ShutdownAll(ctx); err != nil {
		s.logger.Error("Failed to shutdown features", "error", err)
	}

	if err := s.chat.Close(); err != nil {
		s.logger.Error("Failed to close discord session", "error", err)
	}

	if s.db != nil {
		s.db.LogStats()
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}

	return nil
}
