// Package api implements the HTTP service around the tournament optimizer.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"tourney/internal/auth"
	"tourney/internal/config"
	"tourney/internal/exact"
	"tourney/internal/metrics"
	"tourney/internal/store"
)

type Server struct {
	Config  config.Config
	Store   store.Store
	Broker  EventBroker
	Auth    *auth.Verifier
	Solvers *exact.Registry
	Limiter *rate.Limiter
	Logger  *slog.Logger
}

// NewServer creates a Server. If DATABASE_URL is unset, uses in-memory store.
// REDIS_URL selects the Redis broker; a bad URL falls back to in-process.
func NewServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var s store.Store
	if cfg.DatabaseURL == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.DBMigrate {
			if err := sp.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		s = sp
	}
	var broker EventBroker = NewBroker()
	if cfg.RedisURL != "" {
		rb, err := NewRedisBroker(cfg.RedisURL, logger)
		if err != nil {
			logger.Warn("redis broker unavailable, using in-process broker", "error", err)
		} else {
			broker = rb
		}
	}
	return New(cfg, s, broker, logger), nil
}

// New assembles a Server from explicit dependencies.
func New(cfg config.Config, s store.Store, broker EventBroker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Limit(cfg.RateRPS)
	if cfg.RateRPS == 0 {
		limit = rate.Inf
	}
	return &Server{
		Config: cfg,
		Store:  s,
		Broker: broker,
		Auth:   auth.NewVerifier(cfg.AuthMode, cfg.AuthHMACSecret),
		Solvers: exact.NewRegistry(
			exact.NewEnumerator(cfg.ExactMaxTeams, cfg.ByePolicy),
			exact.Missing{SolverName: "cpsat", Why: "CP-SAT backend is not linked into this build"},
		),
		Limiter: rate.NewLimiter(limit, cfg.RateBurst),
		Logger:  logger,
	}
}

// Routes registers every endpoint. Each route is wrapped in the metrics
// middleware under its pattern.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, metrics.Middleware(pattern, h))
	}

	// Optimization
	handle("/v1/optimize", s.OptimizeHandler)
	handle("/v1/evaluate", s.EvaluateHandler)
	handle("/v1/optimizer/config", s.OptimizerConfigHandler)
	handle("/v1/solvers", s.SolversHandler)

	// Runs
	handle("/v1/runs", s.RunsIndexHandler)
	handle("/v1/runs/", s.RunByIDHandler) // includes /stream and /ws

	// Admin
	handle("/v1/admin/optimizer/config", s.AdminOptimizerConfigHandler)
	handle("/v1/admin/runs/stats", s.AdminRunStatsHandler)

	// Health
	handle("/healthz", s.HealthHandler)
	handle("/readyz", s.ReadyHandler)
	handle("/debug/info", s.DebugJSON)

	mux.Handle("/metrics", metrics.Handler())
	return mux
}
