package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/civicpulse/civicpulse/internal/broadcast"
	"github.com/civicpulse/civicpulse/internal/cache"
	"github.com/civicpulse/civicpulse/internal/config"
	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/health"
)

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	store       domain.CommentStore
	aggregator  domain.Aggregator
	snapCache   cache.SnapshotCache
	hub         *broadcast.Hub
	monitor     *health.Monitor
	redisClient *goredis.Client
	clock       clockwork.Clock
	startTime   time.Time
}

func NewServer(cfg *config.Config, store domain.CommentStore, aggregator domain.Aggregator, snapCache cache.SnapshotCache, hub *broadcast.Hub, monitor *health.Monitor, redisClient *goredis.Client, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())

	srv := &Server{
		echo:        e,
		config:      cfg,
		store:       store,
		aggregator:  aggregator,
		snapCache:   snapCache,
		hub:         hub,
		monitor:     monitor,
		redisClient: redisClient,
		clock:       clock,
		startTime:   clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
