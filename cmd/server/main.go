package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/civicpulse/civicpulse/internal/aggregate"
	"github.com/civicpulse/civicpulse/internal/broadcast"
	"github.com/civicpulse/civicpulse/internal/cache"
	"github.com/civicpulse/civicpulse/internal/config"
	"github.com/civicpulse/civicpulse/internal/database"
	"github.com/civicpulse/civicpulse/internal/health"
	"github.com/civicpulse/civicpulse/internal/logging"
	"github.com/civicpulse/civicpulse/internal/pipeline"
	"github.com/civicpulse/civicpulse/internal/scheduler"
	"github.com/civicpulse/civicpulse/internal/server"
	"github.com/civicpulse/civicpulse/internal/upstream"
)

func setupConfig() *config.Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *goredis.Client {
	if cfg.RedisURL == "" {
		return nil
	}

	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to parse Redis URL", "error", err)
		os.Exit(1)
	}

	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	return client
}

func runGracefulShutdown(srv *server.Server, hub *broadcast.Hub, cancelJobs context.CancelFunc, jobs *scheduler.Scheduler) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		cancelJobs()
		jobs.Wait()
		hub.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	redisClient := setupRedis(cfg)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	store := database.NewCommentStore(pool)
	engine := aggregate.NewEngine(store)

	var snapCache cache.SnapshotCache
	if redisClient != nil {
		snapCache = cache.NewRedisCache(redisClient)
	} else {
		snapCache = cache.NewMemoryCache()
	}

	generation := upstream.NewGenerationClient(cfg.GenerationURL, cfg.GenerationTimeout)
	analysis := upstream.NewAnalysisClient(cfg.AnalysisURL, cfg.AnalysisTimeout)

	hub := broadcast.NewHub(clock)
	publisher := broadcast.NewPublisher(engine, snapCache, hub, clock)
	hub.OnConnect = publisher.PushInitial
	hub.OnRefresh = publisher.Refresh
	hub.Start()

	monitor := health.NewMonitor(store, clock)

	jobs := scheduler.New(clock)
	jobs.Register("ingest", cfg.IngestInterval, pipeline.NewIngestStage(store, generation).Tick)
	jobs.Register("analyze", cfg.AnalyzeInterval, pipeline.NewAnalyzeStage(store, analysis, clock).Tick)
	jobs.Register("broadcast", cfg.BroadcastInterval, publisher.Tick)
	jobs.Register("health", cfg.HealthInterval, monitor.Tick)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	jobs.Start(jobCtx)

	srv := server.NewServer(cfg, store, engine, snapCache, hub, monitor, redisClient, clock)

	done := runGracefulShutdown(srv, hub, cancelJobs, jobs)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
