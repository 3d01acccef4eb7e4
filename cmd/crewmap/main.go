package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/skyline-va/crewmap/internal/airport"
	"github.com/skyline-va/crewmap/internal/api"
	"github.com/skyline-va/crewmap/internal/auth"
	"github.com/skyline-va/crewmap/internal/metrics"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to load .env file", "error", err)
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	srvCfg := loadServerConfig(logger)
	srvCfg.Auth = authCfg
	airportCfg := loadAirportConfig(logger)

	table, err := airport.LoadBundledTable()
	if err != nil {
		// Lookups still fall through to the remote dataset; readiness reports the gap.
		logger.Error("failed to load bundled airport table", "error", err)
	}

	snapshots, closeSnapshots := newSnapshotStore(logger, airportCfg)
	defer closeSnapshots()

	source := airport.NewHTTPSource(airportCfg.SourceURL, logger)
	store := airport.NewStore(source, airportCfg.Freshness, logger, airport.WithSnapshots(snapshots))
	lookup := airport.NewLookup(table, store, logger)

	// Warm from the last snapshot so a restart during an upstream outage
	// still resolves non-hub airports.
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 5*time.Second)
	if err := store.LoadSnapshot(startupCtx); err != nil {
		logger.Info("no airport dataset snapshot loaded", "error", err)
	}
	cancelStartup()

	srv, err := api.NewServer(srvCfg, logger, lookup, store, func() bool { return len(table) > 0 })
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if airportCfg.Prefetch && store.State() != airport.StateFresh {
		go func() {
			if _, err := store.Refresh(ctx); err != nil {
				logger.Warn("airport dataset prefetch failed", "error", err)
			}
		}()
	}

	// Background goroutine to update airport dataset age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if age, ok := store.Age(); ok {
					metrics.SetDatasetAge(age.Seconds())
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server",
			"addr", srvCfg.Addr,
			"auth_enabled", authCfg.Enabled,
			"static_airports", len(table),
			"source_url", source.SourceURL(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// newSnapshotStore returns the Redis snapshot store when CREWMAP_REDIS_ADDR
// is set and reachable, and disk snapshots otherwise.
func newSnapshotStore(logger *slog.Logger, cfg airportConfig) (airport.SnapshotStore, func()) {
	disk := airport.NewDiskSnapshots(cfg.SnapshotDir, cfg.SnapshotMaxFiles)
	if cfg.RedisAddr == "" {
		return disk, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, using disk snapshots", "addr", cfg.RedisAddr, "error", err)
		client.Close()
		return disk, func() {}
	}

	logger.Info("using redis for airport dataset snapshots", "addr", cfg.RedisAddr, "key", airport.DefaultRedisKey)
	return airport.NewRedisSnapshots(client, airport.DefaultRedisKey), func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	}
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("CREWMAP_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("CREWMAP_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("CREWMAP_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("CREWMAP_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func loadServerConfig(logger *slog.Logger) api.Config {
	cfg := api.Config{
		Addr:            ":8080",
		RouteCacheSize:  1024,
		RefreshInterval: time.Minute,
	}

	if v := os.Getenv("CREWMAP_HTTP_ADDR"); v != "" {
		cfg.Addr = v
	}

	if v := os.Getenv("CREWMAP_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid CREWMAP_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	if v := os.Getenv("CREWMAP_ROUTE_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid CREWMAP_ROUTE_CACHE_SIZE value, using default", "value", v, "default", cfg.RouteCacheSize)
		} else {
			cfg.RouteCacheSize = n
		}
	}

	if v := os.Getenv("CREWMAP_REFRESH_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			logger.Warn("invalid CREWMAP_REFRESH_INTERVAL value, using default", "value", v, "default", 60)
		} else {
			cfg.RefreshInterval = time.Duration(n) * time.Second
		}
	}

	logger.Info("server config",
		"addr", cfg.Addr,
		"trust_proxy", cfg.TrustProxy,
		"route_cache_size", cfg.RouteCacheSize,
		"refresh_interval_seconds", cfg.RefreshInterval.Seconds(),
	)

	return cfg
}

type airportConfig struct {
	SourceURL        string
	Freshness        time.Duration
	Prefetch         bool
	SnapshotDir      string
	SnapshotMaxFiles int
	RedisAddr        string
	RedisPassword    string
}

func loadAirportConfig(logger *slog.Logger) airportConfig {
	cfg := airportConfig{
		SourceURL:        airport.DefaultSourceURL,
		Freshness:        airport.DefaultFreshness,
		Prefetch:         true,
		SnapshotDir:      "/tmp/crewmap/airports",
		SnapshotMaxFiles: 3,
	}

	if v := os.Getenv("CREWMAP_AIRPORT_SOURCE_URL"); v != "" {
		cfg.SourceURL = v
	}

	if v := os.Getenv("CREWMAP_AIRPORT_FRESHNESS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds < 1 {
			logger.Warn("invalid CREWMAP_AIRPORT_FRESHNESS value, defaulting to 86400", "value", v)
		} else {
			cfg.Freshness = time.Duration(seconds) * time.Second
		}
	}

	if v := os.Getenv("CREWMAP_AIRPORT_PREFETCH"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid CREWMAP_AIRPORT_PREFETCH value, defaulting to true", "value", v)
		} else {
			cfg.Prefetch = enabled
		}
	}

	if v := os.Getenv("CREWMAP_SNAPSHOT_DIR"); v != "" {
		cfg.SnapshotDir = v
	}

	if v := os.Getenv("CREWMAP_SNAPSHOT_MAX_FILES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid CREWMAP_SNAPSHOT_MAX_FILES value, using default", "value", v, "default", cfg.SnapshotMaxFiles)
		} else {
			cfg.SnapshotMaxFiles = n
		}
	}

	cfg.RedisAddr = os.Getenv("CREWMAP_REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("CREWMAP_REDIS_PASSWORD")

	logger.Info("airport config",
		"source_url", cfg.SourceURL,
		"freshness_seconds", cfg.Freshness.Seconds(),
		"prefetch", cfg.Prefetch,
		"snapshot_dir", cfg.SnapshotDir,
		"redis_enabled", cfg.RedisAddr != "",
	)

	return cfg
}
