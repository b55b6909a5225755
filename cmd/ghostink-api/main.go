package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ghostink/cfg"
	"ghostink/pkg/secrets"
	"ghostink/svc/api"
	"ghostink/svc/cache"
	"ghostink/svc/db"
	"ghostink/svc/svc"
	"ghostink/svc/util"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		util.Warn().Err(err).Msg("failed to read .env")
	}
	if len(os.Args) > 1 && os.Args[1] == "-health" {
		addr := os.Getenv("GHOSTINK_API_ADDR")
		if addr == "" {
			addr = ":3000"
		}
		os.Exit(healthcheck(addr))
	}

	c, err := cfg.Load()
	if err != nil {
		util.Fatal().Err(err).Msg("failed to load configuration")
	}
	util.InitLog(c.LogLevel, c.Environment == "development")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if c.NeedsSecrets() {
		resolver, err := secrets.NewResolver(ctx, c.SecretsBackend, c.SecretsPath)
		if err != nil {
			util.Fatal().Err(err).Str("backend", c.SecretsBackend).Msg("failed to initialize secrets backend")
		}
		if err := c.ResolveSecrets(ctx, resolver); err != nil {
			util.Fatal().Err(err).Msg("failed to resolve secrets")
		}
		util.Info().Str("backend", c.SecretsBackend).Msg("secrets resolved")
	}
	if err := cfg.Validate(c); err != nil {
		util.Fatal().Err(err).Msg("invalid configuration")
	}
	defer c.Wipe()
	util.Info().
		Str("environment", c.Environment).
		Strs("allowed_origins", c.AllowedOrigins).
		Msg("starting ghostink API")

	store, err := db.Open(ctx, c.DatabaseURL.Value(), db.Options{
		MaxOpenConns: c.DBMaxOpenConns,
		MaxIdleConns: c.DBMaxIdleConns,
		QueryTimeout: c.DBQueryTimeout,
	})
	if err != nil {
		util.Fatal().Err(err).Str("database", util.RedactDSN(c.DatabaseURL.Value())).Msg("failed to initialize database")
	}
	defer store.Close()
	util.Info().
		Str("backend", db.Kind(store)).
		Str("database", util.RedactDSN(c.DatabaseURL.Value())).
		Msg("database initialized")

	walDone := closedChan()
	if sqlite, ok := store.(*db.SQLite); ok {
		walDone = sqlite.StartWALMaintenance(ctx, c.WALInterval)
	}

	var rdb *db.Redis
	if c.RedisURL.Value() != "" {
		rdb, err = db.NewRedis(c.RedisURL.Value(), c)
		if err != nil {
			if c.Environment == "production" {
				util.Fatal().Err(err).Msg("redis configured but unreachable")
			}
			util.Warn().Err(err).Msg("redis unavailable, continuing without it")
			rdb = nil
		} else {
			util.Info().Msg("redis connected")
			defer rdb.Close()
		}
	}

	var lru *cache.LRU
	if c.LRUCacheSize > 0 {
		lru, err = cache.NewLRU(c.LRUCacheSize)
		if err != nil {
			util.Fatal().Err(err).Msg("failed to create LRU cache")
		}
		util.Info().Int("size", c.LRUCacheSize).Msg("LRU cache initialized")
	}

	pasteSvc := svc.NewPaste(store, lru, rdb, c)
	cleanerDone, err := pasteSvc.StartCleaner(ctx, c.CleanupInterval)
	if err != nil {
		util.Fatal().Err(err).Msg("failed to start cleaner")
	}

	server := api.NewServer(c, pasteSvc)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		util.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
	case err := <-errCh:
		if err != nil {
			util.Error().Err(err).Msg("server failed")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		util.Error().Err(err).Msg("server shutdown error")
	}
	cancel()
	for name, done := range map[string]<-chan struct{}{"cleanup": cleanerDone, "wal": walDone} {
		select {
		case <-done:
		case <-shutdownCtx.Done():
			util.Warn().Str("worker", name).Msg("worker did not stop in time")
		}
	}
	util.Info().Msg("shutdown complete")
}

// healthcheck is the container probe. It asks the running server for
// /health instead of opening the store, which may be locked by the server.
func healthcheck(addr string) int {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(healthURL(addr))
	if err != nil {
		return 1
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}

// healthURL maps a listen address to a URL reachable from the same host.
func healthURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + "/health"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/health"
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
