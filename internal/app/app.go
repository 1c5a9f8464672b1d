// Package app holds the wiring shared by the command binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/wb-catalog-scraper/internal/browser"
	"github.com/maltedev/wb-catalog-scraper/internal/config"
	"github.com/maltedev/wb-catalog-scraper/internal/database"
	"github.com/maltedev/wb-catalog-scraper/internal/metrics"
	"github.com/maltedev/wb-catalog-scraper/internal/scraper"
	"github.com/maltedev/wb-catalog-scraper/internal/storage"
	"github.com/maltedev/wb-catalog-scraper/pkg/logger"
)

func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	return logger.New(cfg.Level, cfg.Format, logger.FileOptions{
		Path:       cfg.File,
		MaxSizeMB:  cfg.FileMaxSizeMB,
		MaxBackups: cfg.FileBackups,
		MaxAgeDays: cfg.FileMaxAge,
	})
}

func BrowserOptions(cfg config.BrowserConfig) *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Headless
	opts.Timeout = cfg.Timeout
	opts.ViewportWidth = cfg.ViewportWidth
	opts.ViewportHeight = cfg.ViewportHeight
	opts.AcceptLanguage = cfg.AcceptLanguage
	opts.TimezoneID = cfg.TimezoneID
	opts.Locale = cfg.Locale
	opts.UserAgent = cfg.UserAgent
	opts.ProxyServer = cfg.ProxyServer
	return opts
}

// LinkCollectorConfig maps scraper settings onto the collector, keeping
// scraper defaults for unset pages and timings.
func LinkCollectorConfig(cfg config.ScraperConfig) scraper.LinkCollectorConfig {
	out := scraper.DefaultLinkCollectorConfig()
	setInt(&out.Pages, cfg.Pages)
	// zero scroll passes is a valid setting
	out.ScrollTimes = cfg.ScrollTimes
	setDuration(&out.SearchSettle, cfg.SearchSettle)
	setDuration(&out.ResultsWait, cfg.ResultsWait)
	setDuration(&out.ScrollPause, cfg.ScrollPause)
	setDuration(&out.NextPageWait, cfg.NextPageWait)
	setDuration(&out.PageSettle, cfg.PageSettle)
	setDuration(&out.NextPageLoad, cfg.NextPageLoad)
	return out
}

func ProductParserConfig(cfg config.ScraperConfig) scraper.ProductParserConfig {
	out := scraper.DefaultProductParserConfig()
	setInt(&out.MaxLinks, cfg.MaxLinks)
	setDuration(&out.ProductSettle, cfg.ProductSettle)
	return out
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// OpenLinkStore returns the configured link store and a close func for
// whatever connection it holds.
func OpenLinkStore(ctx context.Context, cfg *config.Config) (storage.LinkStore, func() error, error) {
	if cfg.Storage.LinksBackend != config.LinksBackendRedis {
		return storage.NewFileLinkStore(cfg.Storage.LinksFile), func() error { return nil }, nil
	}

	client, err := NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	return storage.NewRedisLinkStore(client, cfg.Storage.LinksKey), client.Close, nil
}

func ConnectDB(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	return database.New(ctx, database.Config{
		DSN:      cfg.DSN(),
		MaxConns: int32(cfg.MaxConns),
	})
}

// ServeMetrics exposes m on addr until ctx is done. An empty addr disables it.
func ServeMetrics(ctx context.Context, addr string, m *metrics.Metrics, logger *slog.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics listener started", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
}
