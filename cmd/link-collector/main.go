package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/maltedev/wb-catalog-scraper/internal/app"
	"github.com/maltedev/wb-catalog-scraper/internal/browser"
	"github.com/maltedev/wb-catalog-scraper/internal/config"
	"github.com/maltedev/wb-catalog-scraper/internal/metrics"
	"github.com/maltedev/wb-catalog-scraper/internal/scraper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	query := flag.String("query", cfg.Scraper.Query, "Search query")
	pages := flag.Int("pages", cfg.Scraper.Pages, "Number of result pages to walk")
	linksFile := flag.String("links", cfg.Storage.LinksFile, "Output file for product links")
	flag.Parse()

	cfg.Scraper.Query = *query
	cfg.Scraper.Pages = *pages
	cfg.Storage.LinksFile = *linksFile

	logger := app.NewLogger(cfg.Logging)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("link collection failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	runID := uuid.New().String()
	logger = logger.With("run_id", runID)

	m := metrics.New()
	app.ServeMetrics(ctx, cfg.Metrics.Addr, m, logger)

	store, closeStore, err := app.OpenLinkStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	collectorCfg := app.LinkCollectorConfig(cfg.Scraper)

	var links []string
	err = browser.Run(app.BrowserOptions(cfg.Browser), func(b *browser.Browser) error {
		page, err := b.NewPage()
		if err != nil {
			return err
		}
		defer page.Close()

		links, err = scraper.NewLinkCollector(page, collectorCfg, m).Collect(ctx, cfg.Scraper.Query)
		return err
	})
	if err != nil {
		// no results on the first page yields an empty list, not a failed run
		if !errors.Is(err, scraper.ErrNoResults) && len(links) == 0 {
			return err
		}
		logger.Error("search ended early", "error", err)
	}

	if len(links) == 0 {
		logger.Warn("no products found", "query", cfg.Scraper.Query)
		return nil
	}

	if err := store.Save(ctx, links); err != nil {
		return fmt.Errorf("failed to save links: %w", err)
	}

	logger.Info("links saved", "count", len(links), "store", fmt.Sprint(store))
	fmt.Printf("Сохранено %d ссылок в %v\n", len(links), store)
	return nil
}
