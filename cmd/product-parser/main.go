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
	"github.com/maltedev/wb-catalog-scraper/internal/database"
	"github.com/maltedev/wb-catalog-scraper/internal/events"
	"github.com/maltedev/wb-catalog-scraper/internal/export"
	"github.com/maltedev/wb-catalog-scraper/internal/metrics"
	"github.com/maltedev/wb-catalog-scraper/internal/models"
	"github.com/maltedev/wb-catalog-scraper/internal/parser"
	"github.com/maltedev/wb-catalog-scraper/internal/ratelimit"
	"github.com/maltedev/wb-catalog-scraper/internal/scraper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	limit := flag.Int("limit", cfg.Scraper.MaxLinks, "Maximum number of product links to parse")
	linksFile := flag.String("links", cfg.Storage.LinksFile, "File with product links")
	out := flag.String("out", cfg.Export.CatalogFile, "Catalog workbook")
	filtered := flag.String("filtered", cfg.Export.FilteredFile, "Filtered catalog workbook")
	selectors := flag.String("selectors", cfg.Scraper.SelectorsFile, "Optional YAML file with selector rules")
	flag.Parse()

	cfg.Scraper.MaxLinks = *limit
	cfg.Storage.LinksFile = *linksFile
	cfg.Export.CatalogFile = *out
	cfg.Export.FilteredFile = *filtered
	cfg.Scraper.SelectorsFile = *selectors

	logger := app.NewLogger(cfg.Logging)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("product parsing failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	runID := uuid.New().String()
	logger = logger.With("run_id", runID)

	m := metrics.New()
	app.ServeMetrics(ctx, cfg.Metrics.Addr, m, logger)

	rules, err := parser.LoadRules(cfg.Scraper.SelectorsFile)
	if err != nil {
		return err
	}
	extractor, err := parser.NewExtractor(rules, m)
	if err != nil {
		return err
	}

	store, closeStore, err := app.OpenLinkStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	links, err := store.Load(ctx)
	if err != nil {
		logger.Error("failed to load links", "store", fmt.Sprint(store), "error", err)
		links = nil
	}
	if len(links) == 0 {
		logger.Warn("no links to parse", "store", fmt.Sprint(store))
		return nil
	}

	limiter := ratelimit.NewSimpleRateLimiter(cfg.Scraper.RateLimitMin, cfg.Scraper.RateLimitMax)
	parserCfg := app.ProductParserConfig(cfg.Scraper)

	var (
		products []*models.Product
		summary  models.RunSummary
	)
	err = browser.Run(app.BrowserOptions(cfg.Browser), func(b *browser.Browser) error {
		page, err := b.NewPage()
		if err != nil {
			return err
		}
		defer page.Close()

		products, summary, err = scraper.NewProductParser(page, extractor, limiter, parserCfg, m).Run(ctx, links)
		return err
	})
	summary.RunID = runID
	if err != nil {
		if len(products) == 0 {
			return err
		}
		logger.Error("parsing interrupted, exporting partial results", "error", err)
	}

	logger.Info("parsing summary",
		"processed", summary.Processed,
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped,
		"duration", summary.Duration)

	filter := export.Filter{MinRating: cfg.Export.MinRating, MaxPrice: cfg.Export.MaxPrice}
	exporter := export.NewExporter(cfg.Export.CatalogFile, cfg.Export.FilteredFile, filter, m)
	res, err := exporter.Export(products)
	if errors.Is(err, export.ErrNoRecords) {
		logger.Warn("nothing to export")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("export finished",
		"catalog_rows", res.CatalogRows,
		"filtered_rows", res.FilteredRows,
		"filtered_written", res.FilteredWritten)

	// The workbooks are already on disk; sink failures are logged only.
	if cfg.Database.Enabled {
		if err := saveToDatabase(ctx, cfg.Database, runID, products); err != nil {
			logger.Error("failed to save products to database", "error", err)
		}
	}
	if cfg.Redis.EventsEnabled {
		if err := publishEvents(ctx, cfg.Redis, runID, products, logger); err != nil {
			logger.Error("failed to publish product events", "error", err)
		}
	}

	for _, p := range products {
		fmt.Println(p)
	}
	return nil
}

func saveToDatabase(ctx context.Context, cfg config.DatabaseConfig, runID string, products []*models.Product) error {
	db, err := app.ConnectDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := database.NewProductRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := repo.SaveProducts(ctx, runID, products); err != nil {
		return err
	}

	slog.Info("products saved to database", "count", len(products), "run_id", runID)
	return nil
}

func publishEvents(ctx context.Context, cfg config.RedisConfig, runID string, products []*models.Product, logger *slog.Logger) error {
	client, err := app.NewRedisClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	events.NewPublisher(client, cfg.ProductsStream, logger).PublishAll(ctx, runID, products)
	return nil
}
