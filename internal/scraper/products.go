package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maltedev/wb-catalog-scraper/internal/metrics"
	"github.com/maltedev/wb-catalog-scraper/internal/models"
	"github.com/maltedev/wb-catalog-scraper/internal/parser"
	"github.com/maltedev/wb-catalog-scraper/internal/ratelimit"
)

const detailPageMarker = "detail.aspx"

type ProductParserConfig struct {
	MaxLinks      int
	ProductSettle time.Duration
}

func DefaultProductParserConfig() ProductParserConfig {
	return ProductParserConfig{
		MaxLinks:      15,
		ProductSettle: 3 * time.Second,
	}
}

// ProductParser visits product pages one by one and extracts their records.
type ProductParser struct {
	page      Page
	extractor *parser.Extractor
	limiter   Limiter
	cfg       ProductParserConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewProductParser(page Page, extractor *parser.Extractor, limiter Limiter, cfg ProductParserConfig, m *metrics.Metrics) *ProductParser {
	return &ProductParser{
		page:      page,
		extractor: extractor,
		limiter:   limiter,
		cfg:       cfg,
		metrics:   m,
		logger:    slog.Default().With("component", "product_parser"),
	}
}

// Run parses the first cfg.MaxLinks links. Links whose page fails to load are
// logged and skipped; nothing is retried.
func (p *ProductParser) Run(ctx context.Context, links []string) ([]*models.Product, models.RunSummary, error) {
	start := time.Now()
	summary := models.RunSummary{Pipeline: "product-parser"}
	if len(links) == 0 {
		return nil, summary, ErrNoLinks
	}

	if len(links) > p.cfg.MaxLinks {
		links = links[:p.cfg.MaxLinks]
	}

	var products []*models.Product
	for i, link := range links {
		p.logger.Info("processing product", "n", i+1, "total", len(links))

		if err := p.limiter.Wait(ctx); err != nil {
			summary.Duration = time.Since(start)
			return products, summary, err
		}
		summary.Processed++

		product, err := p.ParseLink(ctx, link)
		if err != nil {
			if ctx.Err() != nil {
				summary.Duration = time.Since(start)
				return products, summary, ctx.Err()
			}
			p.logger.Warn("skipping product", "url", link, "error", err)
			p.metrics.IncProduct("skipped")
			summary.Skipped++
			continue
		}

		p.logger.Info("product parsed", "articul", product.Articul)
		p.metrics.IncProduct("parsed")
		products = append(products, product)
		summary.Succeeded++
	}

	summary.Duration = time.Since(start)
	p.logger.Info("product parsing finished", "parsed", summary.Succeeded, "skipped", summary.Skipped)
	return products, summary, nil
}

// ParseLink loads one product page and extracts its record.
func (p *ProductParser) ParseLink(ctx context.Context, link string) (*models.Product, error) {
	start := time.Now()
	if err := p.page.Navigate(ctx, link); err != nil {
		return nil, err
	}
	p.metrics.ObserveNavigation(time.Since(start))
	p.metrics.IncPage("product")

	if err := ratelimit.Sleep(ctx, p.cfg.ProductSettle); err != nil {
		return nil, err
	}

	if current := p.page.URL(); !strings.Contains(current, detailPageMarker) {
		return nil, fmt.Errorf("%w: landed on %s", ErrNotDetailPage, current)
	}

	html, err := p.page.Content()
	if err != nil {
		return nil, err
	}

	return p.extractor.ParseHTML(html, link)
}
