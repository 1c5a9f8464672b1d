package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/wb-catalog-scraper/internal/metrics"
	"github.com/maltedev/wb-catalog-scraper/internal/ratelimit"
)

const (
	searchBaseURL    = "https://www.wildberries.ru/catalog/0/search.aspx?search="
	resultsSelector  = ".product-card"
	cardSelector     = "article.product-card"
	cardLinkSelector = "a.product-card__link"
	nextPageSelector = "a.pagination-next"

	scrollHeightScript = "() => document.body.scrollHeight"
	scrollBottomScript = "() => window.scrollTo(0, document.body.scrollHeight)"
)

type LinkCollectorConfig struct {
	Pages        int
	SearchSettle time.Duration
	ResultsWait  time.Duration
	ScrollTimes  int
	ScrollPause  time.Duration
	NextPageWait time.Duration
	PageSettle   time.Duration
	NextPageLoad time.Duration
}

func DefaultLinkCollectorConfig() LinkCollectorConfig {
	return LinkCollectorConfig{
		Pages:        2,
		SearchSettle: 5 * time.Second,
		ResultsWait:  4 * time.Second,
		ScrollTimes:  3,
		ScrollPause:  2 * time.Second,
		NextPageWait: 5 * time.Second,
		PageSettle:   3 * time.Second,
		NextPageLoad: 10 * time.Second,
	}
}

// LinkCollector walks search result pages and gathers product card links.
type LinkCollector struct {
	page    Page
	cfg     LinkCollectorConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewLinkCollector(page Page, cfg LinkCollectorConfig, m *metrics.Metrics) *LinkCollector {
	return &LinkCollector{
		page:    page,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "link_collector"),
	}
}

// SearchURL builds the catalog search URL; only spaces are encoded.
func SearchURL(query string) string {
	return searchBaseURL + strings.ReplaceAll(query, " ", "%20")
}

// Collect returns the product links of up to cfg.Pages result pages in page
// order. A failed page switch ends pagination but keeps what was collected.
func (c *LinkCollector) Collect(ctx context.Context, query string) ([]string, error) {
	searchURL := SearchURL(query)
	c.logger.Info("starting search", "query", query, "url", searchURL)

	start := time.Now()
	if err := c.page.Navigate(ctx, searchURL); err != nil {
		return nil, fmt.Errorf("failed to open search: %w", err)
	}
	c.metrics.ObserveNavigation(time.Since(start))

	if err := ratelimit.Sleep(ctx, c.cfg.SearchSettle); err != nil {
		return nil, err
	}

	if err := c.page.WaitFor(resultsSelector, false, c.cfg.ResultsWait); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoResults, err)
	}

	var links []string
	for pageNum := 1; pageNum <= c.cfg.Pages; pageNum++ {
		c.logger.Info("processing search page", "page", pageNum)
		c.metrics.IncPage("search")

		if err := c.scroll(ctx); err != nil {
			if ctx.Err() != nil {
				return links, ctx.Err()
			}
			c.logger.Warn("scrolling failed", "page", pageNum, "error", err)
		}
		if err := ratelimit.Sleep(ctx, c.cfg.ScrollPause); err != nil {
			return links, err
		}

		html, err := c.page.Content()
		if err != nil {
			c.logger.Error("failed to read page", "page", pageNum, "error", err)
			break
		}

		pageLinks, err := ExtractLinks(html)
		if err != nil {
			c.logger.Error("failed to parse page", "page", pageNum, "error", err)
			break
		}
		links = append(links, pageLinks...)
		c.metrics.AddLinks(len(pageLinks))
		c.logger.Info("found products on page", "page", pageNum, "count", len(pageLinks))

		if pageNum == c.cfg.Pages {
			break
		}

		if err := c.goToNextPage(ctx); err != nil {
			if ctx.Err() != nil {
				return links, ctx.Err()
			}
			c.logger.Warn("could not go to next page", "page", pageNum, "error", err)
			break
		}
	}

	c.logger.Info("link collection finished", "total", len(links))
	return links, nil
}

// scroll pushes the page to the bottom until its height stops growing.
func (c *LinkCollector) scroll(ctx context.Context) error {
	last, err := c.scrollHeight()
	if err != nil {
		return err
	}

	for i := 0; i < c.cfg.ScrollTimes; i++ {
		if _, err := c.page.Evaluate(scrollBottomScript); err != nil {
			return err
		}
		if err := ratelimit.Sleep(ctx, c.cfg.ScrollPause); err != nil {
			return err
		}

		height, err := c.scrollHeight()
		if err != nil {
			return err
		}
		if height == last {
			break
		}
		last = height
	}
	return nil
}

func (c *LinkCollector) scrollHeight() (int, error) {
	v, err := c.page.Evaluate(scrollHeightScript)
	if err != nil {
		return 0, err
	}
	return toInt(v)
}

func (c *LinkCollector) goToNextPage(ctx context.Context) error {
	if err := c.page.WaitFor(nextPageSelector, true, c.cfg.NextPageWait); err != nil {
		return fmt.Errorf("%w: %v", ErrNoNextPage, err)
	}

	c.logger.Debug("clicking next page")
	if err := c.page.ClickScript(nextPageSelector); err != nil {
		return err
	}

	if err := ratelimit.Sleep(ctx, c.cfg.PageSettle); err != nil {
		return err
	}

	return c.page.WaitFor(resultsSelector, false, c.cfg.NextPageLoad)
}

// ExtractLinks returns the detail link of every product card in document order.
func ExtractLinks(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var links []string
	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		href, ok := card.Find(cardLinkSelector).First().Attr("href")
		if !ok || href == "" {
			return
		}
		links = append(links, href)
	})

	return links, nil
}
