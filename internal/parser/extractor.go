package parser

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/wb-catalog-scraper/internal/metrics"
	"github.com/maltedev/wb-catalog-scraper/internal/models"
)

// Extractor turns a rendered product page into a fully populated Product.
type Extractor struct {
	rules      *Rules
	priceClass *regexp.Regexp
	imageExt   *regexp.Regexp
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewExtractor(rules *Rules, m *metrics.Metrics) (*Extractor, error) {
	if rules == nil {
		rules = DefaultRules()
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}

	return &Extractor{
		rules:      rules,
		priceClass: regexp.MustCompile(rules.Price.ClassPattern),
		imageExt:   regexp.MustCompile(rules.Images.ExtPattern),
		metrics:    m,
		logger:     slog.Default().With("component", "extractor"),
	}, nil
}

// ParseHTML extracts a product from raw page markup.
func (e *Extractor) ParseHTML(html, url string) (*models.Product, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return e.Extract(doc, url), nil
}

// Extract never fails: each field that cannot be read takes its default.
func (e *Extractor) Extract(doc *goquery.Document, url string) *models.Product {
	root := doc.Selection
	p := models.NewProduct(url, ArticulFromURL(url).OrElse(""))

	p.Name = extractField(e, "name", func() Optional[string] { return e.name(root) }).OrElse(models.DefaultName)
	p.Price = extractField(e, "price", func() Optional[string] { return e.price(root) }).OrElse(models.DefaultPrice)
	p.Rating = extractField(e, "rating", func() Optional[float64] { return e.rating(root) }).OrElse(0)
	p.ReviewsCount = extractField(e, "reviews_count", func() Optional[int] { return e.reviews(root) }).OrElse(0)
	p.Description = extractField(e, "description", func() Optional[string] { return e.description(root) }).OrElse(models.DefaultDescription)
	p.Images = strings.Join(extractField(e, "images", func() Optional[[]string] { return e.images(root) }).OrElse(nil), ", ")
	p.Characteristics = extractField(e, "characteristics", func() Optional[string] { return e.characteristics(root) }).OrElse("")
	p.SellerName = extractField(e, "seller_name", func() Optional[string] { return e.sellerName(root) }).OrElse(models.DefaultSellerName)
	p.SellerURL = extractField(e, "seller_url", func() Optional[string] { return e.sellerURL(root) }).OrElse("")

	return p
}

// extractField isolates one field: a panic in fn only empties that field.
func extractField[T any](e *Extractor, field string, fn func() Optional[T]) (out Optional[T]) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("field extraction failed", "field", field, "panic", r)
			out = None[T]()
		}
		if !out.IsSome() {
			e.logger.Debug("field not found, using default", "field", field)
			e.metrics.IncFieldDefault(field)
		}
	}()
	return fn()
}
