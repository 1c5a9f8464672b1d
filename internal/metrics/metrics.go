package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus collectors shared by the pipelines and the API.
type Metrics struct {
	Registry           *prometheus.Registry
	LinksCollected     prometheus.Counter
	PagesVisited       *prometheus.CounterVec
	ProductsTotal      *prometheus.CounterVec
	FieldDefaults      *prometheus.CounterVec
	NavigationDuration prometheus.Histogram
	ExportedRows       *prometheus.CounterVec
	APIRequests        *prometheus.CounterVec
}

// New constructs and registers all collectors on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	links := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wb_links_collected_total",
		Help: "Product links extracted from search result pages.",
	})
	pages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wb_pages_visited_total",
		Help: "Pages loaded by the browser, by kind.",
	}, []string{"kind"})
	products := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wb_products_total",
		Help: "Product links processed, by outcome.",
	}, []string{"status"})
	defaults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wb_field_defaults_total",
		Help: "Fields that fell back to their default value.",
	}, []string{"field"})
	navigation := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wb_navigation_duration_seconds",
		Help:    "Time spent navigating to a page.",
		Buckets: prometheus.DefBuckets,
	})
	exported := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wb_exported_rows_total",
		Help: "Rows written to spreadsheet files, by file.",
	}, []string{"file"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wb_api_requests_total",
		Help: "Catalog API requests, by route and status code.",
	}, []string{"route", "code"})

	registry.MustRegister(links, pages, products, defaults, navigation, exported, requests)

	return &Metrics{
		Registry:           registry,
		LinksCollected:     links,
		PagesVisited:       pages,
		ProductsTotal:      products,
		FieldDefaults:      defaults,
		NavigationDuration: navigation,
		ExportedRows:       exported,
		APIRequests:        requests,
	}
}

func (m *Metrics) AddLinks(n int) {
	if m == nil {
		return
	}
	m.LinksCollected.Add(float64(n))
}

func (m *Metrics) IncPage(kind string) {
	if m == nil {
		return
	}
	m.PagesVisited.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncProduct(status string) {
	if m == nil {
		return
	}
	m.ProductsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncFieldDefault(field string) {
	if m == nil {
		return
	}
	m.FieldDefaults.WithLabelValues(field).Inc()
}

func (m *Metrics) ObserveNavigation(d time.Duration) {
	if m == nil {
		return
	}
	m.NavigationDuration.Observe(d.Seconds())
}

func (m *Metrics) AddExported(file string, n int) {
	if m == nil {
		return
	}
	m.ExportedRows.WithLabelValues(file).Add(float64(n))
}

func (m *Metrics) IncRequest(route, code string) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(route, code).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
