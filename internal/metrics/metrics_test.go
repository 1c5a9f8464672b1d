package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.AddLinks(3)
		m.IncPage("search")
		m.IncProduct("parsed")
		m.IncFieldDefault("price")
		m.ObserveNavigation(time.Second)
		m.AddExported("catalog", 2)
		m.IncRequest("/health", "200")
	})
}

func TestCounters(t *testing.T) {
	m := New()

	m.AddLinks(5)
	m.AddLinks(2)
	m.IncProduct("parsed")
	m.IncProduct("parsed")
	m.IncProduct("skipped")
	m.IncFieldDefault("price")
	m.AddExported("filtered", 4)

	assert.Equal(t, 7.0, testutil.ToFloat64(m.LinksCollected))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProductsTotal.WithLabelValues("parsed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProductsTotal.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FieldDefaults.WithLabelValues("price")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ExportedRows.WithLabelValues("filtered")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.IncPage("product")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `wb_pages_visited_total{kind="product"} 1`)
}
