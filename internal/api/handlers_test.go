package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/wb-catalog-scraper/internal/database"
	"github.com/maltedev/wb-catalog-scraper/internal/metrics"
	"github.com/maltedev/wb-catalog-scraper/internal/models"
)

type MockProductStore struct {
	mock.Mock
}

func (m *MockProductStore) ListProducts(ctx context.Context, filter database.ProductFilter) ([]*models.StoredProduct, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.StoredProduct), args.Error(1)
}

func (m *MockProductStore) GetProduct(ctx context.Context, articul string) (*models.StoredProduct, error) {
	args := m.Called(ctx, articul)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StoredProduct), args.Error(1)
}

func (m *MockProductStore) Stats(ctx context.Context) (*database.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.Stats), args.Error(1)
}

func stored(articul string, rating float64) *models.StoredProduct {
	p := models.NewProduct("https://www.wildberries.ru/catalog/"+articul+"/detail.aspx", articul)
	p.Rating = rating
	return &models.StoredProduct{Product: *p, RunID: "run-1", ScrapedAt: time.Now()}
}

func newTestServer(store ProductStore, m *metrics.Metrics) http.Handler {
	return NewRouter(NewHandlers(store, slog.Default()), m, []string{"*"})
}

func do(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(new(MockProductStore), nil), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListProducts(t *testing.T) {
	t.Run("passes filter to store", func(t *testing.T) {
		store := new(MockProductStore)
		store.On("ListProducts", mock.Anything, database.ProductFilter{MinRating: 4.5, MaxPrice: 10000, Limit: 20}).
			Return([]*models.StoredProduct{stored("1", 4.9), stored("2", 4.6)}, nil)

		rec := do(t, newTestServer(store, nil), "/api/v1/products?min_rating=4.5&max_price=10000&limit=20")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ProductListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Count)
		assert.Equal(t, 4.5, resp.MinRating)
		assert.Equal(t, "1", resp.Products[0].Articul)
		store.AssertExpectations(t)
	})

	t.Run("invalid parameters", func(t *testing.T) {
		for _, target := range []string{
			"/api/v1/products?min_rating=abc",
			"/api/v1/products?min_rating=7",
			"/api/v1/products?max_price=-1",
			"/api/v1/products?max_price=0",
			"/api/v1/products?limit=0",
		} {
			rec := do(t, newTestServer(new(MockProductStore), nil), target)
			assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		store := new(MockProductStore)
		store.On("ListProducts", mock.Anything, database.ProductFilter{}).Return(nil, errors.New("db down"))

		rec := do(t, newTestServer(store, nil), "/api/v1/products")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"failed to list products"}`, rec.Body.String())
	})
}

func TestGetProduct(t *testing.T) {
	store := new(MockProductStore)
	store.On("GetProduct", mock.Anything, "123").Return(stored("123", 4.7), nil)
	store.On("GetProduct", mock.Anything, "404").Return(nil, database.ErrProductNotFound)
	store.On("GetProduct", mock.Anything, "500").Return(nil, errors.New("boom"))
	srv := newTestServer(store, nil)

	rec := do(t, srv, "/api/v1/products/123")
	require.Equal(t, http.StatusOK, rec.Code)
	var p models.StoredProduct
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "123", p.Articul)
	assert.Equal(t, models.DefaultName, p.Name)

	assert.Equal(t, http.StatusNotFound, do(t, srv, "/api/v1/products/404").Code)
	assert.Equal(t, http.StatusInternalServerError, do(t, srv, "/api/v1/products/500").Code)
}

func TestGetStats(t *testing.T) {
	store := new(MockProductStore)
	store.On("Stats", mock.Anything).Return(&database.Stats{Total: 12, AverageRating: 4.6, Runs: 2}, nil)

	rec := do(t, newTestServer(store, nil), "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":12,"average_rating":4.6,"runs":2}`, rec.Body.String())
}

func TestRequestMetrics(t *testing.T) {
	m := metrics.New()
	srv := newTestServer(new(MockProductStore), m)

	do(t, srv, "/health")
	do(t, srv, "/health")
	do(t, srv, "/api/v1/products?limit=x")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("/health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("/api/v1/products", "400")))

	rec := do(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wb_api_requests_total")
}
