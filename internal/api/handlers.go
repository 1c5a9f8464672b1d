package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/maltedev/wb-catalog-scraper/internal/database"
	"github.com/maltedev/wb-catalog-scraper/internal/models"
)

// ProductStore is the read side of the product repository.
type ProductStore interface {
	ListProducts(ctx context.Context, filter database.ProductFilter) ([]*models.StoredProduct, error)
	GetProduct(ctx context.Context, articul string) (*models.StoredProduct, error)
	Stats(ctx context.Context) (*database.Stats, error)
}

type Handlers struct {
	store  ProductStore
	logger *slog.Logger
}

func NewHandlers(store ProductStore, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:  store,
		logger: logger.With("component", "api"),
	}
}

// ProductListResponse wraps a product listing with the filter that produced it
type ProductListResponse struct {
	Count     int                     `json:"count"`
	MinRating float64                 `json:"min_rating,omitempty"`
	MaxPrice  int                     `json:"max_price,omitempty"`
	Products  []*models.StoredProduct `json:"products"`
}

// Health reports service liveness
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListProducts handles GET /api/v1/products?min_rating=&max_price=&limit=
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	products, err := h.store.ListProducts(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	h.respondJSON(w, http.StatusOK, ProductListResponse{
		Count:     len(products),
		MinRating: filter.MinRating,
		MaxPrice:  filter.MaxPrice,
		Products:  products,
	})
}

// GetProduct handles GET /api/v1/products/{articul}
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	articul := chi.URLParam(r, "articul")
	if articul == "" {
		h.respondError(w, http.StatusBadRequest, "articul is required")
		return
	}

	product, err := h.store.GetProduct(r.Context(), articul)
	if errors.Is(err, database.ErrProductNotFound) {
		h.respondError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "articul", articul)
		h.respondError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

// GetStats handles statistics retrieval
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to get stats", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	h.respondJSON(w, http.StatusOK, stats)
}

func parseFilter(r *http.Request) (database.ProductFilter, error) {
	var filter database.ProductFilter
	q := r.URL.Query()

	if v := q.Get("min_rating"); v != "" {
		rating, err := strconv.ParseFloat(v, 64)
		if err != nil || rating < 0 || rating > 5 {
			return filter, errors.New("min_rating must be a number between 0 and 5")
		}
		filter.MinRating = rating
	}

	if v := q.Get("max_price"); v != "" {
		price, err := strconv.Atoi(v)
		// zero means unbounded in ProductFilter
		if err != nil || price < 1 {
			return filter, errors.New("max_price must be a positive integer")
		}
		filter.MaxPrice = price
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return filter, errors.New("limit must be a positive integer")
		}
		filter.Limit = limit
	}

	return filter, nil
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
