package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/maltedev/wb-catalog-scraper/internal/export"
	"github.com/maltedev/wb-catalog-scraper/internal/models"
)

var ErrProductNotFound = errors.New("product not found")

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

const schema = `
CREATE TABLE IF NOT EXISTS wb_products (
	product_key     TEXT PRIMARY KEY,
	articul         TEXT NOT NULL DEFAULT '',
	name            TEXT NOT NULL,
	price           TEXT NOT NULL,
	price_numeric   BIGINT NOT NULL DEFAULT 0,
	rating          DOUBLE PRECISION NOT NULL DEFAULT 0,
	reviews_count   INTEGER NOT NULL DEFAULT 0,
	description     TEXT NOT NULL DEFAULT '',
	images          TEXT NOT NULL DEFAULT '',
	characteristics TEXT NOT NULL DEFAULT '',
	seller_name     TEXT NOT NULL DEFAULT '',
	seller_url      TEXT NOT NULL DEFAULT '',
	url             TEXT NOT NULL,
	run_id          TEXT NOT NULL,
	scraped_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
ALTER TABLE wb_products ALTER COLUMN price_numeric TYPE BIGINT;
CREATE INDEX IF NOT EXISTS idx_wb_products_articul ON wb_products (articul);
CREATE INDEX IF NOT EXISTS idx_wb_products_rating_price ON wb_products (rating, price_numeric);`

const upsertProduct = `
INSERT INTO wb_products (
	product_key, articul, name, price, price_numeric, rating, reviews_count,
	description, images, characteristics, seller_name, seller_url, url, run_id, scraped_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (product_key) DO UPDATE SET
	articul = EXCLUDED.articul,
	name = EXCLUDED.name,
	price = EXCLUDED.price,
	price_numeric = EXCLUDED.price_numeric,
	rating = EXCLUDED.rating,
	reviews_count = EXCLUDED.reviews_count,
	description = EXCLUDED.description,
	images = EXCLUDED.images,
	characteristics = EXCLUDED.characteristics,
	seller_name = EXCLUDED.seller_name,
	seller_url = EXCLUDED.seller_url,
	url = EXCLUDED.url,
	run_id = EXCLUDED.run_id,
	scraped_at = EXCLUDED.scraped_at,
	updated_at = NOW()`

const productColumns = `name, price, rating, reviews_count, description, images, characteristics,
	seller_name, seller_url, url, articul, run_id, scraped_at, updated_at`

// ProductFilter narrows ListProducts. Zero MinRating and MaxPrice mean no bound,
// so callers must not pass a literal zero price ceiling.
type ProductFilter struct {
	MinRating float64
	MaxPrice  int
	Limit     int
}

// Stats summarizes the stored catalog.
type Stats struct {
	Total         int        `json:"total"`
	AverageRating float64    `json:"average_rating"`
	Runs          int        `json:"runs"`
	LastScrapedAt *time.Time `json:"last_scraped_at,omitempty"`
}

// ProductRepository persists parsed products in Postgres.
type ProductRepository struct {
	db  *DB
	now func() time.Time
}

func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db, now: time.Now}
}

// EnsureSchema creates the products table when it does not exist yet.
func (r *ProductRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveProducts upserts the records of one run in a single transaction.
func (r *ProductRepository) SaveProducts(ctx context.Context, runID string, products []*models.Product) error {
	if len(products) == 0 {
		return nil
	}

	scrapedAt := r.now().UTC()
	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(upsertProduct,
			p.Key(), p.Articul, p.Name, p.Price, export.NumericPrice(p.Price), p.Rating, p.ReviewsCount,
			p.Description, p.Images, p.Characteristics, p.SellerName, p.SellerURL, p.URL, runID, scrapedAt,
		)
	}

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to upsert products: %w", err)
		}
		return nil
	})
}

// ListProducts returns stored products, best rated first.
func (r *ProductRepository) ListProducts(ctx context.Context, filter ProductFilter) ([]*models.StoredProduct, error) {
	query, args := buildListQuery(filter)

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*models.StoredProduct{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, nil
}

// GetProduct returns the product with the given articul.
func (r *ProductRepository) GetProduct(ctx context.Context, articul string) (*models.StoredProduct, error) {
	query := `SELECT ` + productColumns + ` FROM wb_products WHERE articul = $1 ORDER BY updated_at DESC LIMIT 1`

	p, err := scanProduct(r.db.pool.QueryRow(ctx, query, articul))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProductRepository) Stats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT COUNT(*), COALESCE(AVG(rating), 0), COUNT(DISTINCT run_id), MAX(scraped_at)
		FROM wb_products`

	var stats Stats
	if err := r.db.pool.QueryRow(ctx, query).Scan(
		&stats.Total, &stats.AverageRating, &stats.Runs, &stats.LastScrapedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}

	return &stats, nil
}

func buildListQuery(filter ProductFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	if filter.MinRating > 0 {
		args = append(args, filter.MinRating)
		conditions = append(conditions, fmt.Sprintf("rating >= $%d", len(args)))
	}
	if filter.MaxPrice > 0 {
		args = append(args, filter.MaxPrice)
		conditions = append(conditions, fmt.Sprintf("price_numeric <= $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString("SELECT " + productColumns + " FROM wb_products")
	if len(conditions) > 0 {
		b.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}

	args = append(args, clampLimit(filter.Limit))
	fmt.Fprintf(&b, " ORDER BY rating DESC, product_key LIMIT $%d", len(args))

	return b.String(), args
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

func scanProduct(row pgx.Row) (*models.StoredProduct, error) {
	var p models.StoredProduct
	err := row.Scan(
		&p.Name, &p.Price, &p.Rating, &p.ReviewsCount, &p.Description, &p.Images, &p.Characteristics,
		&p.SellerName, &p.SellerURL, &p.URL, &p.Articul, &p.RunID, &p.ScrapedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	return &p, nil
}
