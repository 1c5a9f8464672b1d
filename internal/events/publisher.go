package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/wb-catalog-scraper/internal/models"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeProductScraped is published once per parsed product record
	EventTypeProductScraped EventType = "PRODUCT_SCRAPED"

	DefaultStream = "stream:wb_products"
	source        = "wb-product-parser"
)

// RedisClient is the subset of the redis client the publisher needs.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// ProductScrapedPayload is the JSON document carried in the stream entry's data field.
type ProductScrapedPayload struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	RunID     string          `json:"run_id"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	Product   *models.Product `json:"product"`
}

// Publisher appends product events to a Redis stream.
type Publisher struct {
	redis  RedisClient
	stream string
	now    func() time.Time
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &Publisher{
		redis:  client,
		stream: stream,
		now:    time.Now,
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishProductScraped adds one PRODUCT_SCRAPED entry and returns its event ID.
func (p *Publisher) PublishProductScraped(ctx context.Context, runID string, product *models.Product) (string, error) {
	payload := ProductScrapedPayload{
		EventID:   uuid.New().String(),
		EventType: string(EventTypeProductScraped),
		RunID:     runID,
		Timestamp: p.now().UTC(),
		Source:    source,
		Product:   product,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":         string(data),
			"event_type":   payload.EventType,
			"event_id":     payload.EventID,
			"aggregate_id": product.Key(),
			"run_id":       runID,
			"timestamp":    fmt.Sprintf("%d", payload.Timestamp.UnixNano()),
		},
	}

	if _, err := p.redis.XAdd(ctx, args).Result(); err != nil {
		return "", fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Debug("event published",
		"event_id", payload.EventID,
		"stream", p.stream,
		"aggregate_id", product.Key())

	return payload.EventID, nil
}

// PublishAll publishes every product and returns how many were accepted.
// A failed entry is logged; the rest are still attempted.
func (p *Publisher) PublishAll(ctx context.Context, runID string, products []*models.Product) int {
	published := 0
	for _, product := range products {
		if ctx.Err() != nil {
			break
		}
		if _, err := p.PublishProductScraped(ctx, runID, product); err != nil {
			p.logger.Error("failed to publish product event", "url", product.URL, "error", err)
			continue
		}
		published++
	}

	p.logger.Info("product events published", "published", published, "total", len(products), "stream", p.stream)
	return published
}
