package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/wb-catalog-scraper/internal/models"
)

// MockRedisClient is a mock for Redis client
type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	mockArgs := m.Called(ctx, args)
	cmd := redis.NewStringCmd(ctx)
	if mockArgs.Get(0) != nil {
		cmd.SetErr(mockArgs.Error(0))
	} else {
		cmd.SetVal("1234567890-0")
	}
	return cmd
}

func testProduct(articul string) *models.Product {
	p := models.NewProduct("https://www.wildberries.ru/catalog/"+articul+"/detail.aspx", articul)
	p.Name = "Пальто шерстяное"
	p.Price = "8 990"
	p.Rating = 4.7
	return p
}

func TestPublishProductScraped(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("publishes to configured stream", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		pub := NewPublisher(mockRedis, "stream:test", slog.Default())
		pub.now = func() time.Time { return fixed }

		var captured *redis.XAddArgs
		mockRedis.On("XAdd", ctx, mock.AnythingOfType("*redis.XAddArgs")).
			Run(func(args mock.Arguments) { captured = args.Get(1).(*redis.XAddArgs) }).
			Return(nil)

		eventID, err := pub.PublishProductScraped(ctx, "run-1", testProduct("123"))
		require.NoError(t, err)
		assert.NotEmpty(t, eventID)

		require.NotNil(t, captured)
		assert.Equal(t, "stream:test", captured.Stream)

		values := captured.Values.(map[string]interface{})
		assert.Equal(t, "PRODUCT_SCRAPED", values["event_type"])
		assert.Equal(t, eventID, values["event_id"])
		assert.Equal(t, "123", values["aggregate_id"])
		assert.Equal(t, "run-1", values["run_id"])

		var payload ProductScrapedPayload
		require.NoError(t, json.Unmarshal([]byte(values["data"].(string)), &payload))
		assert.Equal(t, eventID, payload.EventID)
		assert.Equal(t, fixed, payload.Timestamp)
		assert.Equal(t, "Пальто шерстяное", payload.Product.Name)
		assert.Equal(t, 4.7, payload.Product.Rating)

		mockRedis.AssertExpectations(t)
	})

	t.Run("default stream", func(t *testing.T) {
		pub := NewPublisher(new(MockRedisClient), "", slog.Default())
		assert.Equal(t, DefaultStream, pub.stream)
	})

	t.Run("redis error", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		pub := NewPublisher(mockRedis, "", slog.Default())
		mockRedis.On("XAdd", ctx, mock.Anything).Return(errors.New("connection refused"))

		_, err := pub.PublishProductScraped(ctx, "run-1", testProduct("123"))
		assert.ErrorContains(t, err, "failed to publish to redis")
	})
}

func TestPublishAll(t *testing.T) {
	ctx := context.Background()
	mockRedis := new(MockRedisClient)
	pub := NewPublisher(mockRedis, "", slog.Default())

	mockRedis.On("XAdd", ctx, mock.MatchedBy(func(a *redis.XAddArgs) bool {
		return a.Values.(map[string]interface{})["aggregate_id"] == "2"
	})).Return(errors.New("boom"))
	mockRedis.On("XAdd", ctx, mock.Anything).Return(nil)

	n := pub.PublishAll(ctx, "run-1", []*models.Product{testProduct("1"), testProduct("2"), testProduct("3")})
	assert.Equal(t, 2, n)
	mockRedis.AssertNumberOfCalls(t, "XAdd", 3)
}
