package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/redis/go-redis/v9"
)

// LinkStore persists the ordered list of product links between the two pipelines.
type LinkStore interface {
	Save(ctx context.Context, links []string) error
	Load(ctx context.Context) ([]string, error)
}

// FileLinkStore keeps links as a JSON array in a file.
type FileLinkStore struct {
	mu       sync.Mutex
	filename string
}

func NewFileLinkStore(filename string) *FileLinkStore {
	return &FileLinkStore{filename: filename}
}

func (s *FileLinkStore) Save(_ context.Context, links []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if links == nil {
		links = []string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(links); err != nil {
		return fmt.Errorf("failed to encode links: %w", err)
	}

	if dir := filepath.Dir(s.filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write to temp file first for atomicity
	tmpFile := s.filename + ".tmp"
	if err := os.WriteFile(tmpFile, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write links: %w", err)
	}

	if err := os.Rename(tmpFile, s.filename); err != nil {
		return fmt.Errorf("failed to replace links file: %w", err)
	}
	return nil
}

func (s *FileLinkStore) Load(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read links: %w", err)
	}

	var links []string
	if err := json.Unmarshal(data, &links); err != nil {
		return nil, fmt.Errorf("failed to decode links: %w", err)
	}
	return links, nil
}

func (s *FileLinkStore) String() string {
	return s.filename
}

// RedisClient is the subset of the Redis client used by RedisLinkStore.
type RedisClient interface {
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

// RedisLinkStore keeps links in a Redis list, replacing it on every save.
type RedisLinkStore struct {
	client RedisClient
	key    string
}

func NewRedisLinkStore(client RedisClient, key string) *RedisLinkStore {
	return &RedisLinkStore{client: client, key: key}
}

// Save replaces the list in a single MULTI/EXEC transaction.
func (s *RedisLinkStore) Save(ctx context.Context, links []string) error {
	values := make([]interface{}, len(links))
	for i, link := range links {
		values[i] = link
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.RPush(ctx, s.key, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace link list: %w", err)
	}
	return nil
}

func (s *RedisLinkStore) Load(ctx context.Context) ([]string, error) {
	links, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read link list: %w", err)
	}
	return links, nil
}

func (s *RedisLinkStore) String() string {
	return "redis:" + s.key
}
