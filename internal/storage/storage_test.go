package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFileLinkStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", "product_links.json")
	store := NewFileLinkStore(path)

	links := []string{
		"https://www.wildberries.ru/catalog/1/detail.aspx?targetUrl=SP&size=1",
		"https://www.wildberries.ru/catalog/2/detail.aspx",
		"https://www.wildberries.ru/catalog/1/detail.aspx?targetUrl=SP&size=1",
	}
	require.NoError(t, store.Save(ctx, links))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"https://www.wildberries.ru/catalog/2/detail.aspx\"")
	assert.Contains(t, string(data), "&size=1")

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, links, loaded)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileLinkStore_EmptyList(t *testing.T) {
	ctx := context.Background()
	store := NewFileLinkStore(filepath.Join(t.TempDir(), "links.json"))

	require.NoError(t, store.Save(ctx, nil))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestFileLinkStore_LoadErrors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	_, err := NewFileLinkStore(filepath.Join(dir, "missing.json")).Load(ctx)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"not": "a list"}`), 0o644))
	_, err = NewFileLinkStore(bad).Load(ctx)
	assert.Error(t, err)
}

type MockRedisClient struct {
	mock.Mock
	queued [][]string
}

// recordingPipe captures the commands a transaction queues.
type recordingPipe struct {
	redis.Pipeliner
	cmds [][]string
}

func (p *recordingPipe) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	p.cmds = append(p.cmds, append([]string{"del"}, keys...))
	return redis.NewIntCmd(ctx)
}

func (p *recordingPipe) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	cmd := []string{"rpush", key}
	for _, v := range values {
		cmd = append(cmd, v.(string))
	}
	p.cmds = append(p.cmds, cmd)
	return redis.NewIntCmd(ctx)
}

func (m *MockRedisClient) TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error) {
	args := m.Called(ctx)
	pipe := &recordingPipe{}
	if err := fn(pipe); err != nil {
		return nil, err
	}
	if err := args.Error(0); err != nil {
		return nil, err
	}
	m.queued = pipe.cmds
	return nil, nil
}

func (m *MockRedisClient) LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	args := m.Called(ctx, key, start, stop)
	cmd := redis.NewStringSliceCmd(ctx)
	if err := args.Error(1); err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(args.Get(0).([]string))
	}
	return cmd
}

func TestRedisLinkStore_Save(t *testing.T) {
	ctx := context.Background()
	client := new(MockRedisClient)
	store := NewRedisLinkStore(client, "wb:links")

	client.On("TxPipelined", ctx).Return(nil).Once()

	require.NoError(t, store.Save(ctx, []string{"a", "b", "a"}))
	client.AssertExpectations(t)
	assert.Equal(t, [][]string{
		{"del", "wb:links"},
		{"rpush", "wb:links", "a", "b", "a"},
	}, client.queued)
}

func TestRedisLinkStore_SaveEmptyOnlyResets(t *testing.T) {
	ctx := context.Background()
	client := new(MockRedisClient)
	store := NewRedisLinkStore(client, "wb:links")

	client.On("TxPipelined", ctx).Return(nil).Once()

	require.NoError(t, store.Save(ctx, nil))
	client.AssertExpectations(t)
	assert.Equal(t, [][]string{{"del", "wb:links"}}, client.queued)
}

func TestRedisLinkStore_Errors(t *testing.T) {
	ctx := context.Background()
	client := new(MockRedisClient)
	store := NewRedisLinkStore(client, "wb:links")

	client.On("TxPipelined", ctx).Return(errors.New("EXECABORT"))
	client.On("LRange", ctx, "wb:links", int64(0), int64(-1)).Return(nil, errors.New("connection refused"))

	err := store.Save(ctx, []string{"a"})
	assert.ErrorContains(t, err, "failed to replace link list")
	assert.Nil(t, client.queued)

	_, err = store.Load(ctx)
	assert.ErrorContains(t, err, "failed to read link list")
}

func TestRedisLinkStore_Load(t *testing.T) {
	ctx := context.Background()
	client := new(MockRedisClient)
	store := NewRedisLinkStore(client, "wb:links")

	client.On("LRange", ctx, "wb:links", int64(0), int64(-1)).Return([]string{"x", "y"}, nil)

	links, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, links)
}
