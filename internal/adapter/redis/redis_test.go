package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/bizanalyzer/internal/adapter/redis"
	"github.com/user/bizanalyzer/internal/entity"
	"github.com/user/bizanalyzer/internal/repository"
)

func newClient(t *testing.T) *goredis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestQueueRepo_FIFO(t *testing.T) {
	ctx := context.Background()
	q := redis.NewQueueRepo(newClient(t), "run-1")

	_, err := q.Pop(ctx)
	require.ErrorIs(t, err, entity.ErrQueueEmpty)

	first := entity.NewCrawlRequest("https://a.example/", "https://a.example/", "https://a.example")
	second := entity.NewCrawlRequest("https://a.example/about", "https://a.example/about", "https://a.example")
	require.NoError(t, q.Push(ctx, first))
	require.NoError(t, q.Push(ctx, second))

	size, err := q.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), size)

	got, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, first.CanonicalURL, got.CanonicalURL)

	got, err = q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}

func TestQueueRepo_ScopedPerRun(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)
	a := redis.NewQueueRepo(client, "run-a")
	b := redis.NewQueueRepo(client, "run-b")

	require.NoError(t, a.Push(ctx, entity.NewCrawlRequest("https://a.example/", "https://a.example/", "https://a.example")))

	_, err := b.Pop(ctx)
	assert.ErrorIs(t, err, entity.ErrQueueEmpty)
}

func TestVisitedRepo_MarkVisited(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)
	v := redis.NewVisitedRepo(client, "run-1")

	added, err := v.MarkVisited(ctx, "https://a.example/")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = v.MarkVisited(ctx, "https://a.example/")
	require.NoError(t, err)
	assert.False(t, added)

	added, err = v.MarkVisited(ctx, "https://a.example/other")
	require.NoError(t, err)
	assert.True(t, added)

	other := redis.NewVisitedRepo(client, "run-2")
	added, err = other.MarkVisited(ctx, "https://a.example/")
	require.NoError(t, err)
	assert.True(t, added)
}

func TestBlobStore_JSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	var store repository.BlobStore = redis.NewBlobStore(newClient(t))

	var out entity.RunConfig
	err := store.GetJSON(ctx, "run-1", repository.KeyConfig, &out)
	require.ErrorIs(t, err, entity.ErrNotFound)

	in := entity.RunConfig{RunID: "run-1", MaxPagesToCrawl: 5, StartURLs: []string{"https://a.example/"}}
	require.NoError(t, store.PutJSON(ctx, "run-1", repository.KeyConfig, in))
	require.NoError(t, store.GetJSON(ctx, "run-1", repository.KeyConfig, &out))
	assert.Equal(t, in.RunID, out.RunID)
	assert.Equal(t, 5, out.MaxPagesToCrawl)
	assert.Equal(t, in.StartURLs, out.StartURLs)
}

func TestBlobStore_BytesRoundTrip(t *testing.T) {
	ctx := context.Background()
	var store repository.BlobStore = redis.NewBlobStore(newClient(t))
	key := repository.ScreenshotKey("r1")

	_, _, err := store.GetBytes(ctx, "run-1", key)
	require.ErrorIs(t, err, entity.ErrNotFound)

	require.NoError(t, store.PutBytes(ctx, "run-1", key, []byte{0xff, 0xd8, 0xff}, "image/jpeg"))
	data, contentType, err := store.GetBytes(ctx, "run-1", key)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)
	assert.Equal(t, "image/jpeg", contentType)
}
