package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/bizanalyzer/internal/adapter/memory"
	"github.com/user/bizanalyzer/internal/entity"
	"github.com/user/bizanalyzer/internal/repository"
)

func TestQueueRepo_FIFOAndEmpty(t *testing.T) {
	ctx := context.Background()
	q := memory.NewQueueRepo()

	_, err := q.Pop(ctx)
	require.ErrorIs(t, err, entity.ErrQueueEmpty)

	for _, u := range []string{"https://a.example/1", "https://a.example/2", "https://a.example/3"} {
		require.NoError(t, q.Push(ctx, entity.NewCrawlRequest(u, u, "https://a.example")))
	}
	size, err := q.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), size)

	for _, want := range []string{"https://a.example/1", "https://a.example/2", "https://a.example/3"} {
		got, err := q.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got.URL)
	}
}

func TestVisitedRepo_ConcurrentMarkAddsOnce(t *testing.T) {
	ctx := context.Background()
	v := memory.NewVisitedRepo()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		added int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := v.MarkVisited(ctx, "https://a.example/")
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				added++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, added)
}

func TestBlobStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBlobStore()

	var out entity.RunResult
	require.ErrorIs(t, store.GetJSON(ctx, "run-1", repository.KeyCrawlerResult, &out), entity.ErrNotFound)

	require.NoError(t, store.PutJSON(ctx, "run-1", repository.KeyCrawlerResult, entity.RunResult{Status: entity.RunSucceeded, PagesProcessed: 2}))
	require.NoError(t, store.GetJSON(ctx, "run-1", repository.KeyCrawlerResult, &out))
	assert.Equal(t, entity.RunSucceeded, out.Status)
	assert.Equal(t, 2, out.PagesProcessed)

	require.NoError(t, store.PutBytes(ctx, "run-1", "screenshot-r1", []byte{0xff, 0xd8}, "image/jpeg"))
	data, contentType, err := store.GetBytes(ctx, "run-1", "screenshot-r1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, data)
	assert.Equal(t, "image/jpeg", contentType)

	_, _, err = store.GetBytes(ctx, "run-2", "screenshot-r1")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestResultSink_ListByRun(t *testing.T) {
	ctx := context.Background()
	sink := memory.NewResultSink()

	require.NoError(t, sink.Append(ctx, &entity.PageResult{RunID: "run-1", URL: "https://a.example/"}))
	require.NoError(t, sink.Append(ctx, &entity.PageResult{RunID: "run-2", URL: "https://b.example/"}))
	require.NoError(t, sink.Append(ctx, &entity.PageResult{RunID: "run-1", URL: "https://a.example/about"}))

	results, err := sink.ListByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://a.example/", results[0].URL)
	assert.Equal(t, "https://a.example/about", results[1].URL)
}

func TestFailedRequestRepo_ListByRun(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewFailedRequestRepo()

	require.NoError(t, repo.Save(ctx, &entity.FailedRequest{RunID: "run-1", RequestID: "r1", ErrorKind: "render_failed"}))

	failed, err := repo.ListByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "render_failed", failed[0].ErrorKind)

	failed, err = repo.ListByRun(ctx, "run-2")
	require.NoError(t, err)
	assert.Empty(t, failed)
}
