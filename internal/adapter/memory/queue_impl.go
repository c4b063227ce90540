// Package memory holds process-local implementations of the repository
// interfaces, used for single-process runs and tests.
package memory

import (
	"context"
	"sync"

	"github.com/user/bizanalyzer/internal/entity"
)

// QueueRepoImpl is a FIFO frontier backed by a slice.
type QueueRepoImpl struct {
	mu    sync.Mutex
	items []*entity.CrawlRequest
}

// NewQueueRepo creates an empty queue.
func NewQueueRepo() *QueueRepoImpl {
	return &QueueRepoImpl{}
}

func (q *QueueRepoImpl) Push(_ context.Context, req *entity.CrawlRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	cp := *req
	q.items = append(q.items, &cp)
	return nil
}

func (q *QueueRepoImpl) Pop(_ context.Context) (*entity.CrawlRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, entity.ErrQueueEmpty
	}
	req := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return req, nil
}

func (q *QueueRepoImpl) Size(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.items)), nil
}
