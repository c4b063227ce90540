package repository

import (
	"context"

	"github.com/user/bizanalyzer/internal/entity"
)

// QueueRepository defines the interface for the FIFO frontier of crawl requests.
type QueueRepository interface {
	// Push adds a request to the back of the queue.
	Push(ctx context.Context, req *entity.CrawlRequest) error
	// Pop removes and returns the request at the front of the queue.
	// It returns entity.ErrQueueEmpty when nothing is pending.
	Pop(ctx context.Context) (*entity.CrawlRequest, error)
	// Size returns the current number of items in the queue.
	Size(ctx context.Context) (int64, error)
}
