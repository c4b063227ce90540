package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/user/bizanalyzer/internal/entity"
)

// QueueRepoImpl provides a FIFO frontier using a Redis list scoped to one run.
type QueueRepoImpl struct {
	client *redis.Client
	key    string
}

// NewQueueRepo creates the frontier of runID.
func NewQueueRepo(client *redis.Client, runID string) *QueueRepoImpl {
	return &QueueRepoImpl{client: client, key: runKey(runID, "frontier")}
}

// Push adds a request to the left side of the list.
func (r *QueueRepoImpl) Push(ctx context.Context, req *entity.CrawlRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return r.client.LPush(ctx, r.key, payload).Err()
}

// Pop removes and returns the oldest request from the right side of the list.
func (r *QueueRepoImpl) Pop(ctx context.Context) (*entity.CrawlRequest, error) {
	payload, err := r.client.RPop(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, entity.ErrQueueEmpty
		}
		return nil, err
	}
	var req entity.CrawlRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &req, nil
}

// Size returns the current number of items in the queue.
func (r *QueueRepoImpl) Size(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, r.key).Result()
}
