package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const visitedTTL = 48 * time.Hour

// VisitedRepoImpl is the seen-set of one run stored as a Redis set of URL hashes.
type VisitedRepoImpl struct {
	client *redis.Client
	key    string
}

// NewVisitedRepo creates the seen-set of runID.
func NewVisitedRepo(client *redis.Client, runID string) *VisitedRepoImpl {
	return &VisitedRepoImpl{client: client, key: runKey(runID, "seen")}
}

// MarkVisited adds the URL hash; SADD reports 1 only for new members, so it is atomic.
func (r *VisitedRepoImpl) MarkVisited(ctx context.Context, canonicalURL string) (bool, error) {
	pipe := r.client.TxPipeline()
	added := pipe.SAdd(ctx, r.key, visitedMember(canonicalURL))
	pipe.Expire(ctx, r.key, visitedTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return added.Val() == 1, nil
}
