package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/user/bizanalyzer/internal/entity"
)

const (
	fieldData        = "data"
	fieldContentType = "content_type"
)

// BlobStoreImpl stores run-state records as Redis hashes {data, content_type}.
type BlobStoreImpl struct {
	client *redis.Client
}

func NewBlobStore(client *redis.Client) *BlobStoreImpl {
	return &BlobStoreImpl{client: client}
}

func (s *BlobStoreImpl) PutJSON(ctx context.Context, runID, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.PutBytes(ctx, runID, key, data, "application/json")
}

func (s *BlobStoreImpl) GetJSON(ctx context.Context, runID, key string, v any) error {
	data, err := s.client.HGet(ctx, runKey(runID, key), fieldData).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entity.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *BlobStoreImpl) PutBytes(ctx context.Context, runID, key string, data []byte, contentType string) error {
	return s.client.HSet(ctx, runKey(runID, key), fieldData, data, fieldContentType, contentType).Err()
}

func (s *BlobStoreImpl) GetBytes(ctx context.Context, runID, key string) ([]byte, string, error) {
	fields, err := s.client.HGetAll(ctx, runKey(runID, key)).Result()
	if err != nil {
		return nil, "", err
	}
	data, ok := fields[fieldData]
	if !ok {
		return nil, "", entity.ErrNotFound
	}
	return []byte(data), fields[fieldContentType], nil
}
