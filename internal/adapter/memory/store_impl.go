package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/user/bizanalyzer/internal/entity"
)

// BlobStoreImpl keeps run-state records in memory.
type BlobStoreImpl struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	types map[string]string
}

func NewBlobStore() *BlobStoreImpl {
	return &BlobStoreImpl{blobs: make(map[string][]byte), types: make(map[string]string)}
}

func blobKey(runID, key string) string {
	return runID + "/" + key
}

func (s *BlobStoreImpl) PutJSON(ctx context.Context, runID, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.PutBytes(ctx, runID, key, data, "application/json")
}

func (s *BlobStoreImpl) GetJSON(_ context.Context, runID, key string, v any) error {
	s.mu.RLock()
	data, ok := s.blobs[blobKey(runID, key)]
	s.mu.RUnlock()
	if !ok {
		return entity.ErrNotFound
	}
	return json.Unmarshal(data, v)
}

func (s *BlobStoreImpl) PutBytes(_ context.Context, runID, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := blobKey(runID, key)
	s.blobs[k] = append([]byte(nil), data...)
	s.types[k] = contentType
	return nil
}

func (s *BlobStoreImpl) GetBytes(_ context.Context, runID, key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k := blobKey(runID, key)
	data, ok := s.blobs[k]
	if !ok {
		return nil, "", entity.ErrNotFound
	}
	return append([]byte(nil), data...), s.types[k], nil
}

// ResultSinkImpl appends page results to a slice in arrival order.
type ResultSinkImpl struct {
	mu      sync.Mutex
	results []*entity.PageResult
}

func NewResultSink() *ResultSinkImpl {
	return &ResultSinkImpl{}
}

func (s *ResultSinkImpl) Append(_ context.Context, result *entity.PageResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *result
	s.results = append(s.results, &cp)
	return nil
}

func (s *ResultSinkImpl) ListByRun(_ context.Context, runID string) ([]*entity.PageResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.PageResult
	for _, r := range s.results {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}

// FailedRequestRepoImpl keeps terminal failures in memory.
type FailedRequestRepoImpl struct {
	mu     sync.Mutex
	failed []*entity.FailedRequest
}

func NewFailedRequestRepo() *FailedRequestRepoImpl {
	return &FailedRequestRepoImpl{}
}

func (r *FailedRequestRepoImpl) Save(_ context.Context, failed *entity.FailedRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *failed
	cp.ID = int64(len(r.failed) + 1)
	r.failed = append(r.failed, &cp)
	return nil
}

func (r *FailedRequestRepoImpl) ListByRun(_ context.Context, runID string) ([]*entity.FailedRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.FailedRequest
	for _, f := range r.failed {
		if f.RunID == runID {
			out = append(out, f)
		}
	}
	return out, nil
}
