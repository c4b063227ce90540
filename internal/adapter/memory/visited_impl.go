package memory

import (
	"context"
	"sync"
)

// VisitedRepoImpl is a seen-set kept in a map.
type VisitedRepoImpl struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewVisitedRepo() *VisitedRepoImpl {
	return &VisitedRepoImpl{seen: make(map[string]struct{})}
}

func (v *VisitedRepoImpl) MarkVisited(_ context.Context, canonicalURL string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.seen[canonicalURL]; ok {
		return false, nil
	}
	v.seen[canonicalURL] = struct{}{}
	return true, nil
}
