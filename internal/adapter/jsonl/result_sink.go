package jsonl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/user/bizanalyzer/internal/entity"
	"github.com/user/bizanalyzer/internal/repository"
)

// ResultSinkImpl streams every page result to w as one JSON line and forwards
// it to the wrapped sink, which keeps serving ListByRun.
type ResultSinkImpl struct {
	next repository.ResultSink

	mu  sync.Mutex
	enc *json.Encoder
}

var _ repository.ResultSink = (*ResultSinkImpl)(nil)

// NewResultSink writes results to w in arrival order.
func NewResultSink(w io.Writer, next repository.ResultSink) *ResultSinkImpl {
	return &ResultSinkImpl{next: next, enc: json.NewEncoder(w)}
}

// Append stores the result in the wrapped sink, then writes its line.
func (s *ResultSinkImpl) Append(ctx context.Context, result *entity.PageResult) error {
	if err := s.next.Append(ctx, result); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(result); err != nil {
		return fmt.Errorf("write result line: %w", err)
	}
	return nil
}

func (s *ResultSinkImpl) ListByRun(ctx context.Context, runID string) ([]*entity.PageResult, error) {
	return s.next.ListByRun(ctx, runID)
}
