package repository

import "context"

// VisitedRepository is the per-run seen-set keyed by canonical URL.
type VisitedRepository interface {
	// MarkVisited records url and reports whether it was new.
	MarkVisited(ctx context.Context, canonicalURL string) (bool, error)
}
