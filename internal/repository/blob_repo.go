package repository

import "context"

// Run-state keys.
const (
	KeyConfig        = "config"
	KeyCrawlerResult = "CRAWLER_RESULT"
)

// ScreenshotKey is the key of the screenshot stored for a request.
func ScreenshotKey(requestID string) string {
	return "screenshot-" + requestID
}

// BlobStore is the run-scoped key-value store.
type BlobStore interface {
	// PutJSON stores v encoded as JSON under key.
	PutJSON(ctx context.Context, runID, key string, v any) error
	// GetJSON decodes the value stored under key into v. It returns entity.ErrNotFound when absent.
	GetJSON(ctx context.Context, runID, key string, v any) error
	// PutBytes stores raw data, e.g. a screenshot.
	PutBytes(ctx context.Context, runID, key string, data []byte, contentType string) error
	// GetBytes returns raw data and its content type, or entity.ErrNotFound.
	GetBytes(ctx context.Context, runID, key string) ([]byte, string, error)
}
