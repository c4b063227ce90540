package entity

import "time"

// PageResult is the record appended to the result sink for every processed page.
type PageResult struct {
	RunID        string           `json:"runId"`
	URL          string           `json:"url"`
	Analysis     BusinessAnalysis `json:"analysis"`
	Timestamp    time.Time        `json:"timestamp"`
	ScreenshotID string           `json:"screenshotId,omitempty"`
}

// FailedRequest mirrors the `failed_requests` table: one row per terminal failure.
type FailedRequest struct {
	ID                  int64     `json:"id"`
	RunID               string    `json:"runId"`
	RequestID           string    `json:"requestId"`
	URL                 string    `json:"url"`
	ErrorKind           string    `json:"errorKind"`
	FailureReason       string    `json:"failureReason"`
	AttemptCount        int       `json:"attemptCount"`
	TruncatedSourceText string    `json:"truncatedSourceText,omitempty"`
	LastAttemptAt       time.Time `json:"lastAttemptAt"`
}
