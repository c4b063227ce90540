package response

import "github.com/user/bizanalyzer/internal/entity"

// HealthResponse reports the state of each backing store.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// RunResultsResponse lists what a run produced.
type RunResultsResponse struct {
	RunID          string                  `json:"runId"`
	Results        []*entity.PageResult    `json:"results"`
	FailedRequests []*entity.FailedRequest `json:"failedRequests"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}
