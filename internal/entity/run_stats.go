package entity

import "time"

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "RUNNING"
	RunSucceeded RunStatus = "SUCCEEDED"
	RunFailed    RunStatus = "FAILED"
)

// RunStats is the single per-run counter record.
type RunStats struct {
	RunID          string     `json:"runId"`
	PagesProcessed int        `json:"pagesProcessed"`
	PagesFailed    int        `json:"pagesFailed"`
	RetriesIssued  int        `json:"retriesIssued"`
	StartedAt      time.Time  `json:"startedAt"`
	EndedAt        *time.Time `json:"endedAt,omitempty"`
	Status         RunStatus  `json:"status"`
	Error          string     `json:"error,omitempty"`
}

// RunResult is the summary stored under the CRAWLER_RESULT key.
type RunResult struct {
	Status            RunStatus `json:"status"`
	Error             string    `json:"error,omitempty"`
	PagesProcessed    int       `json:"pagesProcessed"`
	Errors            int       `json:"errors"`
	Retries           int       `json:"retries"`
	EndTime           time.Time `json:"endTime"`
	TotalPagesCrawled int       `json:"totalPagesCrawled"`
	FailedRequests    int       `json:"failedRequests"`
	CrawlingTime      *int64    `json:"crawlingTime,omitempty"` // milliseconds
}

// Summary derives the CRAWLER_RESULT record from finalized stats.
func (s RunStats) Summary() RunResult {
	r := RunResult{
		Status:            s.Status,
		Error:             s.Error,
		PagesProcessed:    s.PagesProcessed,
		Errors:            s.PagesFailed,
		Retries:           s.RetriesIssued,
		TotalPagesCrawled: s.PagesProcessed + s.PagesFailed,
		FailedRequests:    s.PagesFailed,
	}
	if s.EndedAt != nil {
		r.EndTime = *s.EndedAt
		if !s.StartedAt.IsZero() {
			ms := s.EndedAt.Sub(s.StartedAt).Milliseconds()
			r.CrawlingTime = &ms
		}
	}
	return r
}
