package entity

import "github.com/google/uuid"

// CrawlRequest is a single URL travelling through the frontier.
// AttemptCount and SessionID are only changed by the retry policy.
type CrawlRequest struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	CanonicalURL string `json:"canonical_url"`
	OriginDomain string `json:"origin_domain"`
	AttemptCount int    `json:"attempt_count"`
	SessionID    string `json:"session_id,omitempty"` // empty means "any identity"
}

// NewCrawlRequest builds a fresh request with a random identity.
func NewCrawlRequest(rawURL, canonical, origin string) *CrawlRequest {
	return &CrawlRequest{
		ID:           uuid.NewString(),
		URL:          rawURL,
		CanonicalURL: canonical,
		OriginDomain: origin,
	}
}
