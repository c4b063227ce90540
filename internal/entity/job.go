package entity

import (
	"encoding/json"
	"time"
)

// StartURL accepts both `"https://..."` and `{"url": "https://..."}` in job input.
type StartURL struct {
	URL string `json:"url"`
}

func (s *StartURL) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		s.URL = plain
		return nil
	}
	type alias StartURL
	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*s = StartURL(obj)
	return nil
}

// JobInput is the resolved input of one run.
type JobInput struct {
	StartURLs          []StartURL `json:"startUrls"`
	MaxPagesToCrawl    int        `json:"maxPagesToCrawl"`
	IncludeScreenshots bool       `json:"includeScreenshots"`
}

// URLs flattens the start URLs.
func (in JobInput) URLs() []string {
	out := make([]string, 0, len(in.StartURLs))
	for _, s := range in.StartURLs {
		out = append(out, s.URL)
	}
	return out
}

// RunConfig is the snapshot stored under the `config` key at run start.
type RunConfig struct {
	RunID              string    `json:"runId"`
	MaxPagesToCrawl    int       `json:"maxPagesToCrawl"`
	IncludeScreenshots bool      `json:"includeScreenshots"`
	ProxyConfig        string    `json:"proxyConfig,omitempty"`
	StartTime          time.Time `json:"startTime"`
	StartURLs          []string  `json:"startUrls"`
}

// Prompt is one model completion request.
type Prompt struct {
	System string
	User   string
}
