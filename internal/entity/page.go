package entity

import "time"

// TextNode is one DOM text node together with the layout of its parent element.
type TextNode struct {
	Text       string  `json:"text"`
	HasParent  bool    `json:"hasParent"`
	Height     float64 `json:"height"`
	Display    string  `json:"display"`
	Visibility string  `json:"visibility"`
	Opacity    string  `json:"opacity"`
}

// RenderedPage is what the renderer hands back for one successful navigation.
// It is owned by the worker that rendered it.
type RenderedPage struct {
	URL        string
	HTML       string
	TextNodes  []TextNode
	Screenshot []byte
	RenderedAt time.Time
}

// ExtractedText is the visible text of a page. It is never persisted on its own.
type ExtractedText struct {
	SourceURL   string
	Text        string
	ExtractedAt time.Time
}

// Session is the egress identity bound to one attempt.
type Session struct {
	ID        string
	ProxyURL  string
	UserAgent string
}
