package usecase

import (
	"strconv"
	"strings"
	"time"

	"github.com/user/bizanalyzer/internal/entity"
)

// TextExtractor turns a rendered page into its normalized visible text.
type TextExtractor struct {
	now func() time.Time
}

// NewTextExtractor creates a TextExtractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{now: time.Now}
}

// Extract concatenates the trimmed text of visible nodes in document order,
// separated by single spaces. A page without visible text yields "".
func (e *TextExtractor) Extract(page *entity.RenderedPage) entity.ExtractedText {
	out := entity.ExtractedText{ExtractedAt: e.now()}
	if page == nil {
		return out
	}
	out.SourceURL = page.URL

	var b strings.Builder
	for _, node := range page.TextNodes {
		if !isVisible(node) {
			continue
		}
		text := strings.TrimSpace(node.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
	out.Text = b.String()
	return out
}

// isVisible applies the layout and style rules of the node's parent element.
func isVisible(node entity.TextNode) bool {
	if !node.HasParent || node.Height <= 0 {
		return false
	}
	if strings.EqualFold(node.Display, "none") {
		return false
	}
	switch strings.ToLower(node.Visibility) {
	case "hidden", "collapse":
		return false
	}
	if node.Opacity != "" {
		if o, err := strconv.ParseFloat(strings.TrimSpace(node.Opacity), 64); err == nil && o <= 0 {
			return false
		}
	}
	return true
}
