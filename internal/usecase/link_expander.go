package usecase

import (
	"iter"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/bizanalyzer/internal/entity"
	"github.com/user/bizanalyzer/pkg/utils"
)

// DefaultExcludedExtensions are non-content resources never worth analyzing.
var DefaultExcludedExtensions = []string{"jpg", "jpeg", "png", "gif", "pdf", "doc", "docx", "zip"}

// LinkExpander finds same-origin content links on a rendered page.
type LinkExpander struct {
	excluded []string
}

// NewLinkExpander creates a LinkExpander with the given extension denylist.
func NewLinkExpander(excluded []string) *LinkExpander {
	if len(excluded) == 0 {
		excluded = DefaultExcludedExtensions
	}
	return &LinkExpander{excluded: excluded}
}

// Excluded reports whether u points at a denylisted resource type.
func (x *LinkExpander) Excluded(u *url.URL) bool {
	return utils.HasExtension(u, x.excluded)
}

// Expand yields absolute same-origin hyperlink targets in document order.
// The HTML is parsed lazily on first iteration. Duplicates are not filtered.
func (x *LinkExpander) Expand(pageURL string, page *entity.RenderedPage) iter.Seq[string] {
	return func(yield func(string) bool) {
		if page == nil || page.HTML == "" {
			return
		}
		base, err := utils.ParseAbsolute(pageURL)
		if err != nil {
			return
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
		if err != nil {
			return
		}
		origin := utils.Origin(base)

		doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			href = strings.TrimSpace(href)
			if href == "" || strings.HasPrefix(href, "#") {
				return true
			}
			abs, err := utils.ToAbsoluteURL(base, href)
			if err != nil {
				return true
			}
			target, err := utils.ParseAbsolute(abs)
			if err != nil || utils.Origin(target) != origin {
				return true
			}
			if x.Excluded(target) {
				return true
			}
			target.Fragment = ""
			target.RawFragment = ""
			return yield(target.String())
		})
	}
}
