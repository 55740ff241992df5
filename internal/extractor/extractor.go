// Package extractor pulls the page title, the indexable body text and
// per-tag text buckets out of rendered page HTML using goquery.
package extractor

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	searchBegin = "<!--TYPO3SEARCH_begin-->"
	searchEnd   = "<!--TYPO3SEARCH_end-->"

	nonContentSelectors = "script, style, noscript, template"
)

// TagField is the text gathered for one tag bucket, stored under Name.
type TagField struct {
	Name string
	Text string
}

// Content is the result of extracting one page.
type Content struct {
	PageTitle        string
	IndexableContent string
	TagContent       []TagField
}

// tagBuckets lists document field names and the elements feeding them, in
// the order they are written to the document.
var tagBuckets = []struct {
	field    string
	selector string
}{
	{"tagsH1", "h1"},
	{"tagsH2H3", "h2, h3"},
	{"tagsH4H5H6", "h4, h5, h6"},
	{"tagsInline", "u, b, strong, i, em"},
	{"tagsA", "a"},
}

// HTMLExtractor is stateless and safe for concurrent use.
type HTMLExtractor struct {
	logger *slog.Logger
}

func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{logger: slog.Default().With("component", "content-extractor")}
}

// Extract never fails: markup that cannot be read yields empty content.
//
// When the page marks searchable regions with TYPO3SEARCH_begin/end
// comments only those regions are indexed, otherwise the whole body is.
func (e *HTMLExtractor) Extract(raw string) Content {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		e.logger.Warn("unreadable page content", "error", err, "size", len(raw))
		return Content{}
	}
	content := Content{
		PageTitle: normalizeSpace(doc.Find("title").First().Text()),
	}

	body := doc.Find("body").First()
	if regions := searchRegions(raw); regions != "" {
		fragment, err := goquery.NewDocumentFromReader(strings.NewReader(regions))
		if err != nil {
			e.logger.Warn("unreadable search region", "error", err)
			return content
		}
		body = fragment.Find("body").First()
	}
	body.Find(nonContentSelectors).Remove()

	content.IndexableContent = textOf(body)
	for _, bucket := range tagBuckets {
		var parts []string
		body.Find(bucket.selector).Each(func(_ int, s *goquery.Selection) {
			if text := textOf(s); text != "" {
				parts = append(parts, text)
			}
		})
		if len(parts) > 0 {
			content.TagContent = append(content.TagContent, TagField{Name: bucket.field, Text: strings.Join(parts, " ")})
		}
	}
	return content
}

// searchRegions concatenates the markup between every begin/end marker
// pair. An unterminated region runs to the end of the page.
func searchRegions(raw string) string {
	var b strings.Builder
	rest := raw
	for {
		start := strings.Index(rest, searchBegin)
		if start < 0 {
			break
		}
		rest = rest[start+len(searchBegin):]
		end := strings.Index(rest, searchEnd)
		if end < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:end])
		b.WriteByte(' ')
		rest = rest[end+len(searchEnd):]
	}
	return b.String()
}

// textOf joins the text nodes below s with single spaces so that adjacent
// block elements do not run their words together.
func textOf(s *goquery.Selection) string {
	var b strings.Builder
	collectText(s, &b)
	return normalizeSpace(b.String())
}

func collectText(s *goquery.Selection, b *strings.Builder) {
	s.Contents().Each(func(_ int, child *goquery.Selection) {
		switch goquery.NodeName(child) {
		case "#text":
			b.WriteString(child.Text())
			b.WriteByte(' ')
		case "#comment":
		default:
			collectText(child, b)
		}
	})
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
