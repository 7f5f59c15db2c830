package pipeline

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// Source names the text a tag set was derived from.
type Source string

// Text sources in priority order.
const (
	SourceDescription   Source = "description"
	SourceMetaKeywords  Source = "meta_keywords"
	SourceOGDescription Source = "og_description"
	SourceArticle       Source = "article"
	SourceReadability   Source = "readability"
	SourceBody          Source = "body"
	SourceNone          Source = "none"
)

// articleSelectors are tried in order; the first with text wins.
var articleSelectors = []string{
	"article",
	`[itemprop="articleBody"]`,
	".article-body",
	".post-content",
	".entry-content",
	"main",
	"#content",
}

// extractText returns the first non-empty text source in html.
func extractText(html, pageURL string) (string, Source) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", SourceNone
	}

	if text := metaByName(doc, "keywords"); text != "" {
		return text, SourceMetaKeywords
	}
	if text := squash(doc.Find(`meta[property="og:description"]`).First().AttrOr("content", "")); text != "" {
		return text, SourceOGDescription
	}
	for _, sel := range articleSelectors {
		if text := squash(doc.Find(sel).First().Text()); text != "" {
			return text, SourceArticle
		}
	}
	if text := readableText(html, pageURL); text != "" {
		return text, SourceReadability
	}
	if text := squash(doc.Find("body").First().Text()); text != "" {
		return text, SourceBody
	}
	return "", SourceNone
}

func metaByName(doc *goquery.Document, name string) string {
	var content string
	doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(s.AttrOr("name", ""), name) {
			return true
		}
		content = squash(s.AttrOr("content", ""))
		return content == ""
	})
	return content
}

func readableText(html, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return ""
	}
	return squash(article.TextContent)
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
