package ingestion

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var reHTMLTag = regexp.MustCompile(`(?i)<(p|div|br|ul|ol|li|h[1-6]|span|strong|b|em|i|a|html|body|section|table|tr|td)\b[^>]*>`)

// LooksLikeHTML reports whether the text contains common HTML markup.
func LooksLikeHTML(s string) bool {
	return reHTMLTag.MatchString(s)
}

// NormalizeDescription turns a pasted job description into clean plain text. HTML input
// (copied from a job board) is flattened with list items rendered as "- " bullets and
// headings as "# " lines; plain text is only whitespace-normalized.
func NormalizeDescription(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	if !LooksLikeHTML(raw) {
		return CleanText(raw), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, nav, footer, header, form, button").Remove()

	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.SetText("\n# " + strings.TrimSpace(s.Text()) + "\n")
	})
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		s.SetText("- " + strings.TrimSpace(s.Text()) + "\n")
	})
	doc.Find("ul, ol").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("\n")
	})
	doc.Find("p, div, section, ul, ol, tr, table").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return CleanText(doc.Find("body").Text()), nil
}
