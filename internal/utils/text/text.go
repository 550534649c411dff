// Package text reduces remote markup to the plain strings stored and returned
// for news items.
package text

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripHTML returns the visible text of an HTML fragment with whitespace
// collapsed. Input without markup is only normalized. If the fragment cannot
// be parsed the normalized input is returned unchanged.
func StripHTML(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if !strings.ContainsAny(trimmed, "<&") {
		return NormalizeWhitespace(trimmed)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		return NormalizeWhitespace(trimmed)
	}
	doc.Find("script, style, noscript").Remove()
	return NormalizeWhitespace(doc.Text())
}

// NormalizeWhitespace collapses runs of whitespace into single spaces.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
