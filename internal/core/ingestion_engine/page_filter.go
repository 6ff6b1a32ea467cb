package ingestion_engine

import (
	"strings"
	"unicode/utf8"
)

// minPageChars is the trimmed length at or below which a page is treated as
// a header, a blank page or a figure caption.
const minPageChars = 50

// boilerplateKeywords mark administrative pages. Matching is substring
// containment on lower-cased text; "table of contents" is listed before
// "contents" so the reported reason is the more specific one.
var boilerplateKeywords = []string{
	"acknowledgment",
	"copyright",
	"table of contents",
	"contents",
	"index",
	"references",
	"bibliography",
	"glossary",
	"appendix",
}

// ClassifyPage decides whether a page belongs in the knowledge base.
// It returns false and a short reason for pages that should be dropped.
func ClassifyPage(text string) (relevant bool, reason string) {
	trimmed := strings.TrimSpace(text)
	if n := utf8.RuneCountInString(trimmed); n <= minPageChars {
		return false, "too short"
	}

	lower := strings.ToLower(trimmed)
	for _, kw := range boilerplateKeywords {
		if strings.Contains(lower, kw) {
			return false, "keyword: " + kw
		}
	}
	return true, ""
}
