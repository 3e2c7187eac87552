// Package match implements the keyword rule shared by topic classification
// and per-recipient interest filters.
//
// A keyword matches when, compared case-insensitively, it occurs in the text
// starting at a word boundary. The keyword may end in the middle of a word:
// "fossil" matches "fossils" and "fossilized" but not "unfossiled".
package match

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Keywords reports whether text satisfies a keyword filter.
//
// A nil filter accepts everything, an empty non-nil filter accepts nothing.
func Keywords(text string, keywords []string) bool {
	if keywords == nil {
		return true
	}

	folder := cases.Fold()
	folded := folder.String(text)

	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if prefixAtWordStart(folded, folder.String(kw)) {
			return true
		}
	}

	return false
}

// Any reports whether any of the texts satisfies the filter.
func Any(keywords []string, texts ...string) bool {
	if keywords == nil {
		return true
	}
	for _, text := range texts {
		if Keywords(text, keywords) {
			return true
		}
	}
	return false
}

func prefixAtWordStart(text, kw string) bool {
	offset := 0
	for {
		idx := strings.Index(text[offset:], kw)
		if idx < 0 {
			return false
		}
		pos := offset + idx
		if pos == 0 {
			return true
		}
		prev, _ := utf8.DecodeLastRuneInString(text[:pos])
		if !isWordRune(prev) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[pos:])
		offset = pos + size
	}
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}
