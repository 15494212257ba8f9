package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// searchKeyLen is how many leading characters of a value are used as
	// the page search key. Long values rarely survive OCR verbatim; a
	// short prefix is far more likely to match.
	searchKeyLen = 20
	// excerptLen is the length of the surrounding text returned for
	// human verification.
	excerptLen = 150
)

// Locate finds the first page containing a prefix of value and returns
// its 1-based page number plus a short excerpt starting at the match.
// The value is matched as a literal substring, case-insensitively.
// Returns ok=false for empty or null-sentinel values and for values not
// found on any page; the caller substitutes the Unknown/N-A sentinels.
func Locate(value string, pages []string) (pageNumber int, excerpt string, ok bool) {
	v := strings.TrimSpace(value)
	if v == "" || strings.EqualFold(v, NullValue) {
		return 0, "", false
	}

	key := strings.ToLower(prefixRunes(v, searchKeyLen))
	for i, page := range pages {
		idx := foldIndex(page, key)
		if idx < 0 {
			continue
		}
		// First matching page wins; later pages are never consulted.
		return i + 1, prefixRunes(page[idx:], excerptLen), true
	}

	return 0, "", false
}

// foldIndex returns the byte offset in s of the first case-insensitive
// occurrence of key (already lowercased), or -1. Lowercasing can change
// a rune's byte length (e.g. U+0130), so the match offset found in the
// lowered text is mapped back to the originating rune's offset in s.
func foldIndex(s, key string) int {
	var lowered strings.Builder
	lowered.Grow(len(s))
	offsets := make([]int, 0, len(s))
	for i, r := range s {
		lr := unicode.ToLower(r)
		lowered.WriteRune(lr)
		for n := utf8.RuneLen(lr); n > 0; n-- {
			offsets = append(offsets, i)
		}
	}

	idx := strings.Index(lowered.String(), key)
	if idx < 0 {
		return -1
	}
	return offsets[idx]
}

// prefixRunes returns the first n runes of s.
func prefixRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
