// Package align maps annotations onto concrete character ranges of a text.
//
// All offsets are Unicode code point offsets. Nothing in this package keeps
// state between calls; every function is safe for concurrent use.
package align

import (
	"unicode"
	"unicode/utf8"

	"github.com/agenthands/redline/internal/core/model"
)

// Normalized is the comparison form of a text. Folding is one code point to
// one code point, so offsets in the normalized form are offsets in the
// original.
type Normalized []rune

// Normalize lower-cases text code point by code point. unicode.ToLower
// never expands a rune (unlike full case folding, which turns "ß" into
// "ss"), which keeps the offset map the identity.
func Normalize(text string) Normalized {
	out := make(Normalized, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		out = append(out, unicode.ToLower(r))
	}
	return out
}

// Original maps a normalized range back onto the source text of length n.
func (n Normalized) Original(r model.Range) (model.Range, bool) {
	if r.Lower < 0 || r.Upper > len(n) || r.Lower > r.Upper {
		return model.Range{}, false
	}
	return r, true
}

// Index returns the first occurrence of needle at or after from, or -1.
func (n Normalized) Index(needle Normalized, from int) int {
	if len(needle) == 0 || from < 0 {
		return -1
	}
	last := len(n) - len(needle)
	for i := from; i <= last; i++ {
		if n[i] != needle[0] {
			continue
		}
		match := true
		for j := 1; j < len(needle); j++ {
			if n[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// IndexIn searches for needle inside window only.
func (n Normalized) IndexIn(needle Normalized, window model.Range) (model.Range, bool) {
	if window.Lower < 0 || window.Upper > len(n) || window.Lower > window.Upper {
		return model.Range{}, false
	}
	i := n[:window.Upper].Index(needle, window.Lower)
	if i < 0 {
		return model.Range{}, false
	}
	return model.Range{Lower: i, Upper: i + len(needle)}, true
}

// Occurrences lists every non-overlapping occurrence of needle, left to right.
func (n Normalized) Occurrences(needle Normalized) []model.Range {
	var out []model.Range
	for from := 0; ; {
		i := n.Index(needle, from)
		if i < 0 {
			return out
		}
		out = append(out, model.Range{Lower: i, Upper: i + len(needle)})
		from = i + len(needle)
	}
}

// ByteOffsets converts a code point range of text to byte offsets. The
// result never splits a multi-byte sequence.
func ByteOffsets(text string, r model.Range) (int, int, bool) {
	if r.Lower < 0 || r.Lower > r.Upper {
		return 0, 0, false
	}
	lo, hi := -1, -1
	pos := 0
	for i := range text {
		if pos == r.Lower {
			lo = i
		}
		if pos == r.Upper {
			hi = i
			break
		}
		pos++
	}
	if lo < 0 && pos == r.Lower {
		lo = len(text)
	}
	if hi < 0 && pos == r.Upper {
		hi = len(text)
	}
	if lo < 0 || hi < 0 {
		return 0, 0, false
	}
	return lo, hi, true
}

// Slice returns the substring of text covered by r.
func Slice(text string, r model.Range) (string, bool) {
	lo, hi, ok := ByteOffsets(text, r)
	if !ok {
		return "", false
	}
	return text[lo:hi], true
}
