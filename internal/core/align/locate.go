package align

import "github.com/agenthands/redline/internal/core/model"

// Locate finds the range ann.Span refers to inside haystack.
//
// Context hints win over the occurrence hint, which wins over the first
// literal match. When the before+span+after window is found the span is
// searched again inside the window; a window without the span is a miss, it
// never falls back to trimming the window by the context lengths.
func Locate(haystack Normalized, ann model.Annotation) (model.Range, bool) {
	span := Normalize(ann.Span)
	if len(span) == 0 {
		return model.Range{}, false
	}

	if ann.Hints.HasContext() {
		before := Normalize(ann.Hints.Before)
		after := Normalize(ann.Hints.After)
		needle := make(Normalized, 0, len(before)+len(span)+len(after))
		needle = append(needle, before...)
		needle = append(needle, span...)
		needle = append(needle, after...)

		if i := haystack.Index(needle, 0); i >= 0 {
			window := model.Range{Lower: i, Upper: i + len(needle)}
			inner, ok := haystack.IndexIn(span, window)
			if !ok {
				return model.Range{}, false
			}
			return haystack.Original(inner)
		}
	}

	if n := ann.Hints.NthOccurrence(); n > 0 {
		return nth(haystack, span, n)
	}

	i := haystack.Index(span, 0)
	if i < 0 {
		return model.Range{}, false
	}
	return haystack.Original(model.Range{Lower: i, Upper: i + len(span)})
}

// RangeOf locates a single annotation in text.
func RangeOf(text string, ann model.Annotation) (model.Range, bool) {
	return Locate(Normalize(text), ann)
}

func nth(haystack, needle Normalized, n int) (model.Range, bool) {
	count := 0
	for from := 0; ; {
		i := haystack.Index(needle, from)
		if i < 0 {
			return model.Range{}, false
		}
		count++
		if count == n {
			return haystack.Original(model.Range{Lower: i, Upper: i + len(needle)})
		}
		from = i + len(needle)
	}
}
