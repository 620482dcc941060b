package align

import (
	"strings"

	"github.com/agenthands/redline/internal/core/model"
)

// ComputeHighlights projects annotations onto the learner's original text.
// Overlapping highlights are kept: several remarks about the same words are
// all valid there. An explicit OriginalRange is trusted when it fits the text.
func ComputeHighlights(text string, anns []model.Annotation) []model.Highlight {
	if text == "" {
		return []model.Highlight{}
	}
	base := Normalize(text)
	out := make([]model.Highlight, 0, len(anns))
	for _, a := range anns {
		if a.OriginalRange != nil {
			if a.OriginalRange.Within(len(base)) {
				out = append(out, highlight(a, *a.OriginalRange))
			}
			continue
		}
		if r, ok := Locate(base, a); ok {
			out = append(out, highlight(a, r))
		}
	}
	return out
}

// ComputeHighlightsInCorrected projects annotations onto the corrected text.
// Only annotations with a suggestion take part and the result never contains
// two intersecting ranges. Annotations are placed in input order; each takes
// its hinted occurrence of the suggestion if that is free, otherwise the
// first free occurrence, otherwise nothing.
func ComputeHighlightsInCorrected(text string, anns []model.Annotation) []model.Highlight {
	if text == "" {
		return []model.Highlight{}
	}
	base := Normalize(text)
	var claimed Claimed
	out := make([]model.Highlight, 0, len(anns))
	for _, a := range anns {
		if a.Suggestion == "" {
			continue
		}
		if a.CorrectedRange != nil {
			if a.CorrectedRange.Within(len(base)) && claimed.Claim(*a.CorrectedRange) {
				out = append(out, highlight(a, *a.CorrectedRange))
			}
			continue
		}
		for _, r := range suggestionCandidates(base, a) {
			if claimed.Claim(r) {
				out = append(out, highlight(a, r))
				break
			}
		}
	}
	return out
}

// SuggestionRange locates ann's suggestion in corrected text, ignoring every
// other annotation.
func SuggestionRange(text string, ann model.Annotation) (model.Range, bool) {
	cands := suggestionCandidates(Normalize(text), ann)
	if len(cands) == 0 {
		return model.Range{}, false
	}
	return cands[0], true
}

// suggestionCandidates lists the ranges the suggestion may occupy, most
// preferred first.
func suggestionCandidates(base Normalized, ann model.Annotation) []model.Range {
	needle := Normalize(ann.Suggestion)
	if len(needle) == 0 {
		return nil
	}
	all := base.Occurrences(needle)
	n := ann.Hints.NthOccurrence()
	if n == 0 || n > len(all) {
		return all
	}
	out := make([]model.Range, 0, len(all))
	out = append(out, all[n-1])
	for i, r := range all {
		if i != n-1 {
			out = append(out, r)
		}
	}
	return out
}

// FilterByCategory keeps the highlights of one category. An empty category
// keeps everything.
func FilterByCategory(hs []model.Highlight, c model.Category) []model.Highlight {
	out := make([]model.Highlight, 0, len(hs))
	for _, h := range hs {
		if c == "" || h.Category == c {
			out = append(out, h)
		}
	}
	return out
}

// ApplySuggestion rewrites text with ann's suggestion in place of its span.
func ApplySuggestion(text string, ann model.Annotation) (string, bool) {
	if ann.Suggestion == "" {
		return text, false
	}
	r, ok := RangeOf(text, ann)
	if !ok {
		return text, false
	}
	lo, hi, ok := ByteOffsets(text, r)
	if !ok {
		return text, false
	}
	var b strings.Builder
	b.Grow(len(text) - (hi - lo) + len(ann.Suggestion))
	b.WriteString(text[:lo])
	b.WriteString(ann.Suggestion)
	b.WriteString(text[hi:])
	return b.String(), true
}

func highlight(a model.Annotation, r model.Range) model.Highlight {
	return model.Highlight{ID: a.ID, Range: r, Category: a.Category}
}
