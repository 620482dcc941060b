package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ID is an opaque annotation identity. Only equality is meaningful.
type ID string

type Category string

const (
	Morphological Category = "morphological" // number, tense
	Syntactic     Category = "syntactic"     // word order, clauses
	Lexical       Category = "lexical"       // wrong word
	Phonological  Category = "phonological"  // spelling
	Pragmatic     Category = "pragmatic"     // register, context
)

var Categories = []Category{Morphological, Syntactic, Lexical, Phonological, Pragmatic}

// ParseCategory accepts any casing and surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Hints disambiguate where a span sits in its text. Empty strings and a zero
// Occurrence mean "not given".
type Hints struct {
	Before     string `json:"before,omitempty"`
	After      string `json:"after,omitempty"`
	Occurrence int    `json:"occurrence,omitempty"` // 1-based
}

func (h *Hints) HasContext() bool {
	return h != nil && (h.Before != "" || h.After != "")
}

func (h *Hints) NthOccurrence() int {
	if h == nil || h.Occurrence < 1 {
		return 0
	}
	return h.Occurrence
}

// Annotation is one piece of feedback about a span of the learner's text.
// Values are never mutated in place; merging replaces two with a new one.
type Annotation struct {
	ID          ID       `json:"id"`
	Span        string   `json:"span"`
	Category    Category `json:"type"`
	Explanation string   `json:"explainZh"`
	Suggestion  string   `json:"suggestion,omitempty"`
	Hints       *Hints   `json:"hints,omitempty"`

	// Exact positions supplied by the correction backend, when it has them.
	OriginalRange  *Range `json:"originalRange,omitempty"`
	CorrectedRange *Range `json:"correctedRange,omitempty"`
}

// UnmarshalJSON accepts "suggestionRange" as an alias of "correctedRange".
func (a *Annotation) UnmarshalJSON(data []byte) error {
	type plain Annotation
	var wire struct {
		plain
		SuggestionRange *Range `json:"suggestionRange,omitempty"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*a = Annotation(wire.plain)
	if a.CorrectedRange == nil {
		a.CorrectedRange = wire.SuggestionRange
	}
	return nil
}

// WithoutRanges returns a copy with the explicit ranges dropped.
func (a Annotation) WithoutRanges() Annotation {
	a.OriginalRange = nil
	a.CorrectedRange = nil
	return a
}

// IndexOf returns the position of id in anns or -1.
func IndexOf(anns []Annotation, id ID) int {
	for i, a := range anns {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// Clone copies the slice and the hint/range pointers so callers can hand
// the result out without sharing state.
func Clone(anns []Annotation) []Annotation {
	if anns == nil {
		return nil
	}
	out := make([]Annotation, len(anns))
	for i, a := range anns {
		if a.Hints != nil {
			h := *a.Hints
			a.Hints = &h
		}
		if a.OriginalRange != nil {
			r := *a.OriginalRange
			a.OriginalRange = &r
		}
		if a.CorrectedRange != nil {
			r := *a.CorrectedRange
			a.CorrectedRange = &r
		}
		out[i] = a
	}
	return out
}
