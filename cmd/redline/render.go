package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/agenthands/redline/internal/core/align"
	"github.com/agenthands/redline/internal/core/model"
)

var categoryColors = map[model.Category]*color.Color{
	model.Morphological: color.New(color.FgRed, color.Bold),
	model.Syntactic:     color.New(color.FgYellow, color.Bold),
	model.Lexical:       color.New(color.FgMagenta, color.Bold),
	model.Phonological:  color.New(color.FgCyan, color.Bold),
	model.Pragmatic:     color.New(color.FgBlue, color.Bold),
}

// painter decorates a highlighted run of text.
type painter func(c model.Category, s string) string

func colorPainter(c model.Category, s string) string {
	if col, ok := categoryColors[c]; ok {
		return col.Sprint(s)
	}
	return s
}

// overlay paints every highlighted code point of text. Where highlights
// overlap the earlier one in hs wins.
func overlay(text string, hs []model.Highlight, paint painter) string {
	runes := []rune(text)
	owner := make([]int, len(runes))
	for i := range owner {
		owner[i] = -1
	}
	for i, h := range hs {
		if !h.Range.Within(len(runes)) {
			continue
		}
		for p := h.Range.Lower; p < h.Range.Upper; p++ {
			if owner[p] < 0 {
				owner[p] = i
			}
		}
	}

	var b strings.Builder
	for start := 0; start < len(runes); {
		end := start + 1
		for end < len(runes) && owner[end] == owner[start] {
			end++
		}
		run := string(runes[start:end])
		if owner[start] < 0 {
			b.WriteString(run)
		} else {
			b.WriteString(paint(hs[owner[start]].Category, run))
		}
		start = end
	}
	return b.String()
}

// legend lists the highlights of text, one per line, followed by the
// annotations that found no place in it.
func legend(w io.Writer, text string, anns []model.Annotation, hs []model.Highlight, paint painter) {
	placed := make(map[model.ID]bool, len(hs))
	for _, h := range hs {
		placed[h.ID] = true
		i := model.IndexOf(anns, h.ID)
		if i < 0 {
			continue
		}
		a := anns[i]
		got, _ := align.Slice(text, h.Range)
		line := fmt.Sprintf("  [%d,%d) %-13s %q", h.Range.Lower, h.Range.Upper, h.Category, got)
		if a.Suggestion != "" {
			line += fmt.Sprintf(" -> %q", a.Suggestion)
		}
		fmt.Fprintln(w, paint(h.Category, line))
	}
	for _, a := range anns {
		if !placed[a.ID] {
			fmt.Fprintf(w, "  (unplaced) %-13s %q\n", a.Category, a.Span)
		}
	}
}
