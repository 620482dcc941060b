package correction

import (
	"context"
	"regexp"

	"github.com/agenthands/redline/internal/core/model"
)

// RuleCorrector is an offline corrector with a handful of fixed rules. It is
// used when no model is reachable and in demos.
type RuleCorrector struct {
	NewID func() model.ID
}

type rule struct {
	trigger     *regexp.Regexp // extra condition on the whole attempt, may be nil
	match       *regexp.Regexp
	span        string
	replacement string
	category    model.Category
	explanation string
	hints       *model.Hints
}

var rules = []rule{
	{
		trigger:     regexp.MustCompile(`(?i)\byesterday\b`),
		match:       regexp.MustCompile(`\bgo\b`),
		span:        "go",
		replacement: "went",
		category:    model.Morphological,
		explanation: "應使用過去式。",
		hints:       &model.Hints{Before: "I ", After: " to", Occurrence: 1},
	},
	{
		match:       regexp.MustCompile(`(?i)\bshop\b`),
		span:        "shop",
		replacement: "store",
		category:    model.Lexical,
		explanation: "在此語境更常用 store。",
		hints:       &model.Hints{Before: "the ", After: " "},
	},
	{
		match:       regexp.MustCompile(`(?i)\bfruits\b`),
		span:        "fruits",
		replacement: "fruit",
		category:    model.Pragmatic,
		explanation: "一般泛指時常用不可數名詞 fruit。",
		hints:       &model.Hints{Before: "some "},
	},
}

func (c *RuleCorrector) Correct(ctx context.Context, req model.CorrectionRequest) (*model.CorrectionResult, error) {
	corrected := req.Attempt
	var anns []model.Annotation
	for _, r := range rules {
		if r.trigger != nil && !r.trigger.MatchString(req.Attempt) {
			continue
		}
		if !r.match.MatchString(req.Attempt) {
			continue
		}
		hints := *r.hints
		anns = append(anns, model.Annotation{
			ID:          c.NewID(),
			Span:        r.span,
			Category:    r.category,
			Explanation: r.explanation,
			Suggestion:  r.replacement,
			Hints:       &hints,
		})
		corrected = replaceFirst(r.match, corrected, r.replacement)
	}

	score := 100 - 5*len(anns)
	if score < 60 {
		score = 60
	}
	return &model.CorrectionResult{Corrected: corrected, Score: score, Annotations: anns}, nil
}

func replaceFirst(re *regexp.Regexp, s, repl string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}
