// Package correction holds the collaborators that produce annotations and
// merged annotations.
package correction

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/agenthands/redline/internal/core/common"
	"github.com/agenthands/redline/internal/core/model"
	"github.com/agenthands/redline/internal/llm"
)

// Corrector reviews a learner's attempt.
type Corrector interface {
	Correct(ctx context.Context, req model.CorrectionRequest) (*model.CorrectionResult, error)
}

// InvalidCategory records one annotation whose type is outside the closed set.
type InvalidCategory struct {
	Index int    `json:"index"`
	Value string `json:"value"`
}

type InvalidCategoriesError struct {
	Invalid []InvalidCategory
}

func (e *InvalidCategoriesError) Error() string {
	parts := make([]string, 0, len(e.Invalid))
	for _, c := range e.Invalid {
		parts = append(parts, fmt.Sprintf("#%d=%q", c.Index, c.Value))
	}
	return "invalid annotation types: " + strings.Join(parts, ", ")
}

// wireAnnotation is what the model emits; the category is still free text.
type wireAnnotation struct {
	Span        string       `json:"span"`
	Type        string       `json:"type"`
	Explanation string       `json:"explainZh"`
	Suggestion  string       `json:"suggestion"`
	Hints       *model.Hints `json:"hints"`
}

type wireCorrection struct {
	Corrected string           `json:"corrected"`
	Score     int              `json:"score"`
	Errors    []wireAnnotation `json:"errors"`
}

type LLMCorrector struct {
	LLM    llm.LLMClient
	Prompt string
	NewID  func() model.ID
}

func NewLLMCorrector(client llm.LLMClient, prompt string, newID func() model.ID) *LLMCorrector {
	return &LLMCorrector{
		LLM:    client,
		Prompt: prompt,
		NewID:  newID,
	}
}

func (c *LLMCorrector) Correct(ctx context.Context, req model.CorrectionRequest) (*model.CorrectionResult, error) {
	prompt := fmt.Sprintf(c.Prompt, req.Source, req.Attempt, practiceContext(req))

	response, err := c.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate correction: %w", err)
	}

	wire, err := common.ParseJSON[wireCorrection](response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse correction: %w", err)
	}

	result := &model.CorrectionResult{
		Corrected:   wire.Corrected,
		Score:       clampScore(wire.Score),
		Annotations: make([]model.Annotation, 0, len(wire.Errors)),
	}
	var invalid []InvalidCategory
	for i, w := range wire.Errors {
		a, err := w.annotation(c.NewID())
		if err != nil {
			invalid = append(invalid, InvalidCategory{Index: i, Value: w.Type})
			continue
		}
		result.Annotations = append(result.Annotations, a)
	}
	if len(invalid) > 0 {
		return nil, &InvalidCategoriesError{Invalid: invalid}
	}
	return result, nil
}

// annotation validates the category and gives the record a server-side id.
// Positions guessed by the model are never trusted.
func (w wireAnnotation) annotation(id model.ID) (model.Annotation, error) {
	cat, err := model.ParseCategory(w.Type)
	if err != nil {
		return model.Annotation{}, err
	}
	hints := w.Hints
	if hints != nil && *hints == (model.Hints{}) {
		hints = nil
	}
	if hints != nil && hints.Occurrence < 0 {
		hints.Occurrence = 0
	}
	return model.Annotation{
		ID:          id,
		Span:        w.Span,
		Category:    cat,
		Explanation: w.Explanation,
		Suggestion:  w.Suggestion,
		Hints:       hints,
	}, nil
}

func practiceContext(req model.CorrectionRequest) string {
	var b strings.Builder
	if len(req.Hints) > 0 {
		b.WriteString("\nPractice hints shown to the learner:\n")
		for _, h := range req.Hints {
			fmt.Fprintf(&b, "- [%s] %s\n", h.Category, h.Text)
		}
	}
	if req.Suggestion != "" {
		fmt.Fprintf(&b, "\nInstructor's note:\n%s\n", req.Suggestion)
	}
	return b.String()
}

func clampScore(s int) int {
	switch {
	case s < 0:
		return 0
	case s > 100:
		return 100
	}
	return s
}

// FallbackCorrector tries Primary and, when allowed, answers from Fallback
// if Primary fails. ForceFallback skips Primary entirely.
type FallbackCorrector struct {
	Primary         Corrector
	Fallback        Corrector
	ForceFallback   bool
	FallbackOnError bool
}

func (f *FallbackCorrector) Correct(ctx context.Context, req model.CorrectionRequest) (*model.CorrectionResult, error) {
	if f.ForceFallback || f.Primary == nil {
		return f.Fallback.Correct(ctx, req)
	}
	res, err := f.Primary.Correct(ctx, req)
	if err == nil {
		return res, nil
	}
	if !f.FallbackOnError || f.Fallback == nil {
		return nil, err
	}
	log.Printf("Primary corrector failed, using fallback: %v", err)
	return f.Fallback.Correct(ctx, req)
}

func annotationsJSON(anns []model.Annotation) string {
	data, err := json.MarshalIndent(anns, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}
