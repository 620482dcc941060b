package correction

import (
	"context"
	"fmt"

	"github.com/agenthands/redline/internal/core/common"
	"github.com/agenthands/redline/internal/core/model"
	"github.com/agenthands/redline/internal/llm"
)

// LLMMerger asks the model to fuse two annotations.
type LLMMerger struct {
	LLM    llm.LLMClient
	Prompt string
	NewID  func() model.ID
}

func NewLLMMerger(client llm.LLMClient, prompt string, newID func() model.ID) *LLMMerger {
	return &LLMMerger{
		LLM:    client,
		Prompt: prompt,
		NewID:  newID,
	}
}

func (m *LLMMerger) Merge(ctx context.Context, req model.MergeRequest) (model.Annotation, error) {
	if len(req.Annotations) != 2 {
		return model.Annotation{}, fmt.Errorf("merge needs exactly two annotations, got %d", len(req.Annotations))
	}

	inputs := make([]model.Annotation, len(req.Annotations))
	for i, a := range req.Annotations {
		inputs[i] = a.WithoutRanges()
	}
	prompt := fmt.Sprintf(m.Prompt, req.Source, req.Attempt, req.Corrected, annotationsJSON(inputs), req.Rationale)

	response, err := m.LLM.Generate(ctx, prompt)
	if err != nil {
		return model.Annotation{}, fmt.Errorf("failed to generate merge: %w", err)
	}

	wire, err := common.ParseJSON[struct {
		Error wireAnnotation `json:"error"`
	}](response)
	if err != nil {
		return model.Annotation{}, fmt.Errorf("failed to parse merge: %w", err)
	}

	merged, err := wire.Error.annotation(m.NewID())
	if err != nil {
		return model.Annotation{}, &InvalidCategoriesError{Invalid: []InvalidCategory{{Index: 0, Value: wire.Error.Type}}}
	}
	if merged.Span == "" {
		return model.Annotation{}, fmt.Errorf("merged annotation has an empty span")
	}
	return merged, nil
}
