package llm

import (
	"context"
)

// LLMClient produces a completion for a single prompt. Correction and merge
// prompts ask for a JSON object, so implementations request JSON output when
// the provider supports it.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
