package llm

import (
	"context"
	"errors"
)

var ErrEmptyCompletion = errors.New("llm returned no choices")

type Params struct {
	Temperature float64
	MaxTokens   int
}

// LLM is a single-prompt completion model. Implementations return the trimmed
// text of the first choice.
type LLM interface {
	Generate(ctx context.Context, prompt string, params Params) (string, error)
}
