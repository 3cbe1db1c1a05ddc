package llm

import (
	"context"
	"sync"
)

// Mock is a scripted LLM for tests. Respond decides the reply for each prompt;
// every prompt is recorded in order.
type Mock struct {
	Respond func(prompt string, params Params) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (m *Mock) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.Respond == nil {
		return "mock reply", nil
	}
	return m.Respond(prompt, params)
}

func (m *Mock) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
