package agents

import (
	"context"
	"fmt"
	"strings"

	"growth-companion/internal/llm"
	"growth-companion/internal/rag"
)

const (
	DefaultResearchK      = 12
	researcherTemperature = 0.2
)

type Answer struct {
	Text     string
	Evidence []rag.Document
}

// Researcher answers from the knowledge base, grounding the reply in
// retrieved sources.
type Researcher struct {
	retriever rag.Retriever
	llm       llm.LLM
	k         int
}

func NewResearcher(retriever rag.Retriever, model llm.LLM, k int) *Researcher {
	if k <= 0 {
		k = DefaultResearchK
	}
	return &Researcher{retriever: retriever, llm: model, k: k}
}

// Research answers question. history is the rendered conversation so far and
// may be empty.
func (r *Researcher) Research(ctx context.Context, question, history string) (Answer, error) {
	evidence, err := r.retriever.Search(ctx, question, r.k)
	if err != nil {
		return Answer{}, fmt.Errorf("error retrieving context: %w", err)
	}

	parts := []string{
		"You are a marketing researcher analyzing teachings from Gary Vaynerchuk, Alex Hormozi, and Iman Gadzhi. " +
			"Summarize the most relevant insights to answer the user's question. " +
			"Cite sources inline as (source). Be concise and actionable.",
	}
	if history != "" {
		parts = append(parts, "\n"+history)
	}
	parts = append(parts, fmt.Sprintf("\nRetrieved Context:\n%s\n\nQuestion: %s\n\nAnswer:", rag.FormatContext(evidence, true), question))

	text, err := r.llm.Generate(ctx, strings.Join(parts, "\n"), llm.Params{Temperature: researcherTemperature})
	if err != nil {
		return Answer{}, err
	}

	return Answer{Text: text, Evidence: evidence}, nil
}
