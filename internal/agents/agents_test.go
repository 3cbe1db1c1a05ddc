package agents

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"growth-companion/internal/llm"
	"growth-companion/internal/rag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticRetriever struct {
	docs []rag.Document
	err  error

	mu sync.Mutex
	ks []int
}

func (s *staticRetriever) Search(ctx context.Context, query string, k int) ([]rag.Document, error) {
	s.mu.Lock()
	s.ks = append(s.ks, k)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.docs[:min(k, len(s.docs))], nil
}

func source(text, title, domain, src string) rag.Document {
	return rag.Document{Text: text, Metadata: map[string]any{"title": title, "domain": domain, "source": src}}
}

func TestDefaultPersonas(t *testing.T) {
	personas, err := LoadPersonas("")
	require.NoError(t, err)
	require.Len(t, personas, 3)

	assert.Equal(t, "Gary Vee", personas[0].Name)
	assert.Equal(t, "Alex Hormozi", personas[1].Name)
	assert.Equal(t, "Iman Gadzhi", personas[2].Name)
	assert.Equal(t, 0.7, personas[0].Temperature)
	assert.True(t, personas[1].Matches("", "https://acquisition.com/training"))
	assert.True(t, personas[0].Matches("GaryVaynerchuk.com", ""))
	assert.False(t, personas[2].Matches("hormozi.com", ""))
}

func TestLoadPersonasFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- name: Solo\n  persona: You are Solo.\n"), 0644))

	personas, err := LoadPersonas(path)
	require.NoError(t, err)
	require.Len(t, personas, 1)
	assert.Equal(t, "SOLO", personas[0].Heading)

	_, err = ParsePersonas([]byte("- name: Missing persona\n"))
	assert.Error(t, err)

	_, err = ParsePersonas([]byte("[]"))
	assert.Error(t, err)
}

func TestResearcherPrompt(t *testing.T) {
	retriever := &staticRetriever{docs: []rag.Document{
		source("Document, don't create.", "Content Model", "garyvaynerchuk.com", ""),
	}}
	mock := &llm.Mock{Respond: func(prompt string, params llm.Params) (string, error) {
		assert.Equal(t, 0.2, params.Temperature)
		return "Post daily.", nil
	}}

	answer, err := NewResearcher(retriever, mock, 0).Research(context.Background(), "How often should I post?", "Previous conversation:\n\n1. Q: hi\n   A: hello...\n")
	require.NoError(t, err)

	assert.Equal(t, "Post daily.", answer.Text)
	assert.Len(t, answer.Evidence, 1)
	assert.Equal(t, []int{12}, retriever.ks)

	prompt := mock.Prompts()[0]
	assert.True(t, strings.HasPrefix(prompt, "You are a marketing researcher"))
	assert.Contains(t, prompt, "Previous conversation:")
	assert.Contains(t, prompt, "[Source: Content Model | garyvaynerchuk.com]\nDocument, don't create.")
	assert.True(t, strings.HasSuffix(prompt, "Question: How often should I post?\n\nAnswer:"))
}

func TestResearcherRetrievalError(t *testing.T) {
	retriever := &staticRetriever{err: errors.New("ChromaDB unavailable")}

	_, err := NewResearcher(retriever, &llm.Mock{}, 0).Research(context.Background(), "q", "")
	assert.ErrorContains(t, err, "ChromaDB unavailable")
}

func TestCouncilDeliberation(t *testing.T) {
	personas, err := LoadPersonas("")
	require.NoError(t, err)

	retriever := &staticRetriever{docs: []rag.Document{
		source("offers", "Offers", "acquisition.com", "https://acquisition.com/offers"),
		source("content", "Content", "garyvaynerchuk.com", ""),
		source("generic", "Generic", "example.com", ""),
	}}
	mock := &llm.Mock{Respond: func(prompt string, params llm.Params) (string, error) {
		switch {
		case strings.HasPrefix(prompt, "You are Gary"):
			return "gary says", nil
		case strings.HasPrefix(prompt, "You are Alex"):
			return "alex says", nil
		case strings.HasPrefix(prompt, "You are Iman"):
			return "iman says", nil
		case strings.HasPrefix(prompt, "You are coordinating"):
			assert.Equal(t, 0.5, params.Temperature)
			return "synthesis", nil
		}
		return "", errors.New("unexpected prompt")
	}}

	council := NewCouncil(retriever, mock, personas, "")
	result, err := council.Deliberate(context.Background(), "How do I grow?")
	require.NoError(t, err)

	assert.Equal(t, "synthesis", result.Synthesis)
	assert.Equal(t, []string{"Gary Vee", "Alex Hormozi", "Iman Gadzhi"}, council.Mentors())
	require.Len(t, result.Mentors, 3)

	assert.Equal(t, "gary says", result.Mentors[0].Answer)
	require.Len(t, result.Mentors[0].Evidence, 1)
	assert.Equal(t, "content", result.Mentors[0].Evidence[0].Text)

	require.Len(t, result.Mentors[1].Evidence, 1)
	assert.Equal(t, "offers", result.Mentors[1].Evidence[0].Text)

	// no matching sources falls back to the top results
	assert.Len(t, result.Mentors[2].Evidence, 3)

	var synthesis string
	for _, p := range mock.Prompts() {
		if strings.HasPrefix(p, "You are coordinating") {
			synthesis = p
		}
	}
	assert.Contains(t, synthesis, "=== GARY VAYNERCHUK (Gary Vee) ===\ngary says")
	assert.Contains(t, synthesis, "=== IMAN GADZHI ===\niman says")
	assert.Contains(t, synthesis, DefaultBusinessContext)
	assert.Contains(t, synthesis, "**Implementation Priority**")

	for _, k := range retriever.ks {
		assert.Equal(t, 12, k)
	}
}

func TestCouncilMentorFailure(t *testing.T) {
	personas, err := LoadPersonas("")
	require.NoError(t, err)

	mock := &llm.Mock{Respond: func(prompt string, params llm.Params) (string, error) {
		if strings.HasPrefix(prompt, "You are Alex") {
			return "", errors.New("quota exceeded")
		}
		return "ok", nil
	}}

	_, err = NewCouncil(&staticRetriever{}, mock, personas, "ctx").Deliberate(context.Background(), "q")
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestStrategistBrief(t *testing.T) {
	retriever := &staticRetriever{docs: []rag.Document{
		source("Stack value until the offer is a no-brainer.", "Grand Slam Offers", "acquisition.com", ""),
	}}
	mock := &llm.Mock{Respond: func(prompt string, params llm.Params) (string, error) {
		switch {
		case strings.HasPrefix(prompt, "You are a marketing researcher"):
			assert.Equal(t, 0.2, params.Temperature)
			return "research notes", nil
		case strings.HasPrefix(prompt, "You are a senior marketing strategist"):
			assert.Equal(t, 0.3, params.Temperature)
			return "  draft plan  ", nil
		case strings.HasPrefix(prompt, "You are a rigorous marketing operator"):
			assert.Equal(t, 0.2, params.Temperature)
			return "improved plan\n", nil
		}
		return "", errors.New("unexpected prompt")
	}}

	strategist := NewStrategist(NewResearcher(retriever, mock, 0), NewSynthesizer(mock, ""), NewCritic(mock))
	brief, err := strategist.Brief(context.Background(), "Launch a webinar funnel")
	require.NoError(t, err)

	assert.Equal(t, "Launch a webinar funnel", brief.Topic)
	assert.Equal(t, "draft plan", brief.Draft)
	assert.Equal(t, "improved plan", brief.Plan)
	assert.Len(t, brief.Evidence, 1)

	prompts := mock.Prompts()
	require.Len(t, prompts, 3)
	assert.Contains(t, prompts[1], "sections: Objective, Core Insight, Strategy, Tactics, Content Plan, Offers, KPIs, Risks, Next Steps.")
	assert.Contains(t, prompts[1], DefaultBusinessContext)
	assert.Contains(t, prompts[1], "Research Summary:\nresearch notes")
	assert.Contains(t, prompts[2], "Plan to critique:\ndraft plan\n\nImproved Plan:")
}

func TestStrategistBriefStopsOnFailure(t *testing.T) {
	mock := &llm.Mock{Respond: func(prompt string, params llm.Params) (string, error) {
		if strings.HasPrefix(prompt, "You are a senior marketing strategist") {
			return "", errors.New("rate limited")
		}
		return "ok", nil
	}}

	strategist := NewStrategist(NewResearcher(&staticRetriever{}, mock, 0), NewSynthesizer(mock, "ctx"), NewCritic(mock))
	_, err := strategist.Brief(context.Background(), "topic")
	assert.ErrorContains(t, err, "rate limited")
	assert.Len(t, mock.Prompts(), 2)
}
