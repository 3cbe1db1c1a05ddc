package agents

import (
	"context"
	"fmt"
	"strings"

	"growth-companion/internal/llm"
	"growth-companion/internal/rag"
)

const (
	synthesizerTemperature = 0.3
	criticTemperature      = 0.2
)

var PlanSections = []string{
	"Objective", "Core Insight", "Strategy", "Tactics", "Content Plan", "Offers", "KPIs", "Risks", "Next Steps",
}

// Synthesizer turns a research summary into a sectioned plan for the agency.
type Synthesizer struct {
	llm             llm.LLM
	businessContext string
}

func NewSynthesizer(model llm.LLM, businessContext string) *Synthesizer {
	if businessContext == "" {
		businessContext = DefaultBusinessContext
	}
	return &Synthesizer{llm: model, businessContext: businessContext}
}

func (s *Synthesizer) Synthesize(ctx context.Context, question, research string) (string, error) {
	prompt := fmt.Sprintf("You are a senior marketing strategist at GrowthBoss. "+
		"Blend the research with our context to produce a clear, actionable plan. "+
		"Return structured output with sections: %s.\n\n"+
		"GrowthBoss Context:\n%s\n\n"+
		"User Question:\n%s\n\n"+
		"Research Summary:\n%s\n\n"+
		"Now produce the plan:",
		strings.Join(PlanSections, ", "), s.businessContext, question, research)

	plan, err := s.llm.Generate(ctx, prompt, llm.Params{Temperature: synthesizerTemperature})
	if err != nil {
		return "", fmt.Errorf("error synthesizing plan: %w", err)
	}
	return strings.TrimSpace(plan), nil
}

// Critic reviews a plan and returns an improved version with the same
// structure.
type Critic struct {
	llm llm.LLM
}

func NewCritic(model llm.LLM) *Critic {
	return &Critic{llm: model}
}

func (c *Critic) Critique(ctx context.Context, plan string) (string, error) {
	prompt := "You are a rigorous marketing operator. Critique the plan. " +
		"Identify assumptions, missing steps, measurability, capacity constraints, and potential improvements. " +
		"Return an improved version preserving structure with explicit timelines and numeric KPIs where possible.\n\n" +
		"Plan to critique:\n" + plan + "\n\nImproved Plan:"

	improved, err := c.llm.Generate(ctx, prompt, llm.Params{Temperature: criticTemperature})
	if err != nil {
		return "", fmt.Errorf("error critiquing plan: %w", err)
	}
	return strings.TrimSpace(improved), nil
}

type Brief struct {
	Topic    string
	Plan     string
	Draft    string
	Evidence []rag.Document
}

// Strategist produces a strategic brief: research the topic, draft a plan
// from the findings, then have the critic tighten it.
type Strategist struct {
	researcher  *Researcher
	synthesizer *Synthesizer
	critic      *Critic
}

func NewStrategist(researcher *Researcher, synthesizer *Synthesizer, critic *Critic) *Strategist {
	return &Strategist{researcher: researcher, synthesizer: synthesizer, critic: critic}
}

func (s *Strategist) Brief(ctx context.Context, topic string) (Brief, error) {
	research, err := s.researcher.Research(ctx, topic, "")
	if err != nil {
		return Brief{}, err
	}

	draft, err := s.synthesizer.Synthesize(ctx, topic, research.Text)
	if err != nil {
		return Brief{}, err
	}

	plan, err := s.critic.Critique(ctx, draft)
	if err != nil {
		return Brief{}, err
	}

	return Brief{Topic: topic, Plan: plan, Draft: draft, Evidence: research.Evidence}, nil
}
