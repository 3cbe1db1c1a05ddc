package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"growth-companion/internal/llm"
	"growth-companion/internal/rag"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultMentorK       = 6
	synthesisTemperature = 0.5

	DefaultBusinessContext = "Marketing agency focused on client acquisition, offer design, content-led inbound, outbound SDR support, profitable delivery SLAs."
)

type MentorAnswer struct {
	Mentor   string
	Answer   string
	Evidence []rag.Document
}

type Deliberation struct {
	Synthesis string
	Mentors   []MentorAnswer
}

// Council asks every mentor persona in parallel and merges their answers into
// a single recommendation for the agency.
type Council struct {
	retriever       rag.Retriever
	llm             llm.LLM
	personas        []Persona
	businessContext string
	k               int
}

func NewCouncil(retriever rag.Retriever, model llm.LLM, personas []Persona, businessContext string) *Council {
	if businessContext == "" {
		businessContext = DefaultBusinessContext
	}
	return &Council{
		retriever:       retriever,
		llm:             model,
		personas:        personas,
		businessContext: businessContext,
		k:               DefaultMentorK,
	}
}

func (c *Council) Mentors() []string {
	names := make([]string, len(c.personas))
	for i, p := range c.personas {
		names[i] = p.Name
	}
	return names
}

func (c *Council) Deliberate(ctx context.Context, question string) (Deliberation, error) {
	answers := make([]MentorAnswer, len(c.personas))

	g, gctx := errgroup.WithContext(ctx)
	for i, persona := range c.personas {
		g.Go(func() error {
			answer, err := c.consult(gctx, persona, question)
			if err != nil {
				return fmt.Errorf("mentor %s failed: %w", persona.Name, err)
			}
			answers[i] = answer
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Error("council deliberation failed", "error", err)
		return Deliberation{}, err
	}

	synthesis, err := c.llm.Generate(ctx, c.synthesisPrompt(question, answers), llm.Params{Temperature: synthesisTemperature})
	if err != nil {
		return Deliberation{}, fmt.Errorf("error synthesizing council answer: %w", err)
	}

	return Deliberation{Synthesis: synthesis, Mentors: answers}, nil
}

func (c *Council) consult(ctx context.Context, persona Persona, question string) (MentorAnswer, error) {
	ranked, err := c.retriever.Search(ctx, question, 2*c.k)
	if err != nil {
		return MentorAnswer{}, fmt.Errorf("error retrieving context: %w", err)
	}

	var evidence []rag.Document
	for _, doc := range ranked {
		if persona.Matches(doc.Domain(), doc.Source()) {
			evidence = append(evidence, doc)
			if len(evidence) == c.k {
				break
			}
		}
	}
	if len(evidence) == 0 {
		evidence = ranked[:min(c.k, len(ranked))]
	}

	prompt := fmt.Sprintf("%s\n\n"+
		"Answer the user's question from %s's perspective, drawing on the context below. %s\n\n"+
		"Context:\n%s\n\n"+
		"Question: %s\n\n"+
		"Answer as %s:",
		persona.Persona, persona.Name, persona.Guidance, rag.FormatContext(evidence, false), question, persona.Name)

	answer, err := c.llm.Generate(ctx, prompt, llm.Params{Temperature: persona.Temperature})
	if err != nil {
		return MentorAnswer{}, err
	}

	return MentorAnswer{Mentor: persona.Name, Answer: answer, Evidence: evidence}, nil
}

func (c *Council) synthesisPrompt(question string, answers []MentorAnswer) string {
	var b strings.Builder
	b.WriteString("You are coordinating a Marketing Council for GrowthBoss, a marketing agency. ")
	fmt.Fprintf(&b, "%d expert mentors have independently researched and answered the same question. ", len(answers))
	b.WriteString("Their responses are below.\n\n")
	b.WriteString("Your task:\n" +
		"1. Identify where they agree (consensus points)\n" +
		"2. Identify where they differ or complement each other (unique perspectives)\n" +
		"3. Synthesize the BEST answer that combines their wisdom\n" +
		"4. Provide actionable recommendations specific to GrowthBoss\n\n")
	fmt.Fprintf(&b, "GrowthBoss Context: %s\n\n", c.businessContext)
	fmt.Fprintf(&b, "Question: %s\n\n", question)

	for i, answer := range answers {
		fmt.Fprintf(&b, "=== %s ===\n%s\n\n", c.personas[i].Heading, answer.Answer)
	}

	b.WriteString("=== SYNTHESIS INSTRUCTIONS ===\n" +
		"Provide a structured synthesis:\n" +
		"1. **Executive Summary**: 2-3 sentence answer combining all perspectives\n" +
		"2. **Consensus Points**: Where all mentors agree\n" +
		"3. **Unique Perspectives**: What each mentor adds that others don't\n" +
		"4. **GrowthBoss Recommendation**: Specific, actionable steps for GrowthBoss\n" +
		"5. **Implementation Priority**: Ranked list of next steps\n\n" +
		"Format the synthesis clearly and make it immediately actionable.")
	return b.String()
}
