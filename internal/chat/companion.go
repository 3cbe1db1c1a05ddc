package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"growth-companion/internal/agents"
	"growth-companion/internal/analytics"
	"growth-companion/internal/database"
	"growth-companion/internal/rag"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotInitialized = errors.New("AI system is not initialized")

type Mode string

const (
	ModeKnowledgeBase Mode = database.ModeKnowledgeBase
	ModeCouncil       Mode = database.ModeCouncil
)

type Researcher interface {
	Research(ctx context.Context, question, history string) (agents.Answer, error)
}

type Council interface {
	Deliberate(ctx context.Context, question string) (agents.Deliberation, error)
	Mentors() []string
}

type Strategist interface {
	Brief(ctx context.Context, topic string) (agents.Brief, error)
}

type QueryTracker interface {
	Track(ctx context.Context, entry analytics.Entry) error
}

type AskInput struct {
	Message   string
	Mode      Mode
	SessionID uuid.NullUUID
}

type AskOutput struct {
	Answer  string
	Mode    Mode
	Sources []rag.Document
	Mentors []string
	// Deliberation holds each mentor's answer for council replies.
	Deliberation []agents.MentorAnswer
	SessionID    uuid.UUID
}

type Options struct {
	Researcher      Researcher
	Council         Council
	Strategist      Strategist
	Tracker         QueryTracker
	MemoryExchanges int
	CacheSize       int
}

// Companion routes questions to the researcher or the council and keeps the
// per session conversation memory.
type Companion struct {
	db              *gorm.DB
	researcher      Researcher
	council         Council
	strategist      Strategist
	tracker         QueryTracker
	sessions        *SessionCache
	memoryExchanges int
}

func NewCompanion(db *gorm.DB, opts Options) *Companion {
	if opts.MemoryExchanges <= 0 {
		opts.MemoryExchanges = 5
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	return &Companion{
		db:              db,
		researcher:      opts.Researcher,
		council:         opts.Council,
		strategist:      opts.Strategist,
		tracker:         opts.Tracker,
		sessions:        NewSessionCache(db, opts.CacheSize),
		memoryExchanges: opts.MemoryExchanges,
	}
}

func (c *Companion) ResearcherReady() bool {
	return c.researcher != nil
}

func (c *Companion) CouncilReady() bool {
	return c.council != nil
}

func (c *Companion) StrategistReady() bool {
	return c.strategist != nil
}

func (c *Companion) Memory(sessionID uuid.UUID) *Memory {
	return c.sessions.Get(sessionID)
}

func (c *Companion) Ask(ctx context.Context, in AskInput) (*AskOutput, error) {
	sessionID := in.SessionID.UUID
	if !in.SessionID.Valid {
		sessionID = uuid.New()
	}
	memory := c.sessions.Get(sessionID)

	start := time.Now()

	var out *AskOutput
	var err error
	switch in.Mode {
	case ModeCouncil:
		out, err = c.askCouncil(ctx, in.Message)
	case ModeKnowledgeBase, "":
		out, err = c.askResearcher(ctx, memory, in.Message)
	default:
		return nil, fmt.Errorf("unknown mode '%s'", in.Mode)
	}
	if err != nil {
		return nil, err
	}
	out.SessionID = sessionID

	metadata := map[string]any{"result_count": len(out.Sources)}
	if len(out.Mentors) > 0 {
		metadata["mentors"] = out.Mentors
	}
	if err := memory.AddExchange(ctx, string(out.Mode), in.Message, out.Answer, metadata); err != nil {
		return nil, fmt.Errorf("error saving conversation: %w", err)
	}

	if c.tracker != nil {
		entry := analytics.Entry{
			Query:        in.Message,
			Mode:         string(out.Mode),
			SessionID:    uuid.NullUUID{UUID: sessionID, Valid: true},
			ResponseTime: time.Since(start),
			ResultCount:  len(out.Sources),
		}
		if err := c.tracker.Track(ctx, entry); err != nil {
			slog.Warn("failed to track query", "session_id", sessionID, "error", err)
		}
	}

	return out, nil
}

func (c *Companion) askResearcher(ctx context.Context, memory *Memory, message string) (*AskOutput, error) {
	if c.researcher == nil {
		return nil, ErrNotInitialized
	}

	history, err := memory.Context(ctx, c.memoryExchanges)
	if err != nil {
		slog.Warn("continuing without conversation context", "session_id", memory.SessionID(), "error", err)
		history = ""
	}

	answer, err := c.researcher.Research(ctx, message, history)
	if err != nil {
		return nil, err
	}

	return &AskOutput{Answer: answer.Text, Mode: ModeKnowledgeBase, Sources: answer.Evidence}, nil
}

func (c *Companion) askCouncil(ctx context.Context, message string) (*AskOutput, error) {
	if c.council == nil {
		return nil, ErrNotInitialized
	}

	result, err := c.council.Deliberate(ctx, message)
	if err != nil {
		return nil, err
	}

	return &AskOutput{
		Answer:       result.Synthesis,
		Mode:         ModeCouncil,
		Mentors:      c.council.Mentors(),
		Deliberation: result.Mentors,
	}, nil
}

// Brief runs the research, plan and critique pipeline for topic. Briefs are
// not part of any session's conversation memory.
func (c *Companion) Brief(ctx context.Context, topic string) (agents.Brief, error) {
	if c.strategist == nil {
		return agents.Brief{}, ErrNotInitialized
	}

	start := time.Now()
	brief, err := c.strategist.Brief(ctx, topic)
	if err != nil {
		return agents.Brief{}, err
	}

	if c.tracker != nil {
		entry := analytics.Entry{
			Query:        topic,
			Mode:         database.ModeBrief,
			ResponseTime: time.Since(start),
			ResultCount:  len(brief.Evidence),
		}
		if err := c.tracker.Track(ctx, entry); err != nil {
			slog.Warn("failed to track brief", "error", err)
		}
	}

	return brief, nil
}
