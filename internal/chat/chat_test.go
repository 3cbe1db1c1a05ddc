package chat

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"growth-companion/internal/agents"
	"growth-companion/internal/analytics"
	"growth-companion/internal/database"
	"growth-companion/internal/rag"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createDB(t *testing.T) *gorm.DB {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	return db
}

func TestMemoryContext(t *testing.T) {
	db := createDB(t)
	memory := NewMemory(db, uuid.New())
	ctx := context.Background()

	text, err := memory.Context(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, text)

	require.NoError(t, memory.AddExchange(ctx, database.ModeKnowledgeBase, "first?", "short answer", nil))
	require.NoError(t, memory.AddExchange(ctx, database.ModeKnowledgeBase, "second?", strings.Repeat("x", 250), nil))

	text, err = memory.Context(ctx, 5)
	require.NoError(t, err)

	expected := "Previous conversation:\n" +
		"\n1. Q: first?\n   A: short answer...\n" +
		"\n2. Q: second?\n   A: " + strings.Repeat("x", 200) + "...\n"
	assert.Equal(t, expected, text)
}

func TestMemoryHistoryWindowAndClear(t *testing.T) {
	db := createDB(t)
	memory := NewMemory(db, uuid.New())
	ctx := context.Background()

	for _, q := range []string{"q1", "q2", "q3"} {
		require.NoError(t, memory.AddExchange(ctx, database.ModeCouncil, q, "a-"+q, map[string]any{"result_count": 2}))
	}

	history, err := memory.History(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "q2", history[0].Query)
	assert.Equal(t, "a-q3", history[1].Answer)
	assert.Equal(t, database.ModeCouncil, history[1].Mode)
	assert.Equal(t, float64(2), history[1].Metadata["result_count"])

	all, err := memory.History(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	session, err := GetSession(ctx, db, memory.SessionID())
	require.NoError(t, err)
	assert.True(t, session.LastActivity.Valid)

	require.NoError(t, memory.Clear(ctx))
	all, err = memory.History(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGetSessionNotFound(t *testing.T) {
	_, err := GetSession(context.Background(), createDB(t), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionCacheEvictsOldest(t *testing.T) {
	cache := NewSessionCache(nil, 2)

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	memA := cache.Get(a)
	cache.Get(b)
	assert.Same(t, memA, cache.Get(a))

	cache.Get(c)
	assert.Equal(t, 2, cache.Len())
	assert.Same(t, memA, cache.Get(a))
}

func TestSessionCacheEvictionWaitsForWrites(t *testing.T) {
	cache := NewSessionCache(nil, 1)

	memA := cache.Get(uuid.New())
	memA.mu.Lock()

	evicted := make(chan *Memory)
	go func() {
		evicted <- cache.Get(uuid.New())
	}()

	select {
	case <-evicted:
		t.Fatal("evicted a session while its memory was being written")
	case <-time.After(50 * time.Millisecond):
	}

	memA.mu.Unlock()
	select {
	case memB := <-evicted:
		assert.NotSame(t, memA, memB)
	case <-time.After(time.Second):
		t.Fatal("eviction did not finish after the write completed")
	}
	assert.Equal(t, 1, cache.Len())
}

func TestMemorySummary(t *testing.T) {
	db := createDB(t)
	memory := NewMemory(db, uuid.New())
	ctx := context.Background()

	summary, err := memory.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, memory.SessionID(), summary.SessionID)
	assert.Zero(t, summary.ExchangeCount)
	assert.True(t, summary.LastActivity.IsZero())
	assert.Empty(t, summary.Preferences.CommonTopics)

	for _, q := range []string{
		"How do I drive growth with content?",
		"Best content for SEO?",
		"Which ads convert?",
		"Content calendar ideas",
		"Marketing budget for ads",
	} {
		require.NoError(t, memory.AddExchange(ctx, database.ModeKnowledgeBase, q, "answer", nil))
	}

	summary, err = memory.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.ExchangeCount)
	assert.False(t, summary.LastActivity.IsZero())

	history, err := memory.History(ctx, 1)
	require.NoError(t, err)
	assert.True(t, history[0].Timestamp.Equal(summary.LastActivity))

	assert.Equal(t, []TopicCount{
		{Topic: "content", Count: 3},
		{Topic: "ads", Count: 2},
		{Topic: "growth", Count: 1},
		{Topic: "marketing", Count: 1},
		{Topic: "seo", Count: 1},
	}, summary.Preferences.CommonTopics)
}

type fakeResearcher struct {
	mu        sync.Mutex
	histories []string
	err       error
}

func (f *fakeResearcher) Research(ctx context.Context, question, history string) (agents.Answer, error) {
	f.mu.Lock()
	f.histories = append(f.histories, history)
	f.mu.Unlock()
	if f.err != nil {
		return agents.Answer{}, f.err
	}
	return agents.Answer{
		Text:     "answer to " + question,
		Evidence: []rag.Document{{Text: "ev", Metadata: map[string]any{"title": "T", "domain": "d.com"}}},
	}, nil
}

type fakeCouncil struct{}

func (fakeCouncil) Deliberate(ctx context.Context, question string) (agents.Deliberation, error) {
	return agents.Deliberation{
		Synthesis: "council on " + question,
		Mentors: []agents.MentorAnswer{
			{Mentor: "Gary Vee", Answer: "post more"},
			{Mentor: "Alex Hormozi", Answer: "better offer"},
		},
	}, nil
}

func (fakeCouncil) Mentors() []string {
	return []string{"Gary Vee", "Alex Hormozi", "Iman Gadzhi"}
}

type fakeTracker struct {
	entries []analytics.Entry
}

func (f *fakeTracker) Track(ctx context.Context, entry analytics.Entry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func TestCompanionKnowledgeBase(t *testing.T) {
	db := createDB(t)
	researcher := &fakeResearcher{}
	tracker := &fakeTracker{}
	companion := NewCompanion(db, Options{Researcher: researcher, Council: fakeCouncil{}, Tracker: tracker})
	ctx := context.Background()

	first, err := companion.Ask(ctx, AskInput{Message: "hello", Mode: ModeKnowledgeBase})
	require.NoError(t, err)
	assert.Equal(t, "answer to hello", first.Answer)
	assert.Equal(t, ModeKnowledgeBase, first.Mode)
	assert.Len(t, first.Sources, 1)
	assert.NotEqual(t, uuid.Nil, first.SessionID)

	second, err := companion.Ask(ctx, AskInput{Message: "again", Mode: ModeKnowledgeBase, SessionID: uuid.NullUUID{UUID: first.SessionID, Valid: true}})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	require.Len(t, researcher.histories, 2)
	assert.Empty(t, researcher.histories[0])
	assert.Contains(t, researcher.histories[1], "1. Q: hello\n   A: answer to hello...")

	require.Len(t, tracker.entries, 2)
	assert.Equal(t, 1, tracker.entries[0].ResultCount)
	assert.Equal(t, first.SessionID, tracker.entries[1].SessionID.UUID)
}

func TestCompanionCouncil(t *testing.T) {
	db := createDB(t)
	companion := NewCompanion(db, Options{Researcher: &fakeResearcher{}, Council: fakeCouncil{}})

	out, err := companion.Ask(context.Background(), AskInput{Message: "grow", Mode: ModeCouncil})
	require.NoError(t, err)

	assert.Equal(t, "council on grow", out.Answer)
	assert.Equal(t, []string{"Gary Vee", "Alex Hormozi", "Iman Gadzhi"}, out.Mentors)
	assert.Empty(t, out.Sources)
	require.Len(t, out.Deliberation, 2)
	assert.Equal(t, "Alex Hormozi", out.Deliberation[1].Mentor)
	assert.Equal(t, "better offer", out.Deliberation[1].Answer)

	history, err := companion.Memory(out.SessionID).History(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, database.ModeCouncil, history[0].Mode)
}

func TestCompanionNotInitialized(t *testing.T) {
	companion := NewCompanion(createDB(t), Options{})

	_, err := companion.Ask(context.Background(), AskInput{Message: "hi", Mode: ModeKnowledgeBase})
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = companion.Ask(context.Background(), AskInput{Message: "hi", Mode: ModeCouncil})
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = companion.Brief(context.Background(), "topic")
	assert.ErrorIs(t, err, ErrNotInitialized)

	assert.False(t, companion.ResearcherReady())
	assert.False(t, companion.CouncilReady())
	assert.False(t, companion.StrategistReady())
}

type fakeStrategist struct {
	err error
}

func (f fakeStrategist) Brief(ctx context.Context, topic string) (agents.Brief, error) {
	if f.err != nil {
		return agents.Brief{}, f.err
	}
	return agents.Brief{
		Topic:    topic,
		Plan:     "## Objective\nplan for " + topic,
		Evidence: []rag.Document{{Text: "ev"}, {Text: "ev2"}},
	}, nil
}

func TestCompanionBrief(t *testing.T) {
	tracker := &fakeTracker{}
	companion := NewCompanion(createDB(t), Options{Strategist: fakeStrategist{}, Tracker: tracker})
	assert.True(t, companion.StrategistReady())

	brief, err := companion.Brief(context.Background(), "webinar funnel")
	require.NoError(t, err)
	assert.Equal(t, "## Objective\nplan for webinar funnel", brief.Plan)

	require.Len(t, tracker.entries, 1)
	assert.Equal(t, database.ModeBrief, tracker.entries[0].Mode)
	assert.Equal(t, "webinar funnel", tracker.entries[0].Query)
	assert.Equal(t, 2, tracker.entries[0].ResultCount)
	assert.False(t, tracker.entries[0].SessionID.Valid)

	failing := NewCompanion(createDB(t), Options{Strategist: fakeStrategist{err: errors.New("quota exceeded")}, Tracker: tracker})
	_, err = failing.Brief(context.Background(), "x")
	assert.ErrorContains(t, err, "quota exceeded")
	assert.Len(t, tracker.entries, 1)
}

func TestCompanionResearchErrorIsNotSaved(t *testing.T) {
	db := createDB(t)
	companion := NewCompanion(db, Options{Researcher: &fakeResearcher{err: errors.New("ChromaDB unavailable")}})
	sessionID := uuid.New()

	_, err := companion.Ask(context.Background(), AskInput{Message: "hi", SessionID: uuid.NullUUID{UUID: sessionID, Valid: true}})
	assert.ErrorContains(t, err, "ChromaDB unavailable")

	history, err := companion.Memory(sessionID).History(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}
