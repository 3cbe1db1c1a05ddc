package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"growth-companion/internal/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	contextAnswerChars = 200
	maxCommonTopics    = 5
)

// topicKeywords are matched against queries to find what a user keeps asking
// about.
var topicKeywords = []string{"growth", "marketing", "ads", "content", "seo", "retention", "conversion"}

type Exchange struct {
	Query     string
	Answer    string
	Mode      string
	Timestamp time.Time
	Metadata  map[string]any
}

type TopicCount struct {
	Topic string
	Count int
}

type Preferences struct {
	CommonTopics []TopicCount
}

type Summary struct {
	SessionID     uuid.UUID
	ExchangeCount int
	// LastActivity is the time of the latest exchange, zero for a new session.
	LastActivity time.Time
	Preferences  Preferences
}

// Memory is the persisted conversation of a single session. Writes through
// one Memory are serialized; SessionCache hands out one Memory per cached
// session.
type Memory struct {
	mu        sync.Mutex
	db        *gorm.DB
	sessionID uuid.UUID
}

func NewMemory(db *gorm.DB, sessionID uuid.UUID) *Memory {
	return &Memory{db: db, sessionID: sessionID}
}

func (m *Memory) SessionID() uuid.UUID {
	return m.sessionID
}

// Context renders the last maxExchanges exchanges for inclusion in a prompt.
// Answers are cut to 200 characters. It returns "" for a new session.
func (m *Memory) Context(ctx context.Context, maxExchanges int) (string, error) {
	exchanges, err := m.History(ctx, maxExchanges)
	if err != nil {
		return "", err
	}
	if len(exchanges) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("Previous conversation:\n")
	for i, ex := range exchanges {
		answer := []rune(ex.Answer)
		if len(answer) > contextAnswerChars {
			answer = answer[:contextAnswerChars]
		}
		fmt.Fprintf(&b, "\n%d. Q: %s\n   A: %s...\n", i+1, ex.Query, string(answer))
	}
	return b.String(), nil
}

func (m *Memory) AddExchange(ctx context.Context, mode, query, answer string, metadata map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := SaveExchange(ctx, m.db, m.sessionID, mode, query, answer, metadata); err != nil {
		slog.Error("error saving exchange", "session_id", m.sessionID, "error", err)
		return err
	}
	return nil
}

// History returns the most recent exchanges in chronological order. A limit
// of zero or less returns all of them.
func (m *Memory) History(ctx context.Context, limit int) ([]Exchange, error) {
	rows, err := GetChatHistory(ctx, m.db, m.sessionID)
	if err != nil {
		slog.Error("error loading chat history", "session_id", m.sessionID, "error", err)
		return nil, fmt.Errorf("error loading chat history: %w", err)
	}

	var exchanges []Exchange
	for i := 0; i < len(rows); i++ {
		if rows[i].MessageType != database.MessageUser {
			continue
		}
		ex := Exchange{Query: rows[i].Content, Mode: rows[i].Mode, Timestamp: rows[i].Timestamp}
		if i+1 < len(rows) && rows[i+1].MessageType == database.MessageAI {
			ai := rows[i+1]
			ex.Answer = ai.Content
			ex.Timestamp = ai.Timestamp
			if len(ai.Metadata) > 0 {
				if err := json.Unmarshal(ai.Metadata, &ex.Metadata); err != nil {
					slog.Warn("ignoring invalid exchange metadata", "session_id", m.sessionID, "error", err)
				}
			}
			i++
		}
		exchanges = append(exchanges, ex)
	}

	if limit > 0 && len(exchanges) > limit {
		exchanges = exchanges[len(exchanges)-limit:]
	}
	return exchanges, nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := DeleteHistory(ctx, m.db, m.sessionID); err != nil {
		slog.Error("error clearing chat history", "session_id", m.sessionID, "error", err)
		return fmt.Errorf("error clearing chat history: %w", err)
	}
	return nil
}

func (m *Memory) Summary(ctx context.Context) (Summary, error) {
	exchanges, err := m.History(ctx, 0)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		SessionID:     m.sessionID,
		ExchangeCount: len(exchanges),
		Preferences:   preferences(exchanges),
	}
	if len(exchanges) > 0 {
		summary.LastActivity = exchanges[len(exchanges)-1].Timestamp
	}
	return summary, nil
}

// preferences counts the queries mentioning each topic keyword and keeps the
// most frequent ones. Ties keep keyword order.
func preferences(exchanges []Exchange) Preferences {
	counts := make([]TopicCount, 0, len(topicKeywords))
	for _, keyword := range topicKeywords {
		n := 0
		for _, ex := range exchanges {
			if strings.Contains(strings.ToLower(ex.Query), keyword) {
				n++
			}
		}
		if n > 0 {
			counts = append(counts, TopicCount{Topic: keyword, Count: n})
		}
	}

	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	return Preferences{CommonTopics: counts[:min(len(counts), maxCommonTopics)]}
}
