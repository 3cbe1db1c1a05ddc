package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"growth-companion/internal/agents"
	"growth-companion/internal/analytics"
	"growth-companion/internal/chat"
	"growth-companion/internal/markdown"
	"growth-companion/internal/rag"
	"growth-companion/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SessionHeader = "X-Session-Id"

	maxSources           = 5
	defaultHistoryLimit  = 50
	defaultRecentQueries = 20
)

type ChatService struct {
	db        *gorm.DB
	companion *chat.Companion
	tracker   *analytics.Tracker
	// initErr explains why the agents could not be built, if they weren't.
	initErr error
}

func NewChatService(db *gorm.DB, companion *chat.Companion, tracker *analytics.Tracker, initErr error) *ChatService {
	return &ChatService{db: db, companion: companion, tracker: tracker, initErr: initErr}
}

func (s *ChatService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(s.Health))
	r.Get("/session", RestHandler(s.NewSession))
	r.Post("/chat", RestHandler(s.Chat))
	r.Post("/brief", RestHandler(s.Brief))
	r.Route("/sessions/{session_id}", func(r chi.Router) {
		r.Get("/history", RestHandler(s.GetHistory))
		r.Delete("/", RestHandler(s.ClearSession))
	})
	r.Get("/analytics", RestHandler(s.Analytics))
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func (s *ChatService) Health(r *http.Request) (any, error) {
	res := api.HealthResponse{
		Status:             api.StatusHealthy,
		RagInitialized:     s.companion.ResearcherReady(),
		CouncilInitialized: s.companion.CouncilReady(),
		BriefInitialized:   s.companion.StrategistReady(),
		Timestamp:          timestamp(),
	}

	if s.initErr != nil {
		msg := s.initErr.Error()
		res.Error = &msg
	}

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		slog.Error("database health check failed", "error", err)
		msg := err.Error()
		res.Status = api.StatusError
		res.Error = &msg
	}

	return res, nil
}

func (s *ChatService) NewSession(r *http.Request) (any, error) {
	session, err := chat.CreateSession(r.Context(), s.db)
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}
	return api.SessionResponse{SessionID: session.ID.String()}, nil
}

// requestSessionID prefers the body field over the header. Ids that are not
// uuids are dropped and a fresh session is started.
func requestSessionID(r *http.Request, req api.ChatRequest) uuid.NullUUID {
	raw := r.Header.Get(SessionHeader)
	if req.SessionID != nil && *req.SessionID != "" {
		raw = *req.SessionID
	}
	if raw == "" {
		return uuid.NullUUID{}
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		slog.Warn("ignoring invalid session id", "session_id", raw, "error", err)
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: id, Valid: true}
}

func (s *ChatService) Chat(r *http.Request) (any, error) {
	req, err := ParseRequest[api.ChatRequest](r)
	if err != nil {
		return nil, err
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "Message is required")
	}

	mode := chat.ModeKnowledgeBase
	if req.UseCouncil {
		mode = chat.ModeCouncil
	}

	out, err := s.companion.Ask(r.Context(), chat.AskInput{
		Message:   message,
		Mode:      mode,
		SessionID: requestSessionID(r, req),
	})
	if err != nil {
		return nil, s.agentError(err)
	}

	res := api.ChatResponse{
		Response:  out.Answer,
		HTML:      markdown.Format(out.Answer),
		Sources:   []api.Source{},
		Timestamp: timestamp(),
		SessionID: out.SessionID.String(),
	}

	if out.Mode == chat.ModeCouncil {
		res.Mentors = out.Mentors
		if req.ShowDeliberation {
			res.Deliberation = toDeliberation(out.Deliberation)
		}
	} else {
		res.Sources = toSources(out.Sources)
		res.ContextUsed = len(out.Sources)
	}

	return res, nil
}

func (s *ChatService) agentError(err error) error {
	if !errors.Is(err, chat.ErrNotInitialized) {
		return CodedError(http.StatusInternalServerError, err)
	}
	hint := "Create a .env file in the project root with your API keys."
	if s.initErr != nil {
		hint = s.initErr.Error()
	}
	return DetailedError(
		http.StatusInternalServerError,
		errors.New("Failed to initialize AI system"),
		"Please check that OPENAI_API_KEY is set in your .env file or environment variables.",
		hint,
	)
}

func (s *ChatService) Brief(r *http.Request) (any, error) {
	req, err := ParseRequest[api.BriefRequest](r)
	if err != nil {
		return nil, err
	}

	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "Topic is required")
	}

	brief, err := s.companion.Brief(r.Context(), topic)
	if err != nil {
		return nil, s.agentError(err)
	}

	return api.BriefResponse{
		Topic:     brief.Topic,
		Brief:     brief.Plan,
		HTML:      markdown.Format(brief.Plan),
		Sources:   toSources(brief.Evidence),
		Timestamp: timestamp(),
	}, nil
}

func toDeliberation(answers []agents.MentorAnswer) []api.MentorResponse {
	out := make([]api.MentorResponse, 0, len(answers))
	for _, answer := range answers {
		out = append(out, api.MentorResponse{
			Mentor:   answer.Mentor,
			Response: answer.Answer,
			Sources:  toSources(answer.Evidence),
		})
	}
	return out
}

func toSources(docs []rag.Document) []api.Source {
	sources := make([]api.Source, 0, min(len(docs), maxSources))
	for _, doc := range docs[:min(len(docs), maxSources)] {
		sources = append(sources, api.Source{Title: doc.Title(), Domain: doc.Domain()})
	}
	return sources
}

func (s *ChatService) GetHistory(r *http.Request) (any, error) {
	sessionID, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	params, err := ParseRequestQueryParams[api.HistoryParams](r)
	if err != nil {
		return nil, err
	}
	if params.Limit <= 0 {
		params.Limit = defaultHistoryLimit
	}

	if _, err := chat.GetSession(r.Context(), s.db, sessionID); err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "session %s not found", sessionID)
		}
		return nil, CodedError(http.StatusInternalServerError, err)
	}

	memory := s.companion.Memory(sessionID)
	exchanges, err := memory.History(r.Context(), params.Limit)
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}

	summary, err := memory.Summary(r.Context())
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}

	items := make([]api.ChatHistoryItem, 0, len(exchanges))
	for _, ex := range exchanges {
		items = append(items, api.ChatHistoryItem{
			Query:     ex.Query,
			Answer:    ex.Answer,
			Mode:      ex.Mode,
			Timestamp: ex.Timestamp.UTC().Format(time.RFC3339Nano),
			Metadata:  ex.Metadata,
		})
	}

	return api.HistoryResponse{SessionID: sessionID.String(), Summary: toSessionSummary(summary), Exchanges: items}, nil
}

func toSessionSummary(summary chat.Summary) api.SessionSummary {
	topics := make([]api.TopicCount, 0, len(summary.Preferences.CommonTopics))
	for _, topic := range summary.Preferences.CommonTopics {
		topics = append(topics, api.TopicCount{Topic: topic.Topic, Count: topic.Count})
	}

	out := api.SessionSummary{
		ExchangeCount: summary.ExchangeCount,
		Preferences:   api.Preferences{CommonTopics: topics},
	}
	if !summary.LastActivity.IsZero() {
		last := summary.LastActivity.UTC().Format(time.RFC3339Nano)
		out.LastActivity = &last
	}
	return out
}

func (s *ChatService) ClearSession(r *http.Request) (any, error) {
	sessionID, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	if err := s.companion.Memory(sessionID).Clear(r.Context()); err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}
	return nil, nil
}

func (s *ChatService) Analytics(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[api.AnalyticsParams](r)
	if err != nil {
		return nil, err
	}
	if params.Recent <= 0 {
		params.Recent = defaultRecentQueries
	}

	summary, err := s.tracker.Summary(r.Context(), params.Recent)
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}

	recent := make([]api.QueryLogItem, 0, len(summary.Recent))
	for _, log := range summary.Recent {
		item := api.QueryLogItem{
			Query:          log.Query,
			Mode:           log.Mode,
			ResponseTimeMs: log.ResponseTimeMs,
			ResultCount:    log.ResultCount,
			Timestamp:      log.Timestamp.UTC().Format(time.RFC3339Nano),
		}
		if log.SessionID.Valid {
			item.SessionID = log.SessionID.UUID.String()
		}
		recent = append(recent, item)
	}

	top := make([]api.QueryCount, 0, len(summary.TopQueries))
	for _, q := range summary.TopQueries {
		top = append(top, api.QueryCount{Query: q.Query, Count: q.Count})
	}

	return api.AnalyticsResponse{
		TotalQueries:      summary.TotalQueries,
		AvgResponseTimeMs: summary.AvgResponseTimeMs,
		UniqueQueries:     summary.UniqueQueries,
		ActiveSessions:    summary.ActiveSessions,
		KnowledgeGaps:     summary.KnowledgeGaps,
		SlowQueries:       summary.SlowQueries,
		TopQueries:        top,
		Recommendations:   summary.Recommendations,
		Recent:            recent,
	}, nil
}
