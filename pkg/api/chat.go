package api

type ChatRequest struct {
	Message    string  `json:"message"`
	UseCouncil bool    `json:"use_council"`
	SessionID  *string `json:"session_id"`
	// ShowDeliberation asks for each mentor's answer alongside the council
	// synthesis.
	ShowDeliberation bool `json:"show_deliberation,omitempty"`
}

type Source struct {
	Title  string `json:"title"`
	Domain string `json:"domain"`
}

type MentorResponse struct {
	Mentor   string   `json:"mentor"`
	Response string   `json:"response"`
	Sources  []Source `json:"sources"`
}

type ChatResponse struct {
	Response     string           `json:"response"`
	HTML         string           `json:"html,omitempty"`
	Sources      []Source         `json:"sources"`
	Mentors      []string         `json:"mentors,omitempty"`
	Deliberation []MentorResponse `json:"deliberation,omitempty"`
	ContextUsed  int              `json:"context_used,omitempty"`
	Timestamp    string           `json:"timestamp"`
	SessionID    string           `json:"session_id,omitempty"`
}

type BriefRequest struct {
	Topic string `json:"topic"`
}

type BriefResponse struct {
	Topic     string   `json:"topic"`
	Brief     string   `json:"brief"`
	HTML      string   `json:"html,omitempty"`
	Sources   []Source `json:"sources"`
	Timestamp string   `json:"timestamp"`
}

// ErrorResponse is the body of every non-2xx reply. Clients surface Error
// verbatim.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
}

const (
	StatusHealthy = "healthy"
	StatusError   = "error"
)

type HealthResponse struct {
	Status             string  `json:"status"`
	RagInitialized     bool    `json:"rag_initialized"`
	CouncilInitialized bool    `json:"council_initialized"`
	BriefInitialized   bool    `json:"brief_initialized"`
	Error              *string `json:"error"`
	Timestamp          string  `json:"timestamp"`
}

type HistoryParams struct {
	Limit int `schema:"limit"`
}

type ChatHistoryItem struct {
	Query     string         `json:"query"`
	Answer    string         `json:"answer"`
	Mode      string         `json:"mode"`
	Timestamp string         `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

type Preferences struct {
	CommonTopics []TopicCount `json:"common_topics"`
}

type SessionSummary struct {
	ExchangeCount int         `json:"exchange_count"`
	LastActivity  *string     `json:"last_activity"`
	Preferences   Preferences `json:"preferences"`
}

type HistoryResponse struct {
	SessionID string            `json:"session_id"`
	Summary   SessionSummary    `json:"summary"`
	Exchanges []ChatHistoryItem `json:"exchanges"`
}

type QueryLogItem struct {
	Query          string  `json:"query"`
	Mode           string  `json:"mode"`
	SessionID      string  `json:"session_id"`
	ResponseTimeMs float64 `json:"response_time_ms"`
	ResultCount    int     `json:"result_count"`
	Timestamp      string  `json:"timestamp"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

type AnalyticsResponse struct {
	TotalQueries      int64          `json:"total_queries"`
	AvgResponseTimeMs float64        `json:"avg_response_time_ms"`
	UniqueQueries     int64          `json:"unique_queries"`
	ActiveSessions    int64          `json:"active_sessions"`
	KnowledgeGaps     int64          `json:"knowledge_gaps"`
	SlowQueries       int64          `json:"slow_queries"`
	TopQueries        []QueryCount   `json:"top_queries"`
	Recommendations   []string       `json:"recommendations"`
	Recent            []QueryLogItem `json:"recent"`
}

type AnalyticsParams struct {
	Recent int `schema:"recent"`
}
