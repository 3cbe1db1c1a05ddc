package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"growth-companion/internal/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultRetention = 1000

	// KnowledgeGapResults is the result count below which a query counts as a
	// knowledge gap.
	KnowledgeGapResults = 3
	SlowQueryMs         = 5000
	TopQueryLimit       = 5

	slowAverageMs     = 3000
	faqQueryThreshold = 100
	faqQueryChars     = 50
)

type Entry struct {
	Query        string
	Mode         string
	SessionID    uuid.NullUUID
	ResponseTime time.Duration
	ResultCount  int
}

type QueryCount struct {
	Query string
	Count int64
}

type Summary struct {
	TotalQueries      int64
	AvgResponseTimeMs float64
	UniqueQueries     int64
	ActiveSessions    int64
	KnowledgeGaps     int64
	SlowQueries       int64
	TopQueries        []QueryCount
	Recommendations   []string
	Recent            []database.QueryLog
}

// Tracker records per query latency and result counts. Only the newest
// retention entries are kept, and Summary aggregates over that window.
type Tracker struct {
	db        *gorm.DB
	retention int
}

func NewTracker(db *gorm.DB, retention int) *Tracker {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Tracker{db: db, retention: retention}
}

func (t *Tracker) Track(ctx context.Context, entry Entry) error {
	log := database.QueryLog{
		SessionID:      entry.SessionID,
		Query:          entry.Query,
		Mode:           entry.Mode,
		ResponseTimeMs: float64(entry.ResponseTime.Microseconds()) / 1000,
		ResultCount:    entry.ResultCount,
	}

	database.WriteMutex.Lock()
	defer database.WriteMutex.Unlock()

	return t.db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		if err := txn.Create(&log).Error; err != nil {
			slog.Error("error saving query log", "error", err)
			return fmt.Errorf("error saving query log: %w", err)
		}

		keep := txn.Model(&database.QueryLog{}).Select("id").Order("id DESC").Limit(t.retention)
		if err := txn.Where("id NOT IN (?)", keep).Delete(&database.QueryLog{}).Error; err != nil {
			slog.Error("error pruning query logs", "error", err)
			return fmt.Errorf("error pruning query logs: %w", err)
		}
		return nil
	})
}

func (t *Tracker) Summary(ctx context.Context, recent int) (Summary, error) {
	var agg struct {
		Total          int64
		Avg            float64
		UniqueQueries  int64
		ActiveSessions int64
		KnowledgeGaps  int64
		SlowQueries    int64
	}
	if err := t.db.WithContext(ctx).Model(&database.QueryLog{}).
		Select("COUNT(*) AS total, "+
			"COALESCE(AVG(response_time_ms), 0) AS avg, "+
			"COUNT(DISTINCT query) AS unique_queries, "+
			"COUNT(DISTINCT session_id) AS active_sessions, "+
			"COUNT(CASE WHEN result_count < ? THEN 1 END) AS knowledge_gaps, "+
			"COUNT(CASE WHEN response_time_ms > ? THEN 1 END) AS slow_queries",
			KnowledgeGapResults, SlowQueryMs).
		Scan(&agg).Error; err != nil {
		slog.Error("error aggregating query logs", "error", err)
		return Summary{}, fmt.Errorf("error aggregating query logs: %w", err)
	}

	top, err := t.TopQueries(ctx, TopQueryLimit)
	if err != nil {
		return Summary{}, err
	}

	var logs []database.QueryLog
	if recent > 0 {
		if err := t.db.WithContext(ctx).Order("id DESC").Limit(recent).Find(&logs).Error; err != nil {
			slog.Error("error loading recent query logs", "error", err)
			return Summary{}, fmt.Errorf("error loading recent query logs: %w", err)
		}
	}

	return Summary{
		TotalQueries:      agg.Total,
		AvgResponseTimeMs: agg.Avg,
		UniqueQueries:     agg.UniqueQueries,
		ActiveSessions:    agg.ActiveSessions,
		KnowledgeGaps:     agg.KnowledgeGaps,
		SlowQueries:       agg.SlowQueries,
		TopQueries:        top,
		Recommendations:   recommendations(agg.Total, agg.Avg, top),
		Recent:            logs,
	}, nil
}

// TopQueries returns the most frequent queries. Ties go to the query asked
// first.
func (t *Tracker) TopQueries(ctx context.Context, limit int) ([]QueryCount, error) {
	var top []QueryCount
	if err := t.db.WithContext(ctx).Model(&database.QueryLog{}).
		Select("query, COUNT(*) AS count").
		Group("query").
		Order("COUNT(*) DESC, MIN(id) ASC").
		Limit(limit).
		Scan(&top).Error; err != nil {
		slog.Error("error loading top queries", "error", err)
		return nil, fmt.Errorf("error loading top queries: %w", err)
	}
	return top, nil
}

func recommendations(total int64, avgMs float64, top []QueryCount) []string {
	recs := []string{}
	if avgMs > slowAverageMs {
		recs = append(recs, "Consider optimizing retrieval for faster responses")
	}
	if total > faqQueryThreshold && len(top) > 0 {
		query := []rune(top[0].Query)
		recs = append(recs, fmt.Sprintf("Most common query type: '%s...' - consider adding FAQ", string(query[:min(len(query), faqQueryChars)])))
	}
	return recs
}
