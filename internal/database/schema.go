package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	MessageUser = "user"
	MessageAI   = "ai"
)

const (
	ModeKnowledgeBase = "knowledge-base"
	ModeCouncil       = "council"
	// ModeBrief only appears in the query log.
	ModeBrief = "brief"
)

type ChatSession struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title        string
	CreationTime time.Time
	LastActivity sql.NullTime

	History []ChatHistory `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

type ChatHistory struct {
	ID          uint      `gorm:"primaryKey"`
	SessionID   uuid.UUID `gorm:"type:uuid;index"`
	MessageType string    `gorm:"size:10;not null"` // 'user' or 'ai'
	Mode        string    `gorm:"size:20"`
	Content     string
	Timestamp   time.Time      `gorm:"autoCreateTime"`
	Metadata    datatypes.JSON `gorm:"type:jsonb"` // {"result_count": 12}
}

type QueryLog struct {
	ID             uint          `gorm:"primaryKey"`
	SessionID      uuid.NullUUID `gorm:"type:uuid;index"`
	Query          string
	Mode           string `gorm:"size:20"`
	ResponseTimeMs float64
	ResultCount    int
	Timestamp      time.Time `gorm:"autoCreateTime;index"`
}

type Document struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Collection   string         `gorm:"index;not null"`
	Content      string         `gorm:"not null"`
	Metadata     datatypes.JSON `gorm:"type:jsonb"`
	Embedding    datatypes.JSON `gorm:"type:jsonb;not null"` // [0.12, -0.3, …]
	CreationTime time.Time
}
