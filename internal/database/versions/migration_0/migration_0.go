package migration_0

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ChatSession struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title        string
	CreationTime time.Time
	LastActivity sql.NullTime
}

type ChatHistory struct {
	ID          uint      `gorm:"primaryKey"`
	SessionID   uuid.UUID `gorm:"type:uuid;index"`
	MessageType string    `gorm:"size:10;not null"`
	Mode        string    `gorm:"size:20"`
	Content     string
	Timestamp   time.Time      `gorm:"autoCreateTime"`
	Metadata    datatypes.JSON `gorm:"type:jsonb"`
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

func Migration(db *gorm.DB) error {
	if err := db.AutoMigrate(&ChatSession{}, &ChatHistory{}, &QueryLog{}); err != nil {
		return fmt.Errorf("initial migration failed: %w", err)
	}
	return nil
}
