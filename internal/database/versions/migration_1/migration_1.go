package migration_1

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Document backs the in-process vector store used when no chroma server is
// configured.
type Document struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Collection   string         `gorm:"index;not null"`
	Content      string         `gorm:"not null"`
	Metadata     datatypes.JSON `gorm:"type:jsonb"`
	Embedding    datatypes.JSON `gorm:"type:jsonb;not null"`
	CreationTime time.Time
}

func Migration(db *gorm.DB) error {
	if err := db.AutoMigrate(&Document{}); err != nil {
		return fmt.Errorf("Migration1 failed: %w", err)
	}
	return nil
}

func Rollback(db *gorm.DB) error {
	if err := db.Migrator().DropTable(&Document{}); err != nil {
		return fmt.Errorf("Rollback1 failed: %w", err)
	}
	return nil
}
