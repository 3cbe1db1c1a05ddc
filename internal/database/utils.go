package database

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SQLite only supports one writer at a time, so every write path takes this
// lock. It is not reentrant.
var WriteMutex sync.Mutex

func TouchSession(ctx context.Context, txn *gorm.DB, sessionId uuid.UUID) error {
	if err := txn.WithContext(ctx).Model(&ChatSession{ID: sessionId}).Update("last_activity", time.Now().UTC()).Error; err != nil {
		slog.Error("error updating session activity", "session_id", sessionId, "error", err)
		return err
	}
	return nil
}

// EnsureSession creates the session row if it does not exist yet.
func EnsureSession(ctx context.Context, txn *gorm.DB, sessionId uuid.UUID) error {
	session := ChatSession{ID: sessionId, CreationTime: time.Now().UTC()}
	if err := txn.WithContext(ctx).Where(ChatSession{ID: sessionId}).FirstOrCreate(&session).Error; err != nil {
		slog.Error("error ensuring chat session", "session_id", sessionId, "error", err)
		return err
	}
	return nil
}
