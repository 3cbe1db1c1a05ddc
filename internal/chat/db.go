package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"growth-companion/internal/database"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("session not found")

func CreateSession(ctx context.Context, db *gorm.DB) (database.ChatSession, error) {
	session := database.ChatSession{ID: uuid.New(), CreationTime: time.Now().UTC()}

	database.WriteMutex.Lock()
	defer database.WriteMutex.Unlock()
	if err := db.WithContext(ctx).Create(&session).Error; err != nil {
		return database.ChatSession{}, fmt.Errorf("error creating session: %w", err)
	}
	return session, nil
}

func GetSession(ctx context.Context, db *gorm.DB, sessionID uuid.UUID) (database.ChatSession, error) {
	var session database.ChatSession
	if err := db.WithContext(ctx).First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return session, ErrSessionNotFound
		}
		return session, err
	}
	return session, nil
}

func GetSessions(ctx context.Context, db *gorm.DB) ([]database.ChatSession, error) {
	var sessions []database.ChatSession
	err := db.WithContext(ctx).Order("creation_time DESC").Find(&sessions).Error
	return sessions, err
}

func DeleteHistory(ctx context.Context, db *gorm.DB, sessionID uuid.UUID) error {
	database.WriteMutex.Lock()
	defer database.WriteMutex.Unlock()
	return db.WithContext(ctx).Delete(&database.ChatHistory{}, "session_id = ?", sessionID).Error
}

func GetChatHistory(ctx context.Context, db *gorm.DB, sessionID uuid.UUID) ([]database.ChatHistory, error) {
	var history []database.ChatHistory
	err := db.WithContext(ctx).Where("session_id = ?", sessionID).Order("id ASC").Find(&history).Error
	return history, err
}

// SaveExchange stores a question and its answer as two consecutive history
// rows, creating the session on first use.
func SaveExchange(ctx context.Context, db *gorm.DB, sessionID uuid.UUID, mode, query, answer string, metadata map[string]any) error {
	var metadataJSON datatypes.JSON
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("could not marshal metadata: %w", err)
		}
		metadataJSON = datatypes.JSON(b)
	}

	database.WriteMutex.Lock()
	defer database.WriteMutex.Unlock()

	return db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		if err := database.EnsureSession(ctx, txn, sessionID); err != nil {
			return err
		}

		rows := []database.ChatHistory{
			{SessionID: sessionID, MessageType: database.MessageUser, Mode: mode, Content: query},
			{SessionID: sessionID, MessageType: database.MessageAI, Mode: mode, Content: answer, Metadata: metadataJSON},
		}
		if err := txn.Create(&rows).Error; err != nil {
			return fmt.Errorf("error saving exchange: %w", err)
		}

		return database.TouchSession(ctx, txn, sessionID)
	})
}
