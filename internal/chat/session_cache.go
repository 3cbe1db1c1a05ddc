package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type sessionEntry struct {
	memory       *Memory
	lastAccessed time.Time
}

// SessionCache hands out one Memory per session so concurrent requests for the
// same session share its lock. The least recently used entry is evicted once
// maxSize is reached.
type SessionCache struct {
	lock     sync.Mutex
	db       *gorm.DB
	sessions map[uuid.UUID]*sessionEntry
	maxSize  int
}

func NewSessionCache(db *gorm.DB, maxSize int) *SessionCache {
	return &SessionCache{
		db:       db,
		sessions: make(map[uuid.UUID]*sessionEntry, maxSize),
		maxSize:  max(maxSize, 1),
	}
}

func (cache *SessionCache) Get(sessionID uuid.UUID) *Memory {
	cache.lock.Lock()
	defer cache.lock.Unlock()

	if entry, ok := cache.sessions[sessionID]; ok {
		entry.lastAccessed = time.Now()
		return entry.memory
	}

	if len(cache.sessions) >= cache.maxSize {
		oldestSessionID := uuid.Nil
		var oldestTime time.Time
		for id, entry := range cache.sessions {
			if oldestSessionID == uuid.Nil || entry.lastAccessed.Before(oldestTime) {
				oldestSessionID = id
				oldestTime = entry.lastAccessed
			}
		}
		oldest := cache.sessions[oldestSessionID]
		oldest.memory.mu.Lock()
		delete(cache.sessions, oldestSessionID)
		oldest.memory.mu.Unlock()
	}

	memory := NewMemory(cache.db, sessionID)
	cache.sessions[sessionID] = &sessionEntry{memory: memory, lastAccessed: time.Now()}
	return memory
}

func (cache *SessionCache) Len() int {
	cache.lock.Lock()
	defer cache.lock.Unlock()
	return len(cache.sessions)
}
