package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"growth-companion/internal/database"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/embeddings"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LocalStore keeps embeddings as JSON rows in the relational database and
// scores them with a linear cosine scan. It is meant for small collections.
type LocalStore struct {
	db         *gorm.DB
	embedder   embeddings.Embedder
	collection string
}

func NewLocalStore(db *gorm.DB, embedder embeddings.Embedder, collection string) *LocalStore {
	return &LocalStore{db: db, embedder: embedder, collection: collection}
}

func (s *LocalStore) SimilaritySearch(ctx context.Context, query string, n int) ([]Document, error) {
	queryVec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error embedding query: %w", err)
	}

	var rows []database.Document
	if err := s.db.WithContext(ctx).Where("collection = ?", s.collection).Find(&rows).Error; err != nil {
		slog.Error("error loading documents", "collection", s.collection, "error", err)
		return nil, fmt.Errorf("error loading documents: %w", err)
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		var vec []float32
		if err := json.Unmarshal(row.Embedding, &vec); err != nil {
			slog.Warn("skipping document with invalid embedding", "document_id", row.ID, "error", err)
			continue
		}

		var meta map[string]any
		if len(row.Metadata) > 0 {
			if err := json.Unmarshal(row.Metadata, &meta); err != nil {
				slog.Warn("ignoring invalid document metadata", "document_id", row.ID, "error", err)
			}
		}

		docs = append(docs, Document{Text: row.Content, Metadata: meta, Score: cosine(queryVec, vec)})
	}

	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })

	return docs[:min(n, len(docs))], nil
}

func (s *LocalStore) AddDocuments(ctx context.Context, docs []Document) error {
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("error embedding documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	rows := make([]database.Document, 0, len(docs))
	for i, doc := range docs {
		embedding, err := json.Marshal(vectors[i])
		if err != nil {
			return fmt.Errorf("error serializing embedding: %w", err)
		}
		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("error serializing metadata: %w", err)
		}
		rows = append(rows, database.Document{
			ID:           uuid.New(),
			Collection:   s.collection,
			Content:      doc.Text,
			Metadata:     datatypes.JSON(meta),
			Embedding:    datatypes.JSON(embedding),
			CreationTime: time.Now().UTC(),
		})
	}

	database.WriteMutex.Lock()
	defer database.WriteMutex.Unlock()
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		slog.Error("error saving documents", "collection", s.collection, "error", err)
		return fmt.Errorf("error saving documents: %w", err)
	}
	return nil
}

func (s *LocalStore) Reset(ctx context.Context) error {
	database.WriteMutex.Lock()
	defer database.WriteMutex.Unlock()

	result := s.db.WithContext(ctx).Where("collection = ?", s.collection).Delete(&database.Document{})
	if result.Error != nil {
		slog.Error("error clearing documents", "collection", s.collection, "error", result.Error)
		return fmt.Errorf("error clearing documents: %w", result.Error)
	}
	slog.Info("cleared collection", "collection", s.collection, "documents", result.RowsAffected)
	return nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
