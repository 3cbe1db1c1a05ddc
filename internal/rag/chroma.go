package rag

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores/chroma"
)

// ChromaStore reads and writes a Chroma collection over its REST api.
type ChromaStore struct {
	url        string
	collection string
	embedder   embeddings.Embedder

	store chroma.Store
}

func NewChromaStore(url, collection string, embedder embeddings.Embedder) (*ChromaStore, error) {
	s := &ChromaStore{url: url, collection: collection, embedder: embedder}
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

// connect opens the collection, creating it if it does not exist.
func (s *ChromaStore) connect() error {
	store, err := chroma.New(
		chroma.WithChromaURL(s.url),
		chroma.WithNameSpace(s.collection),
		chroma.WithEmbedder(s.embedder),
	)
	if err != nil {
		return fmt.Errorf("error connecting to chroma at %s: %w", s.url, err)
	}
	s.store = store
	return nil
}

func (s *ChromaStore) SimilaritySearch(ctx context.Context, query string, n int) ([]Document, error) {
	results, err := s.store.SimilaritySearch(ctx, query, n)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(results))
	for _, res := range results {
		docs = append(docs, Document{Text: res.PageContent, Metadata: res.Metadata, Score: float64(res.Score)})
	}
	return docs, nil
}

func (s *ChromaStore) AddDocuments(ctx context.Context, docs []Document) error {
	batch := make([]schema.Document, 0, len(docs))
	for _, doc := range docs {
		batch = append(batch, schema.Document{PageContent: doc.Text, Metadata: doc.Metadata})
	}
	if _, err := s.store.AddDocuments(ctx, batch); err != nil {
		return fmt.Errorf("error adding documents to chroma: %w", err)
	}
	return nil
}

func (s *ChromaStore) Reset(ctx context.Context) error {
	if err := s.store.RemoveCollection(); err != nil {
		return fmt.Errorf("error removing chroma collection %s: %w", s.collection, err)
	}
	return s.connect()
}
