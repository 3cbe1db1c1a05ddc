package rag

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"growth-companion/internal/database"
	"growth-companion/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	docs []Document

	mu       sync.Mutex
	requests []int
	batches  []int
	resets   int
	err      error
}

func (m *memStore) SimilaritySearch(ctx context.Context, query string, n int) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, n)
	if m.err != nil {
		return nil, m.err
	}
	return m.docs[:min(n, len(m.docs))], nil
}

func (m *memStore) AddDocuments(ctx context.Context, docs []Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, len(docs))
	m.docs = append(m.docs, docs...)
	return nil
}

func (m *memStore) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	m.docs = nil
	return nil
}

func doc(text, domain string, score float64) Document {
	return Document{Text: text, Metadata: map[string]any{"domain": domain, "title": text}, Score: score}
}

func texts(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Text
	}
	return out
}

func TestDiverseLimitsPerDomain(t *testing.T) {
	store := &memStore{docs: []Document{
		doc("a1", "a.com", 0.9),
		doc("a2", "a.com", 0.8),
		doc("a3", "a.com", 0.7),
		doc("a4", "a.com", 0.6),
		doc("b1", "b.com", 0.5),
		doc("b2", "b.com", 0.4),
	}}

	docs, err := NewDiverse(store).Search(context.Background(), "q", 4)
	require.NoError(t, err)

	assert.Equal(t, []string{"a1", "a2", "a3", "b1"}, texts(docs))
	assert.Equal(t, []int{14}, store.requests)
}

func TestDiverseMissingDomainCountsAsUnknown(t *testing.T) {
	store := &memStore{docs: []Document{
		{Text: "x1"}, {Text: "x2"}, {Text: "x3"}, {Text: "x4"},
	}}

	docs, err := NewDiverse(store).Search(context.Background(), "q", 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"x1", "x2", "x3"}, texts(docs))
}

func TestDiversePropagatesStoreErrors(t *testing.T) {
	store := &memStore{err: errors.New("chroma down")}

	_, err := NewDiverse(store).Search(context.Background(), "q", 4)
	assert.ErrorContains(t, err, "chroma down")
}

func TestDocumentMetadataFallbacks(t *testing.T) {
	d := Document{Metadata: map[string]any{"source": "https://example.com/post"}}
	assert.Equal(t, "https://example.com/post", d.Title())
	assert.Equal(t, "unknown", d.Domain())

	assert.Equal(t, "unknown", Document{}.Title())
}

func TestFormatContext(t *testing.T) {
	docs := []Document{doc("first", "a.com", 1), doc("second", "b.com", 1)}

	assert.Equal(t, "[Source: first | a.com]\nfirst\n\n[Source: second | b.com]\nsecond", FormatContext(docs, true))
	assert.Equal(t, "[Source: first]\nfirst\n\n[Source: second]\nsecond", FormatContext(docs, false))
}

func TestExpandParsesNumberedList(t *testing.T) {
	mock := &llm.Mock{Respond: func(prompt string, params llm.Params) (string, error) {
		return "Variations:\n1. how do I price\n2) what should I charge\n\n3. pricing advice\n4. extra", nil
	}}

	queries := NewEnhanced(nil, mock).Expand(context.Background(), "pricing?")
	assert.Equal(t, []string{"pricing?", "how do I price", "what should I charge", "pricing advice"}, queries)
}

func TestExpandFallsBackToOriginal(t *testing.T) {
	mock := &llm.Mock{Respond: func(prompt string, params llm.Params) (string, error) {
		return "", errors.New("rate limited")
	}}

	queries := NewEnhanced(nil, mock).Expand(context.Background(), "pricing?")
	assert.Equal(t, []string{"pricing?"}, queries)
}

func enhancedFixture(rank func() (string, error)) (*Enhanced, *llm.Mock) {
	store := &memStore{docs: []Document{
		doc("unrelated words", "a.com", 0.9),
		doc("pricing strategy for agencies", "b.com", 0.8),
		doc("pricing", "c.com", 0.5),
	}}
	mock := &llm.Mock{Respond: func(prompt string, params llm.Params) (string, error) {
		if strings.HasPrefix(prompt, "Rank") {
			return rank()
		}
		return "", nil
	}}
	return NewEnhanced(NewDiverse(store), mock), mock
}

func TestEnhancedRerankOrder(t *testing.T) {
	enhanced, mock := enhancedFixture(func() (string, error) { return "2, 1, 7, x", nil })

	docs, err := enhanced.Search(context.Background(), "pricing strategy", 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"pricing", "unrelated words"}, texts(docs))

	prompts := mock.Prompts()
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[1], "0. pricing strategy for agencies...")
	assert.Contains(t, prompts[1], "Query: pricing strategy")
}

func TestEnhancedRerankFailureKeepsCombinedOrder(t *testing.T) {
	enhanced, _ := enhancedFixture(func() (string, error) { return "", errors.New("timeout") })

	docs, err := enhanced.Search(context.Background(), "pricing strategy", 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"pricing strategy for agencies", "unrelated words"}, texts(docs))
}

func TestEnhancedDeduplicatesVariations(t *testing.T) {
	store := &memStore{docs: []Document{doc("only", "a.com", 0.9)}}
	mock := &llm.Mock{Respond: func(prompt string, params llm.Params) (string, error) {
		return "1. one\n2. two\n3. three", nil
	}}

	docs, err := NewEnhanced(NewDiverse(store), mock).Search(context.Background(), "q", 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"only"}, texts(docs))
	assert.Len(t, store.requests, 4)
}

func TestKeywordScore(t *testing.T) {
	terms := queryTerms("Pricing strategy, pricing!")
	assert.Equal(t, []string{"pricing", "strategy"}, terms)
	assert.InDelta(t, 0.5, keywordScore(terms, "Our PRICING page"), 1e-9)
	assert.Zero(t, keywordScore(nil, "anything"))
}

func TestIngestBatches(t *testing.T) {
	store := &memStore{}

	var docs []Document
	for i := 0; i < 130; i++ {
		docs = append(docs, Document{Text: fmt.Sprintf("doc %d", i)})
	}
	docs = append(docs, Document{Text: "   "})

	var reported int
	var mu sync.Mutex
	stored, err := Ingest(context.Background(), store, docs, IngestOptions{
		Workers: 3,
		OnBatch: func(n int) {
			mu.Lock()
			reported += n
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 130, stored)
	assert.Equal(t, 130, reported)

	sort.Ints(store.batches)
	assert.Equal(t, []int{2, 64, 64}, store.batches)
}

func TestIngestRebuildClearsStore(t *testing.T) {
	store := &memStore{docs: []Document{{Text: "stale"}}}

	stored, err := Ingest(context.Background(), store, []Document{{Text: "fresh"}}, IngestOptions{Rebuild: true})
	require.NoError(t, err)

	assert.Equal(t, 1, stored)
	assert.Equal(t, 1, store.resets)
	assert.Equal(t, []string{"fresh"}, texts(store.docs))
}

func TestIngestNothing(t *testing.T) {
	stored, err := Ingest(context.Background(), &memStore{}, nil, IngestOptions{})
	require.NoError(t, err)
	assert.Zero(t, stored)
}

// wordEmbedder places each text on axes for a fixed vocabulary.
type wordEmbedder struct{}

var vocab = []string{"alpha", "beta", "gamma"}

func (wordEmbedder) embed(text string) []float32 {
	vec := make([]float32, len(vocab))
	for i, w := range vocab {
		vec[i] = float32(strings.Count(strings.ToLower(text), w))
	}
	return vec
}

func (e wordEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e wordEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embed(text), nil
}

func TestLocalStore(t *testing.T) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "rag.db"))
	require.NoError(t, err)

	store := NewLocalStore(db, wordEmbedder{}, "test")
	other := NewLocalStore(db, wordEmbedder{}, "other")

	require.NoError(t, store.AddDocuments(context.Background(), []Document{
		{Text: "alpha alpha", Metadata: map[string]any{"domain": "a.com"}},
		{Text: "beta", Metadata: map[string]any{"domain": "b.com"}},
		{Text: "alpha beta gamma"},
	}))
	require.NoError(t, other.AddDocuments(context.Background(), []Document{{Text: "alpha"}}))

	docs, err := store.SimilaritySearch(context.Background(), "alpha", 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "alpha alpha", docs[0].Text)
	assert.Equal(t, "a.com", docs[0].Domain())
	assert.InDelta(t, 1.0, docs[0].Score, 1e-6)
	assert.Equal(t, "alpha beta gamma", docs[1].Text)
}

func TestLocalStoreReingestWithoutDuplicates(t *testing.T) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "rag.db"))
	require.NoError(t, err)

	store := NewLocalStore(db, wordEmbedder{}, "test")
	other := NewLocalStore(db, wordEmbedder{}, "other")
	require.NoError(t, other.AddDocuments(context.Background(), []Document{{Text: "alpha"}}))

	corpus := []Document{{Text: "alpha"}, {Text: "beta"}}
	for range 2 {
		stored, err := Ingest(context.Background(), store, corpus, IngestOptions{Rebuild: true})
		require.NoError(t, err)
		assert.Equal(t, 2, stored)
	}

	var count int64
	require.NoError(t, db.Model(&database.Document{}).Where("collection = ?", "test").Count(&count).Error)
	assert.EqualValues(t, 2, count)

	docs, err := store.SimilaritySearch(context.Background(), "alpha", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, texts(docs))

	require.NoError(t, db.Model(&database.Document{}).Where("collection = ?", "other").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosine([]float32{1}, []float32{1, 2}))
	assert.Zero(t, cosine([]float32{0, 0}, []float32{1, 1}))
}
