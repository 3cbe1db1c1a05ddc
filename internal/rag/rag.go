package rag

import (
	"context"
	"fmt"
	"strings"
)

const (
	PerDomainLimit = 3
	unknownMeta    = "unknown"
)

type Document struct {
	Text     string
	Metadata map[string]any
	// Score is a similarity, higher is better.
	Score float64
}

func (d Document) meta(key string) string {
	if d.Metadata == nil {
		return ""
	}
	v, ok := d.Metadata[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Title falls back to the source url and then to "unknown".
func (d Document) Title() string {
	if t := d.meta("title"); t != "" {
		return t
	}
	if s := d.meta("source"); s != "" {
		return s
	}
	return unknownMeta
}

func (d Document) Domain() string {
	if dom := d.meta("domain"); dom != "" {
		return dom
	}
	return unknownMeta
}

func (d Document) Source() string {
	return d.meta("source")
}

// Store is a raw vector index. SimilaritySearch returns up to n documents in
// descending score order. Reset drops every document in the collection.
type Store interface {
	SimilaritySearch(ctx context.Context, query string, n int) ([]Document, error)
	AddDocuments(ctx context.Context, docs []Document) error
	Reset(ctx context.Context) error
}

type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]Document, error)
}

// Diverse over-fetches from the store and keeps at most PerDomainLimit
// documents per domain.
type Diverse struct {
	store Store
}

func NewDiverse(store Store) *Diverse {
	return &Diverse{store: store}
}

func (r *Diverse) Search(ctx context.Context, query string, k int) ([]Document, error) {
	if k <= 0 {
		return nil, nil
	}

	ranked, err := r.store.SimilaritySearch(ctx, query, max(3*k, k+10))
	if err != nil {
		return nil, fmt.Errorf("error querying vector store: %w", err)
	}

	return limitPerDomain(ranked, k, PerDomainLimit), nil
}

func limitPerDomain(ranked []Document, k, perDomain int) []Document {
	kept := make([]Document, 0, k)
	counts := make(map[string]int)
	for _, doc := range ranked {
		domain := doc.Domain()
		if counts[domain] >= perDomain {
			continue
		}
		kept = append(kept, doc)
		counts[domain]++
		if len(kept) >= k {
			break
		}
	}

	if len(kept) == 0 {
		return ranked[:min(k, len(ranked))]
	}
	return kept
}

// FormatContext renders documents as "[Source: title | domain]" blocks
// separated by blank lines.
func FormatContext(docs []Document, withDomain bool) string {
	blocks := make([]string, 0, len(docs))
	for _, doc := range docs {
		if withDomain {
			blocks = append(blocks, fmt.Sprintf("[Source: %s | %s]\n%s", doc.Title(), doc.Domain(), doc.Text))
		} else {
			blocks = append(blocks, fmt.Sprintf("[Source: %s]\n%s", doc.Title(), doc.Text))
		}
	}
	return strings.Join(blocks, "\n\n")
}
