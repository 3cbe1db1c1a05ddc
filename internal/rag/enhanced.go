package rag

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"growth-companion/internal/llm"
)

const (
	maxVariations  = 3
	maxRerankDocs  = 20
	semanticWeight = 0.7
	keywordWeight  = 0.3
)

var (
	listPrefixRe = regexp.MustCompile(`^\d+[\.\)]\s*`)
	wordRe       = regexp.MustCompile(`\w+`)
)

// Enhanced layers query expansion, keyword boosting and an LLM re-rank on top
// of a base retriever. Every LLM step degrades to the plain result on failure.
type Enhanced struct {
	base Retriever
	llm  llm.LLM
}

func NewEnhanced(base Retriever, model llm.LLM) *Enhanced {
	return &Enhanced{base: base, llm: model}
}

type scored struct {
	doc      Document
	combined float64
}

func (e *Enhanced) Search(ctx context.Context, query string, k int) ([]Document, error) {
	if k <= 0 {
		return nil, nil
	}

	queries := e.Expand(ctx, query)

	var results []scored
	seen := make(map[string]struct{})
	for i, q := range queries {
		docs, err := e.base.Search(ctx, q, 2*k)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			slog.Warn("skipping failed query variation", "variation", q, "error", err)
			continue
		}
		for _, doc := range docs {
			if _, ok := seen[doc.Text]; ok {
				continue
			}
			seen[doc.Text] = struct{}{}
			results = append(results, scored{doc: doc})
		}
	}

	terms := queryTerms(query)
	for i := range results {
		results[i].combined = semanticWeight*results[i].doc.Score + keywordWeight*keywordScore(terms, results[i].doc.Text)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].combined > results[j].combined })

	if len(results) > k {
		results = e.rerank(ctx, query, results[:min(2*k, len(results))], k)
	}

	out := make([]Document, 0, min(k, len(results)))
	for _, r := range results[:min(k, len(results))] {
		out = append(out, r.doc)
	}
	return out, nil
}

// Expand returns the original query followed by up to three rephrasings.
func (e *Enhanced) Expand(ctx context.Context, query string) []string {
	prompt := "Generate 3 different ways to ask the same question. " +
		"Each variation should use different wording but maintain the same intent. " +
		"Format as a numbered list, one query per line.\n\n" +
		fmt.Sprintf("Original query: %s\n\n", query) +
		"Variations:"

	reply, err := e.llm.Generate(ctx, prompt, llm.Params{Temperature: 0.7, MaxTokens: 150})
	if err != nil {
		slog.Warn("query expansion failed, using original query", "error", err)
		return []string{query}
	}

	return append([]string{query}, parseVariations(reply)...)
}

func parseVariations(reply string) []string {
	var variations []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Variations") {
			continue
		}
		line = strings.TrimSpace(listPrefixRe.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		variations = append(variations, line)
		if len(variations) == maxVariations {
			break
		}
	}
	return variations
}

func queryTerms(query string) []string {
	unique := make(map[string]struct{})
	var terms []string
	for _, w := range wordRe.FindAllString(strings.ToLower(query), -1) {
		if _, ok := unique[w]; !ok {
			unique[w] = struct{}{}
			terms = append(terms, w)
		}
	}
	return terms
}

// keywordScore is the fraction of query terms that occur in text.
func keywordScore(terms []string, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	matches := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			matches++
		}
	}
	return float64(matches) / float64(len(terms))
}

func (e *Enhanced) rerank(ctx context.Context, query string, docs []scored, k int) []scored {
	if len(docs) <= k {
		return docs
	}

	var listing strings.Builder
	for i, d := range docs[:min(maxRerankDocs, len(docs))] {
		fmt.Fprintf(&listing, "%d. %s...\n", i, truncate(d.doc.Text, 200))
	}

	prompt := "Rank these document snippets by relevance to the query. " +
		"Return a comma-separated list of indices (0-based), most relevant first.\n\n" +
		fmt.Sprintf("Query: %s\n\n", query) +
		"Documents:\n" + strings.TrimSuffix(listing.String(), "\n") +
		"\n\nRanked indices (comma-separated):"

	reply, err := e.llm.Generate(ctx, prompt, llm.Params{Temperature: 0.1, MaxTokens: 50})
	if err != nil {
		slog.Warn("re-rank failed, keeping combined score order", "error", err)
		return docs[:k]
	}

	reordered := make([]scored, 0, len(docs))
	used := make(map[int]bool)
	for _, part := range strings.Split(reply, ",") {
		idx, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || idx < 0 || idx >= len(docs) || used[idx] {
			continue
		}
		reordered = append(reordered, docs[idx])
		used[idx] = true
	}
	for i, d := range docs {
		if !used[i] {
			reordered = append(reordered, d)
		}
	}

	return reordered[:k]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
