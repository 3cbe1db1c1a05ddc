package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"growth-companion/internal/storage"

	"github.com/tmc/langchaingo/textsplitter"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	ChunkSize    = 1200
	ChunkOverlap = 200

	// MinTextFileLength is the shortest markdown or text file worth indexing.
	MinTextFileLength = 100

	localDomain = "local"
)

// corpusRecord is one JSON file of the corpus. Processed chunks carry text and
// metadata; raw crawl output carries content plus page fields and is chunked
// on load.
type corpusRecord struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`

	Content string `json:"content"`
	URL     string `json:"url"`
	Domain  string `json:"domain"`
	Title   string `json:"title"`
	Kind    string `json:"kind"`
}

var splitter = textsplitter.NewRecursiveCharacter(
	textsplitter.WithChunkSize(ChunkSize),
	textsplitter.WithChunkOverlap(ChunkOverlap),
	textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " ", ""}),
)

func ParseCorpusFile(data []byte) ([]Document, error) {
	var rec corpusRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("error parsing corpus file: %w", err)
	}

	if strings.TrimSpace(rec.Text) != "" {
		return []Document{{Text: rec.Text, Metadata: rec.Metadata}}, nil
	}

	if strings.TrimSpace(rec.Content) == "" {
		return nil, nil
	}

	return chunkRecord(rec)
}

// ParseTextFile turns a markdown or plain text file into chunks. Markdown
// files take their title from the first level one heading near the top;
// otherwise the title comes from the file name. Files shorter than
// MinTextFileLength yield nothing.
func ParseTextFile(name string, data []byte) ([]Document, error) {
	content := string(data)
	if len(strings.TrimSpace(content)) < MinTextFileLength {
		return nil, nil
	}

	return chunkRecord(corpusRecord{
		Content: content,
		URL:     "file://" + name,
		Domain:  localDomain,
		Title:   textFileTitle(name, content),
		Kind:    localDomain,
	})
}

func textFileTitle(name, content string) string {
	if path.Ext(name) == ".md" {
		lines := strings.SplitN(content, "\n", 11)
		for _, line := range lines[:min(10, len(lines))] {
			if title, ok := strings.CutPrefix(line, "# "); ok && strings.TrimSpace(title) != "" {
				return strings.TrimSpace(title)
			}
		}
	}
	stem := strings.TrimSuffix(path.Base(name), path.Ext(name))
	return cases.Title(language.English).String(strings.ReplaceAll(stem, "_", " "))
}

func chunkRecord(rec corpusRecord) ([]Document, error) {
	chunks, err := splitter.SplitText(rec.Content)
	if err != nil {
		return nil, fmt.Errorf("error splitting content: %w", err)
	}

	docs := make([]Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, Document{
			Text: chunk,
			Metadata: map[string]any{
				"source":      rec.URL,
				"domain":      rec.Domain,
				"title":       rec.Title,
				"kind":        rec.Kind,
				"chunk_index": i,
			},
		})
	}
	return docs, nil
}

// LoadCorpus reads every .json, .md and .txt object under prefix. Files that
// fail to parse are logged and skipped.
func LoadCorpus(ctx context.Context, provider storage.Provider, bucket, prefix string) ([]Document, error) {
	var docs []Document
	for obj, err := range provider.IterObjects(ctx, bucket, prefix) {
		if err != nil {
			return nil, fmt.Errorf("error listing corpus: %w", err)
		}
		ext := path.Ext(obj.Name)
		if ext != ".json" && ext != ".md" && ext != ".txt" {
			continue
		}

		data, err := provider.GetObject(ctx, bucket, obj.Name)
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", obj.Name, err)
		}

		var parsed []Document
		if ext == ".json" {
			parsed, err = ParseCorpusFile(data)
		} else {
			parsed, err = ParseTextFile(obj.Name, data)
		}
		if err != nil {
			slog.Warn("skipping corpus file", "object", obj.Name, "error", err)
			continue
		}
		docs = append(docs, parsed...)
	}
	return docs, nil
}
