package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

type LangChain struct {
	client *openai.LLM
}

func NewLangChain(apiKey, baseURL, model, embeddingModel string) (*LangChain, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
		openai.WithEmbeddingModel(embeddingModel),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create OpenAI client: %w", err)
	}

	return &LangChain{client: client}, nil
}

func (l *LangChain) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	callOpts := []llms.CallOption{llms.WithTemperature(params.Temperature)}
	if params.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(params.MaxTokens))
	}

	resp, err := l.client.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		slog.Error("error calling OpenAI API", "error", err)
		return "", fmt.Errorf("openai generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// Embedder returns an embedder backed by the same OpenAI client.
func (l *LangChain) Embedder() (embeddings.Embedder, error) {
	embedder, err := embeddings.NewEmbedder(l.client)
	if err != nil {
		return nil, fmt.Errorf("could not create embedder: %w", err)
	}
	return embedder, nil
}
