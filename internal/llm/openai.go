package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// TokenUsage tracks usage counts per model.
type TokenUsage struct {
	CompletionTokens int64 `json:"completion_tokens"`
	PromptTokens     int64 `json:"prompt_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// OpenAI talks to the chat completions endpoint directly and keeps a running
// token usage file.
type OpenAI struct {
	client       openai.Client
	model        string
	trackUsageAt string

	mu    sync.Mutex
	usage map[string]*TokenUsage
}

func NewOpenAI(apiKey, baseURL, model, trackUsageAt string) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	if trackUsageAt != "" {
		if err := os.MkdirAll(filepath.Dir(trackUsageAt), 0755); err != nil {
			slog.Warn("could not create usage dir", "dir", filepath.Dir(trackUsageAt), "error", err)
		}
	}

	return &OpenAI{
		client:       openai.NewClient(opts...),
		model:        model,
		trackUsageAt: trackUsageAt,
		usage:        make(map[string]*TokenUsage),
	}
}

func (o *OpenAI) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	req := openai.ChatCompletionNewParams{
		Model:       o.model,
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(params.Temperature),
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = openai.Int(int64(params.MaxTokens))
	}

	res, err := o.client.Chat.Completions.New(ctx, req)
	if err != nil {
		slog.Error("openai error: chat completions failed", "error", err)
		return "", fmt.Errorf("openai generation failed: %w", err)
	}

	o.recordUsage(res.Usage)

	if len(res.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(res.Choices[0].Message.Content), nil
}

func (o *OpenAI) Usage() map[string]TokenUsage {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make(map[string]TokenUsage, len(o.usage))
	for model, u := range o.usage {
		out[model] = *u
	}
	return out
}

func (o *OpenAI) recordUsage(usage openai.CompletionUsage) {
	o.mu.Lock()
	defer o.mu.Unlock()

	tu, ok := o.usage[o.model]
	if !ok {
		tu = &TokenUsage{}
		o.usage[o.model] = tu
	}
	tu.CompletionTokens += usage.CompletionTokens
	tu.PromptTokens += usage.PromptTokens
	tu.TotalTokens += usage.TotalTokens

	if o.trackUsageAt == "" {
		return
	}

	f, err := os.Create(o.trackUsageAt)
	if err != nil {
		slog.Warn("failed to create usage file", "error", err)
		return
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(o.usage); err != nil {
		slog.Warn("failed to write usage JSON", "error", err)
	}
}
