package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-4o-mini",
	"choices": [{
		"index": 0,
		"message": {"role": "assistant", "content": "  Raise your prices.  "},
		"finish_reason": "stop"
	}],
	"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
}`

type completionServer struct {
	mu     sync.Mutex
	bodies []map[string]any
	auth   []string
	reply  string
	status int
}

func (s *completionServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/chat/completions" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	s.bodies = append(s.bodies, body)
	s.auth = append(s.auth, r.Header.Get("Authorization"))
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if s.status != 0 {
		w.WriteHeader(s.status)
	}
	_, _ = w.Write([]byte(s.reply))
}

func TestOpenAIGenerate(t *testing.T) {
	handler := &completionServer{reply: completionBody}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	usagePath := filepath.Join(t.TempDir(), "usage", "openai.json")
	model := NewOpenAI("sk-test", srv.URL, "gpt-4o-mini", usagePath)

	reply, err := model.Generate(context.Background(), "How should I price?", Params{Temperature: 0.2, MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "Raise your prices.", reply)

	require.Len(t, handler.bodies, 1)
	body := handler.bodies[0]
	assert.Equal(t, "Bearer sk-test", handler.auth[0])
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.InDelta(t, 0.2, body["temperature"], 1e-9)
	assert.EqualValues(t, 64, body["max_tokens"])
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	message, ok := messages[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user", message["role"])
	assert.Equal(t, "How should I price?", message["content"])

	_, err = model.Generate(context.Background(), "And then?", Params{})
	require.NoError(t, err)

	expected := TokenUsage{PromptTokens: 24, CompletionTokens: 10, TotalTokens: 34}
	assert.Equal(t, map[string]TokenUsage{"gpt-4o-mini": expected}, model.Usage())

	data, err := os.ReadFile(usagePath)
	require.NoError(t, err)

	var written map[string]TokenUsage
	require.NoError(t, json.Unmarshal(data, &written))
	assert.Equal(t, map[string]TokenUsage{"gpt-4o-mini": expected}, written)
}

func TestOpenAIEmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(&completionServer{reply: `{"id":"x","object":"chat.completion","model":"gpt-4o-mini","choices":[],"usage":{"prompt_tokens":3,"completion_tokens":0,"total_tokens":3}}`})
	defer srv.Close()

	model := NewOpenAI("sk-test", srv.URL, "gpt-4o-mini", "")
	_, err := model.Generate(context.Background(), "hi", Params{})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
	assert.Equal(t, int64(3), model.Usage()["gpt-4o-mini"].TotalTokens)
}

func TestOpenAIRequestError(t *testing.T) {
	usagePath := filepath.Join(t.TempDir(), "usage.json")
	srv := httptest.NewServer(&completionServer{
		status: http.StatusBadRequest,
		reply:  `{"error":{"message":"model not found","type":"invalid_request_error"}}`,
	})
	defer srv.Close()

	model := NewOpenAI("sk-test", srv.URL, "gpt-unknown", usagePath)
	_, err := model.Generate(context.Background(), "hi", Params{})
	assert.ErrorContains(t, err, "openai generation failed")
	assert.Empty(t, model.Usage())

	_, err = os.Stat(usagePath)
	assert.True(t, os.IsNotExist(err))
}
