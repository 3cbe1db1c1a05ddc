package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"growth-companion/pkg/api"

	"github.com/go-resty/resty/v2"
)

// ErrUnreachable marks failures where no HTTP response was received.
var ErrUnreachable = errors.New("server unreachable")

// ServerError is a response the server produced but that is not a usable
// reply: a non-2xx status or a body carrying an error field.
type ServerError struct {
	Status int
	// Message is the server's error field, empty if it sent none.
	Message string
	Cause   error
}

func (e *ServerError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("server returned status %d: %v", e.Status, e.Cause)
	}
	return fmt.Sprintf("server returned status %d", e.Status)
}

func (e *ServerError) Unwrap() error {
	return e.Cause
}

type Backend interface {
	Session(ctx context.Context) (string, error)
	Health(ctx context.Context) (api.HealthResponse, error)
	Chat(ctx context.Context, req api.ChatRequest) (api.ChatResponse, error)
	Brief(ctx context.Context, req api.BriefRequest) (api.BriefResponse, error)
}

type HTTPBackend struct {
	client *resty.Client
}

func NewHTTPBackend(baseURL string, timeout time.Duration) *HTTPBackend {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &HTTPBackend{client: client}
}

type errorBody struct {
	Error string `json:"error"`
}

func (b *HTTPBackend) do(req *resty.Request, method, path string, out any) error {
	res, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	var body errorBody
	_ = json.Unmarshal(res.Body(), &body)

	if !res.IsSuccess() || body.Error != "" {
		return &ServerError{Status: res.StatusCode(), Message: body.Error}
	}

	if err := json.Unmarshal(res.Body(), out); err != nil {
		return &ServerError{Status: res.StatusCode(), Cause: fmt.Errorf("invalid response body: %w", err)}
	}
	return nil
}

func (b *HTTPBackend) Session(ctx context.Context) (string, error) {
	var out api.SessionResponse
	if err := b.do(b.client.R().SetContext(ctx), resty.MethodGet, "/api/session", &out); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", &ServerError{Status: http.StatusOK, Cause: errors.New("empty session id")}
	}
	return out.SessionID, nil
}

func (b *HTTPBackend) Health(ctx context.Context) (api.HealthResponse, error) {
	var out api.HealthResponse
	err := b.do(b.client.R().SetContext(ctx), resty.MethodGet, "/api/health", &out)
	return out, err
}

func (b *HTTPBackend) Chat(ctx context.Context, req api.ChatRequest) (api.ChatResponse, error) {
	var out api.ChatResponse
	r := b.client.R().SetContext(ctx).SetHeader("Content-Type", "application/json").SetBody(req)
	err := b.do(r, resty.MethodPost, "/api/chat", &out)
	return out, err
}

func (b *HTTPBackend) Brief(ctx context.Context, req api.BriefRequest) (api.BriefResponse, error) {
	var out api.BriefResponse
	r := b.client.R().SetContext(ctx).SetHeader("Content-Type", "application/json").SetBody(req)
	err := b.do(r, resty.MethodPost, "/api/brief", &out)
	return out, err
}
