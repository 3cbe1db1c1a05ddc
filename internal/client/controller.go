package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"growth-companion/pkg/api"
)

const (
	GenericErrorText = "Sorry, something went wrong. Please try again."
	NetworkErrorText = "Sorry, I couldn't reach the server. Please try again."
)

var (
	ErrBusy         = errors.New("a response is still pending")
	ErrEmptyMessage = errors.New("message is empty")
)

// Controller drives one chat conversation against the backend. At most one
// chat request is in flight at a time.
type Controller struct {
	backend    Backend
	view       View
	transcript *Transcript
	state      *State
}

func NewController(backend Backend, view View) *Controller {
	return &Controller{
		backend:    backend,
		view:       view,
		transcript: NewTranscript(view),
		state:      NewState(),
	}
}

func (c *Controller) Transcript() *Transcript {
	return c.transcript
}

func (c *Controller) State() *State {
	return c.state
}

// Start requests a session id once. Failures are logged and leave the id
// unset; the first chat reply supplies one instead.
func (c *Controller) Start(ctx context.Context) {
	id, err := c.backend.Session(ctx)
	if err != nil {
		slog.Debug("session bootstrap failed", "error", err)
		return
	}
	c.state.SetSessionID(id)
}

func (c *Controller) CheckHealth(ctx context.Context) Status {
	status := StatusDisconnected
	health, err := c.backend.Health(ctx)
	if err != nil {
		slog.Debug("health check failed", "error", err)
	} else if health.Status == api.StatusHealthy {
		status = StatusConnected
	}
	c.view.SetStatus(status)
	return status
}

func (c *Controller) SetMode(m Mode) {
	c.state.SetMode(m)
	c.view.SetMode(m)
}

func (c *Controller) Mode() Mode {
	return c.state.Mode()
}

func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if !c.state.TryBegin() {
		return ErrBusy
	}
	defer c.state.End()

	mode := c.state.Mode()

	c.transcript.HideWelcome()
	c.transcript.AddMessage(RoleUser, text, mode)
	c.view.ClearInput()
	typing := c.transcript.AddTypingIndicator()

	req := api.ChatRequest{Message: text, UseCouncil: mode.UseCouncil()}
	if id := c.state.SessionID(); id != "" {
		req.SessionID = &id
	}
	if mode.UseCouncil() {
		req.ShowDeliberation = c.state.Deliberation()
	}

	res, err := c.backend.Chat(ctx, req)
	c.transcript.RemoveTypingIndicator(typing)

	if err != nil {
		c.addFailure(err, mode)
		return nil
	}

	if res.SessionID != "" {
		c.state.SetSessionID(res.SessionID)
	}
	for _, mentor := range res.Deliberation {
		c.transcript.AddMessage(RoleAssistant, fmt.Sprintf("**%s**\n\n%s", mentor.Mentor, mentor.Response), mode)
	}
	c.transcript.AddMessage(RoleAssistant, res.Response, mode)
	return nil
}

func (c *Controller) SetDeliberation(on bool) {
	c.state.SetDeliberation(on)
}

// Brief asks for a strategic brief on topic. It shares the single request
// gate with Send.
func (c *Controller) Brief(ctx context.Context, topic string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ErrEmptyMessage
	}
	if !c.state.TryBegin() {
		return ErrBusy
	}
	defer c.state.End()

	mode := c.state.Mode()

	c.transcript.HideWelcome()
	c.transcript.AddMessage(RoleUser, "Brief: "+topic, mode)
	c.view.ClearInput()
	typing := c.transcript.AddTypingIndicator()

	res, err := c.backend.Brief(ctx, api.BriefRequest{Topic: topic})
	c.transcript.RemoveTypingIndicator(typing)

	if err != nil {
		c.addFailure(err, mode)
		return nil
	}

	c.transcript.AddMessage(RoleAssistant, res.Brief, mode)
	return nil
}

func (c *Controller) addFailure(err error, mode Mode) {
	var serr *ServerError
	switch {
	case errors.As(err, &serr):
		slog.Warn("request rejected", "status", serr.Status, "error", serr.Message)
		msg := serr.Message
		if msg == "" {
			msg = GenericErrorText
		}
		c.transcript.AddError(msg, mode)
	default:
		slog.Warn("request failed", "error", err)
		c.transcript.AddError(NetworkErrorText, mode)
	}
}
