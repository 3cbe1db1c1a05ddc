package client

import (
	"sync"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role      Role
	Content   string
	Mode      Mode
	Timestamp time.Time
	Error     bool
}

// Handle identifies the typing placeholder.
type Handle int

// Transcript is the ordered list of turns. It never reorders or edits a turn
// once added. Every change to the view is followed by ScrollToBottom.
type Transcript struct {
	mu            sync.Mutex
	view          View
	messages      []Message
	typing        Handle
	nextHandle    Handle
	welcomeHidden bool
}

func NewTranscript(view View) *Transcript {
	return &Transcript{view: view}
}

func (t *Transcript) AddMessage(role Role, content string, mode Mode) Message {
	return t.add(Message{Role: role, Content: content, Mode: mode, Timestamp: time.Now()})
}

func (t *Transcript) AddError(content string, mode Mode) Message {
	return t.add(Message{Role: RoleAssistant, Content: content, Mode: mode, Timestamp: time.Now(), Error: true})
}

func (t *Transcript) add(msg Message) Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages = append(t.messages, msg)
	t.view.AppendMessage(msg)
	t.view.ScrollToBottom()
	return msg
}

// AddTypingIndicator shows the placeholder. While one is shown the existing
// handle is returned.
func (t *Transcript) AddTypingIndicator() Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.typing != 0 {
		return t.typing
	}
	t.nextHandle++
	t.typing = t.nextHandle
	t.view.ShowTyping()
	t.view.ScrollToBottom()
	return t.typing
}

// RemoveTypingIndicator is a no-op for handles that are no longer shown.
func (t *Transcript) RemoveTypingIndicator(h Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.typing == 0 || t.typing != h {
		return
	}
	t.typing = 0
	t.view.HideTyping()
	t.view.ScrollToBottom()
}

func (t *Transcript) Typing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.typing != 0
}

func (t *Transcript) HideWelcome() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.welcomeHidden {
		return
	}
	t.welcomeHidden = true
	t.view.HideWelcome()
	t.view.ScrollToBottom()
}

func (t *Transcript) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Message(nil), t.messages...)
}
