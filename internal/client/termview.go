package client

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// TermView prints assistant turns to a terminal, rendering their markdown
// with glamour. User turns are not echoed since the user just typed them.
type TermView struct {
	mu       sync.Mutex
	out      io.Writer
	renderer *glamour.TermRenderer
	typing   bool
}

// NewTermView uses the named glamour style, or picks one from the terminal
// background when style is empty.
func NewTermView(out io.Writer, width int, style string) (*TermView, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating markdown renderer: %w", err)
	}
	return &TermView{out: out, renderer: renderer}, nil
}

func (v *TermView) AppendMessage(msg Message) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if msg.Role != RoleAssistant {
		return
	}

	if msg.Error {
		fmt.Fprintf(v.out, "! %s\n\n", msg.Content)
		return
	}

	fmt.Fprintf(v.out, "[%s]\n", msg.Mode.Label())
	rendered, err := v.renderer.Render(msg.Content)
	if err != nil {
		rendered = msg.Content + "\n"
	}
	fmt.Fprint(v.out, strings.TrimLeft(rendered, "\n"))
	fmt.Fprintln(v.out)
}

func (v *TermView) ShowTyping() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.typing = true
	fmt.Fprint(v.out, "thinking…")
}

func (v *TermView) HideTyping() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.typing {
		// erase the placeholder line
		fmt.Fprint(v.out, "\r\033[K")
		v.typing = false
	}
}

func (v *TermView) HideWelcome() {}

func (v *TermView) ScrollToBottom() {}

func (v *TermView) ClearInput() {}

func (v *TermView) SetStatus(status Status) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "● %s\n", status)
}

func (v *TermView) SetMode(mode Mode) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "mode: %s\n", mode.Label())
}
