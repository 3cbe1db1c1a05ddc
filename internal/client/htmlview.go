package client

import (
	"fmt"
	"html"
	"io"
	"strings"
	"sync"
	"time"

	"growth-companion/internal/markdown"
)

// HTMLView renders each turn to an HTML fragment as it is added and can
// write the whole conversation out as a standalone page.
type HTMLView struct {
	mu        sync.Mutex
	title     string
	fragments []string
	typing    bool
	welcome   bool
	status    Status
	mode      Mode
}

func NewHTMLView(title string) *HTMLView {
	return &HTMLView{title: title, welcome: true, mode: ModeKnowledgeBase}
}

func (v *HTMLView) AppendMessage(msg Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fragments = append(v.fragments, renderMessage(msg))
}

func (v *HTMLView) ShowTyping() {
	v.mu.Lock()
	v.typing = true
	v.mu.Unlock()
}

func (v *HTMLView) HideTyping() {
	v.mu.Lock()
	v.typing = false
	v.mu.Unlock()
}

func (v *HTMLView) HideWelcome() {
	v.mu.Lock()
	v.welcome = false
	v.mu.Unlock()
}

func (v *HTMLView) ScrollToBottom() {}

func (v *HTMLView) ClearInput() {}

func (v *HTMLView) SetStatus(status Status) {
	v.mu.Lock()
	v.status = status
	v.mu.Unlock()
}

func (v *HTMLView) SetMode(mode Mode) {
	v.mu.Lock()
	v.mode = mode
	v.mu.Unlock()
}

func renderMessage(msg Message) string {
	var sb strings.Builder

	class := "message " + string(msg.Role)
	if msg.Error {
		class += " error"
	}
	sb.WriteString(fmt.Sprintf("<div class=\"%s\">\n", class))

	if msg.Role == RoleAssistant && msg.Mode != "" {
		sb.WriteString(fmt.Sprintf("  <div class=\"badge\">%s</div>\n", html.EscapeString(msg.Mode.Label())))
	}
	if !msg.Timestamp.IsZero() {
		sb.WriteString(fmt.Sprintf("  <time datetime=\"%s\">%s</time>\n", msg.Timestamp.Format(time.RFC3339), msg.Timestamp.Format("15:04")))
	}

	sb.WriteString("  <div class=\"content\">")
	if msg.Role == RoleAssistant && !msg.Error {
		sb.WriteString(markdown.Format(msg.Content))
	} else {
		sb.WriteString("<p>" + strings.ReplaceAll(html.EscapeString(msg.Content), "\n", "<br>") + "</p>")
	}
	sb.WriteString("</div>\n")

	sb.WriteString("</div>\n")
	return sb.String()
}

// Body returns the conversation area as it currently looks.
func (v *HTMLView) Body() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	var sb strings.Builder
	if v.welcome {
		sb.WriteString("<section class=\"welcome\"><h2>How can I help you grow today?</h2></section>\n")
	}
	for _, f := range v.fragments {
		sb.WriteString(f)
	}
	if v.typing {
		sb.WriteString("<div class=\"message assistant typing\"><span></span><span></span><span></span></div>\n")
	}
	return sb.String()
}

func (v *HTMLView) Export(w io.Writer) error {
	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("  <meta charset=\"UTF-8\">\n")
	sb.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("  <title>%s</title>\n", html.EscapeString(v.title)))
	sb.WriteString(fmt.Sprintf("  <meta name=\"date\" content=\"%s\">\n", time.Now().Format(time.RFC3339)))
	sb.WriteString(exportCSS)
	sb.WriteString("</head>\n")
	sb.WriteString("<body>\n")
	sb.WriteString(fmt.Sprintf("<header><h1>%s</h1></header>\n", html.EscapeString(v.title)))
	sb.WriteString("<main class=\"conversation\">\n")
	sb.WriteString(v.Body())
	sb.WriteString("</main>\n")
	sb.WriteString(fmt.Sprintf("<footer>Exported on %s</footer>\n", time.Now().Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

const exportCSS = `  <style>
    body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; color: #1d1530; background: #f7f5fb; }
    header h1 { color: #5b2a86; font-size: 1.4rem; }
    .message { padding: 0.75rem 1rem; border-radius: 0.75rem; margin-bottom: 1rem; line-height: 1.5; }
    .message.user { background: #e9ddf7; }
    .message.assistant { background: #fff; border: 1px solid #e3dcee; }
    .message.error { border-color: #e6a0a0; }
    .badge { font-size: 0.7rem; text-transform: uppercase; color: #5b2a86; }
    time { float: right; font-size: 0.75rem; color: #8a7fa0; }
    pre { background: #1d1530; color: #f7f5fb; padding: 0.75rem; border-radius: 0.5rem; overflow-x: auto; }
    footer { font-size: 0.8rem; color: #8a7fa0; text-align: center; margin-top: 2rem; }
  </style>
`
