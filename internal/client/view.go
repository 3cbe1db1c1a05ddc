package client

type Status int

const (
	StatusUnknown Status = iota
	StatusConnected
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// View renders the conversation. Calls come from a single goroutine at a time.
type View interface {
	AppendMessage(msg Message)
	ShowTyping()
	HideTyping()
	HideWelcome()
	ScrollToBottom()
	ClearInput()
	SetStatus(status Status)
	SetMode(mode Mode)
}
