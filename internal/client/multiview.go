package client

// MultiView fans every call out to each view in order.
type MultiView []View

func (m MultiView) AppendMessage(msg Message) {
	for _, v := range m {
		v.AppendMessage(msg)
	}
}

func (m MultiView) ShowTyping() {
	for _, v := range m {
		v.ShowTyping()
	}
}

func (m MultiView) HideTyping() {
	for _, v := range m {
		v.HideTyping()
	}
}

func (m MultiView) HideWelcome() {
	for _, v := range m {
		v.HideWelcome()
	}
}

func (m MultiView) ScrollToBottom() {
	for _, v := range m {
		v.ScrollToBottom()
	}
}

func (m MultiView) ClearInput() {
	for _, v := range m {
		v.ClearInput()
	}
}

func (m MultiView) SetStatus(status Status) {
	for _, v := range m {
		v.SetStatus(status)
	}
}

func (m MultiView) SetMode(mode Mode) {
	for _, v := range m {
		v.SetMode(mode)
	}
}
