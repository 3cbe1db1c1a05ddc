package client

import "sync"

// State is everything the controller remembers between sends.
type State struct {
	mu        sync.Mutex
	sessionID string
	mode      Mode
	awaiting  bool
	// deliberation asks council replies to include each mentor's answer.
	deliberation bool
}

func NewState() *State {
	return &State{mode: ModeKnowledgeBase}
}

// TryBegin moves Idle to AwaitingResponse. It returns false if a request is
// already in flight.
func (s *State) TryBegin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.awaiting {
		return false
	}
	s.awaiting = true
	return true
}

func (s *State) End() {
	s.mu.Lock()
	s.awaiting = false
	s.mu.Unlock()
}

func (s *State) Awaiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaiting
}

func (s *State) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *State) SetSessionID(id string) {
	s.mu.Lock()
	s.sessionID = id
	s.mu.Unlock()
}

func (s *State) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *State) SetMode(m Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

func (s *State) Deliberation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deliberation
}

func (s *State) SetDeliberation(on bool) {
	s.mu.Lock()
	s.deliberation = on
	s.mu.Unlock()
}
