package client

import (
	"fmt"
	"strings"
)

type Mode string

const (
	ModeKnowledgeBase Mode = "knowledge-base"
	ModeCouncil       Mode = "council"
)

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ModeKnowledgeBase), "kb", "rag":
		return ModeKnowledgeBase, nil
	case string(ModeCouncil):
		return ModeCouncil, nil
	}
	return "", fmt.Errorf("unknown mode '%s': use knowledge-base (kb) or council", s)
}

func (m Mode) UseCouncil() bool {
	return m == ModeCouncil
}

func (m Mode) Label() string {
	if m == ModeCouncil {
		return "Marketing Council"
	}
	return "Knowledge Base"
}
