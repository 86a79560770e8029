// Package domain contains core domain types for the free talk tutor.
package domain

import (
	"time"
)

// ModeFreeTalk is the only conversation mode currently offered.
const ModeFreeTalk = "free_talk"

// Role identifies the speaker of a message.
type Role string

const (
	// RoleSystem is synthesized at prompt-build time and never stored.
	RoleSystem Role = "system"
	// RoleUser marks a learner utterance.
	RoleUser Role = "user"
	// RoleAssistant marks a tutor utterance.
	RoleAssistant Role = "assistant"
)

// Turn is one stored utterance in a session's history.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Message is the role/content projection of a turn that is sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Metadata holds per-session flags.
type Metadata struct {
	Greeted bool
}

// Session holds the state of one ongoing conversation.
type Session struct {
	ID         string
	Mode       string
	Metadata   Metadata
	History    []Turn
	CreatedAt  time.Time
	LastActive time.Time
}

// Messages returns the history stripped of timestamps, in stored order.
func (s *Session) Messages() []Message {
	out := make([]Message, 0, len(s.History))
	for _, t := range s.History {
		out = append(out, Message{Role: t.Role, Content: t.Content})
	}
	return out
}

// Expired reports whether the session has been idle for longer than timeout.
func (s *Session) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActive) > timeout
}

// RecentTurns returns the last n turns from history.
func (s *Session) RecentTurns(n int) []Turn {
	if n >= len(s.History) {
		return s.History
	}
	return s.History[len(s.History)-n:]
}
