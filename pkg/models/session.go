package models

import (
	"sync"
	"time"
)

// TokenCounters tracks per-session token usage for context-budget accounting.
type TokenCounters struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Session is a persistent conversational context keyed by SessionID and
// owned by a UserID. A Session owns its message history exclusively; the
// Agent Loop is the only writer of History.
type Session struct {
	mu sync.Mutex

	SessionID         string            `json:"session_id"`
	UserID            string            `json:"user_id"`
	Channel           string            `json:"channel"`
	CreatedAt         time.Time         `json:"created_at"`
	LastActivity      time.Time         `json:"last_activity"`
	OwnerUserID       string            `json:"owner_user_id"`
	History           []Message         `json:"-"`
	TokenCounters     TokenCounters     `json:"token_counters"`
	ToolUsageCounters map[string]int    `json:"tool_usage_counters"`
	IterationCount    int               `json:"iteration_count"`
}

// NewSession creates a session owned by userID on the given channel.
func NewSession(sessionID, userID, channel string) *Session {
	now := time.Now()
	return &Session{
		SessionID:         sessionID,
		UserID:            userID,
		Channel:           channel,
		CreatedAt:         now,
		LastActivity:      now,
		OwnerUserID:       userID,
		ToolUsageCounters: make(map[string]int),
	}
}

// AppendMessage appends msg to the session's history and bumps LastActivity.
// It is safe for concurrent use; callers are still expected to serialize
// requests per session (spec §5), this lock only protects bookkeeping reads
// (e.g. an SSE status handler) that run concurrently with the loop.
func (s *Session) AppendMessage(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History = append(s.History, msg)
	s.LastActivity = time.Now()
}

// HistorySnapshot returns a copy of the session's message history.
func (s *Session) HistorySnapshot() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.History))
	copy(out, s.History)
	return out
}

// RecordToolUse increments the usage counter for a tool name.
func (s *Session) RecordToolUse(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ToolUsageCounters == nil {
		s.ToolUsageCounters = make(map[string]int)
	}
	s.ToolUsageCounters[name]++
}

// Touch updates LastActivity without mutating history.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActivity = time.Now()
}

// IdleSince reports how long the session has been without activity.
func (s *Session) IdleSince() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.LastActivity)
}
