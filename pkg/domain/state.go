package domain

import "time"

// SessionState enumerates the phases of a conversation.
type SessionState string

const (
	StateIdle     SessionState = "idle"     // Nothing in progress
	StateAwaiting SessionState = "awaiting" // Waiting for the answer to Session.Step
	StateComplete SessionState = "complete" // Transient; collapses to idle within the same call
)

// Answer is one collected value, keyed by the step's field name.
type Answer struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Session is the per-user conversation record.
type Session struct {
	UserID string       `json:"user_id"`
	State  SessionState `json:"state"`

	// Step is the index of the active step. Only meaningful while State == StateAwaiting.
	Step int `json:"step"`

	// Answers holds one entry per completed step, in step order.
	Answers []Answer `json:"answers,omitempty"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a session awaiting the first step.
func NewSession(userID string, now time.Time) *Session {
	return &Session{
		UserID:    userID,
		State:     StateAwaiting,
		Step:      0,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// IsIdle reports whether nothing is in progress. A nil session is idle.
func (s *Session) IsIdle() bool {
	return s == nil || s.State == StateIdle || s.State == ""
}

// Answer returns the recorded value for a field.
func (s *Session) Answer(field string) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, a := range s.Answers {
		if a.Field == field {
			return a.Value, true
		}
	}
	return "", false
}

// Clone returns a deep copy so stores never share slices with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Answers != nil {
		out.Answers = make([]Answer, len(s.Answers))
		copy(out.Answers, s.Answers)
	}
	return &out
}
