package domain

import (
	"context"
	"time"
)

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventSessionStart    EventType = "session_start"
	EventAnswerRecorded  EventType = "answer_recorded"
	EventSessionComplete EventType = "session_complete"
	EventSessionCancel   EventType = "session_cancel"
	EventInputIgnored    EventType = "input_ignored"
)

// LifecycleEvent describes a committed session transition.
// It never carries answer values.
type LifecycleEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
	Step      int       `json:"step"`
	Field     string    `json:"field,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStart    func(context.Context, *LifecycleEvent)
	OnAnswer   func(context.Context, *LifecycleEvent)
	OnComplete func(context.Context, *LifecycleEvent)
	OnCancel   func(context.Context, *LifecycleEvent)
	OnIgnored  func(context.Context, *LifecycleEvent)
}
