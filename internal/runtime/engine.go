package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/form"
	"github.com/aretw0/intake/pkg/session"
)

// Engine is the per-user conversation state machine.
// It owns no session state itself: every call loads, transitions and stores
// the user's session inside the Session Manager's per-user lock.
type Engine struct {
	form          *form.Definition
	sessions      *session.Manager
	hooks         domain.LifecycleHooks
	logger        *slog.Logger
	idleCancelAck bool
	now           func() time.Time
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a structured logger. Answer values are never logged.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithIdleCancelAck decides whether the cancel keyword sent with nothing in
// progress is acknowledged (true, the default) or silently ignored.
func WithIdleCancelAck(ack bool) EngineOption {
	return func(e *Engine) {
		e.idleCancelAck = ack
	}
}

// WithClock overrides the time source used for session timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine for a form definition backed by a session manager.
func NewEngine(def *form.Definition, sessions *session.Manager, opts ...EngineOption) *Engine {
	e := &Engine{
		form:          def,
		sessions:      sessions,
		logger:        logging.NewNop(),
		idleCancelAck: true,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Form returns the definition the engine walks through.
func (e *Engine) Form() *form.Definition {
	return e.form
}

// Handle processes one inbound event and returns the actions the host must perform.
//
// The returned error only reports storage or locking failures; with the
// in-memory store Handle never fails. Hooks fire after the new session state
// has been committed, so a failed delivery can never roll it back.
func (e *Engine) Handle(ctx context.Context, ev domain.Event) ([]domain.Action, error) {
	var result Result
	err := e.sessions.Update(ctx, ev.UserID, func(current *domain.Session) (*domain.Session, error) {
		result = Transition(e.form, current, ev, TransitionOptions{
			IdleCancelAck: e.idleCancelAck,
			Now:           e.now().UTC(),
		})
		return result.Next, nil
	})
	if err != nil {
		return nil, fmt.Errorf("handle event for user %s: %w", ev.UserID, err)
	}

	e.logger.Debug("event handled",
		"user_id", ev.UserID,
		"from", result.From,
		"to", result.To,
		"actions", len(result.Actions),
	)
	if result.Reset {
		e.logger.Warn("session referenced a step outside the form; reset to idle",
			"user_id", ev.UserID,
			"steps", e.form.StepCount(),
		)
	}

	for i := range result.Events {
		e.emit(ctx, &result.Events[i])
	}

	return result.Actions, nil
}

func (e *Engine) emit(ctx context.Context, ev *domain.LifecycleEvent) {
	var hook func(context.Context, *domain.LifecycleEvent)
	switch ev.Type {
	case domain.EventSessionStart:
		hook = e.hooks.OnStart
	case domain.EventAnswerRecorded:
		hook = e.hooks.OnAnswer
	case domain.EventSessionComplete:
		hook = e.hooks.OnComplete
	case domain.EventSessionCancel:
		hook = e.hooks.OnCancel
	case domain.EventInputIgnored:
		hook = e.hooks.OnIgnored
	}
	if hook != nil {
		hook(ctx, ev)
	}
}
