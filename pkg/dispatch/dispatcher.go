package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/intake/internal/dedupe"
	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/observability"
	"github.com/cenkalti/backoff/v5"
)

// Default delivery and dedupe settings.
const (
	DefaultMaxTries   = 4
	DefaultDedupeTTL  = 10 * time.Minute
	DefaultDedupeSize = 10000
)

// ErrInvalidEvent is returned for events without a user ID.
var ErrInvalidEvent = errors.New("event has no user id")

// ErrDuplicateEvent is returned when an event ID was already processed.
var ErrDuplicateEvent = errors.New("duplicate event")

// Engine is the part of the conversation engine the dispatcher needs.
type Engine interface {
	Handle(ctx context.Context, ev domain.Event) ([]domain.Action, error)
}

// Dispatcher drives the engine for inbound events and delivers its output.
type Dispatcher struct {
	engine    Engine
	messenger Messenger
	admin     string

	logger   *slog.Logger
	metrics  *observability.Metrics
	seen     *dedupe.Cache
	maxInput int
	maxTries uint
	newBack  func() backoff.BackOff
	lanes    *Lanes
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics records event and delivery outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithDedupe overrides the duplicate window. A zero size disables dedupe.
func WithDedupe(ttl time.Duration, size int) Option {
	return func(d *Dispatcher) {
		if size <= 0 {
			d.seen = nil
			return
		}
		d.seen = dedupe.New(ttl, size)
	}
}

// WithMaxInputSize sets the byte limit for inbound text.
func WithMaxInputSize(n int) Option {
	return func(d *Dispatcher) {
		d.maxInput = n
	}
}

// WithRetry sets the delivery attempt limit and backoff policy.
func WithRetry(maxTries uint, newBackOff func() backoff.BackOff) Option {
	return func(d *Dispatcher) {
		if maxTries > 0 {
			d.maxTries = maxTries
		}
		if newBackOff != nil {
			d.newBack = newBackOff
		}
	}
}

// New creates a dispatcher. admin is the transport address that receives forwarded records.
func New(engine Engine, messenger Messenger, admin string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		engine:    engine,
		messenger: messenger,
		admin:     admin,
		logger:    logging.NewNop(),
		seen:      dedupe.New(DefaultDedupeTTL, DefaultDedupeSize),
		maxInput:  DefaultMaxInputSize,
		maxTries:  DefaultMaxTries,
		newBack: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
		lanes: NewLanes(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics != nil {
		gauge := d.metrics.ActiveLanes
		d.lanes.onChange = func(open int) { gauge.Set(float64(open)) }
	}
	return d
}

// Submit queues an event on its user's lane and returns immediately.
// Errors are logged; use Dispatch to handle them inline.
func (d *Dispatcher) Submit(ctx context.Context, ev domain.Event) error {
	if ev.UserID == "" {
		d.observe("rejected", 0)
		return ErrInvalidEvent
	}
	return d.lanes.Submit(ev.UserID, func() {
		if err := d.Dispatch(ctx, ev); err != nil && !errors.Is(err, ErrDuplicateEvent) {
			d.logger.Error("dispatch failed", "user_id", ev.UserID, "event_id", ev.ID, "err", err)
		}
	})
}

// Dispatch processes one event synchronously and delivers every resulting message.
// Delivery failures never undo the session change the engine already committed.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.Event) error {
	msgs, err := d.Process(ctx, ev)
	if err != nil {
		return err
	}

	var errs []error
	for _, msg := range msgs {
		if err := d.deliver(ctx, msg); err != nil {
			d.logger.Error("delivery failed",
				"kind", msg.Kind,
				"user_id", ev.UserID,
				"to", msg.To,
				"err", err,
			)
			errs = append(errs, fmt.Errorf("deliver %s: %w", msg.Kind, err))
		}
	}
	return errors.Join(errs...)
}

// Respond processes an event for a caller that delivers the user's replies
// itself. Forwarded records are always sent to the admin through the
// Messenger and never returned; the remaining messages are.
func (d *Dispatcher) Respond(ctx context.Context, ev domain.Event) ([]Outbound, error) {
	msgs, err := d.Process(ctx, ev)
	if err != nil {
		return nil, err
	}

	replies := make([]Outbound, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Kind != domain.ActionForwardToAdmin {
			replies = append(replies, msg)
			continue
		}
		if err := d.deliver(ctx, msg); err != nil {
			d.logger.Error("delivery failed",
				"kind", msg.Kind,
				"user_id", ev.UserID,
				"to", msg.To,
				"err", err,
			)
		}
	}
	return replies, nil
}

// Process validates and runs an event through the engine and returns the
// rendered messages without sending them.
//
// An event ID is claimed only after the input passes validation and is
// released again when the engine fails, so a redelivered event is retried
// rather than dropped as a duplicate.
func (d *Dispatcher) Process(ctx context.Context, ev domain.Event) ([]Outbound, error) {
	if ev.UserID == "" {
		d.observe("rejected", 0)
		return nil, ErrInvalidEvent
	}

	text, err := SanitizeInput(ev.Text, d.maxInput)
	if err != nil {
		d.logger.Warn("input rejected", "user_id", ev.UserID, "size", len(ev.Text), "err", err)
		d.observe("rejected", 0)
		return nil, err
	}
	ev.Text = text

	key := ""
	if ev.ID != "" && d.seen != nil {
		key = ev.UserID + ":" + ev.ID
		if d.seen.Seen(key) {
			d.logger.Debug("duplicate event dropped", "user_id", ev.UserID, "event_id", ev.ID)
			d.observe("duplicate", 0)
			return nil, ErrDuplicateEvent
		}
	}

	began := time.Now()
	actions, err := d.engine.Handle(ctx, ev)
	if err != nil {
		if key != "" {
			d.seen.Forget(key)
		}
		d.observe("failed", 0)
		return nil, err
	}
	d.observe("handled", time.Since(began))

	return Render(actions, ev.ReplyTo(), d.admin), nil
}

func (d *Dispatcher) deliver(ctx context.Context, msg Outbound) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, d.messenger.Send(ctx, msg)
	},
		backoff.WithBackOff(d.newBack()),
		backoff.WithMaxTries(d.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			d.logger.Warn("delivery retry", "kind", msg.Kind, "to", msg.To, "in", next, "err", err)
		}),
	)
	if d.metrics != nil {
		d.metrics.ObserveDelivery(msg.Kind, err)
	}
	return err
}

func (d *Dispatcher) observe(outcome string, took time.Duration) {
	if d.metrics != nil {
		d.metrics.ObserveEvent(outcome, took)
	}
}

// Close waits for queued events to finish and stops accepting new ones.
func (d *Dispatcher) Close() {
	d.lanes.Close()
}
