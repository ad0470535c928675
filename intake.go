package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/internal/runtime"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/dispatch"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/form"
	"github.com/aretw0/intake/pkg/observability"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/session"
)

// Bot wires a form, a session store, the engine and a dispatcher together.
type Bot struct {
	form       *form.Definition
	sessions   *session.Manager
	engine     *runtime.Engine
	dispatcher *dispatch.Dispatcher
}

type options struct {
	form          *form.Definition
	store         ports.SessionStore
	locker        ports.DistributedLocker
	logger        *slog.Logger
	metrics       *observability.Metrics
	hooks         []domain.LifecycleHooks
	idleCancelAck bool
	dispatchOpts  []dispatch.Option
}

// Option configures a Bot.
type Option func(*options)

// WithForm replaces the default registration form.
func WithForm(def *form.Definition) Option {
	return func(o *options) {
		o.form = def
	}
}

// WithStore sets the session store. The default keeps sessions in memory.
func WithStore(store ports.SessionStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithLocker adds a distributed lock around each user's session update.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(o *options) {
		o.locker = locker
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records engine and delivery metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithLifecycleHooks registers additional lifecycle hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, hooks)
	}
}

// WithIdleCancelAck controls whether a cancel with no registration in
// progress is acknowledged. Defaults to true.
func WithIdleCancelAck(ack bool) Option {
	return func(o *options) {
		o.idleCancelAck = ack
	}
}

// WithDispatchOptions passes options through to the dispatcher.
func WithDispatchOptions(opts ...dispatch.Option) Option {
	return func(o *options) {
		o.dispatchOpts = append(o.dispatchOpts, opts...)
	}
}

// New builds a Bot delivering through messenger. admin is the transport
// address that receives every completed record.
func New(messenger dispatch.Messenger, admin string, opts ...Option) (*Bot, error) {
	o := &options{
		logger:        logging.NewNop(),
		idleCancelAck: true,
	}
	for _, opt := range opts {
		opt(o)
	}

	if messenger == nil {
		return nil, errors.New("intake: messenger is required")
	}
	if admin == "" {
		return nil, errors.New("intake: admin recipient is required")
	}
	if o.form == nil {
		o.form = form.Default()
	} else if err := o.form.Validate(); err != nil {
		return nil, fmt.Errorf("intake: %w", err)
	}
	if o.store == nil {
		o.store = memory.NewStore()
	}

	managerOpts := []session.Option{session.WithLogger(o.logger)}
	if o.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(o.locker))
	}
	sessions := session.NewManager(o.store, managerOpts...)

	hooks := append([]domain.LifecycleHooks{observability.LoggingHooks(o.logger)}, o.hooks...)
	if o.metrics != nil {
		hooks = append(hooks, o.metrics.Hooks())
	}
	engine := runtime.NewEngine(o.form, sessions,
		runtime.WithLogger(o.logger),
		runtime.WithIdleCancelAck(o.idleCancelAck),
		runtime.WithLifecycleHooks(observability.CombineHooks(hooks...)),
	)

	dispatchOpts := []dispatch.Option{dispatch.WithLogger(o.logger)}
	if o.metrics != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithMetrics(o.metrics))
	}
	dispatchOpts = append(dispatchOpts, o.dispatchOpts...)

	return &Bot{
		form:       o.form,
		sessions:   sessions,
		engine:     engine,
		dispatcher: dispatch.New(engine, messenger, admin, dispatchOpts...),
	}, nil
}

// Form returns the active form.
func (b *Bot) Form() *form.Definition {
	return b.form
}

// Sessions returns the session manager.
func (b *Bot) Sessions() *session.Manager {
	return b.sessions
}

// Dispatcher returns the dispatcher, for transports that drive it directly.
func (b *Bot) Dispatcher() *dispatch.Dispatcher {
	return b.dispatcher
}

// Handle runs one event through the engine without delivering anything.
func (b *Bot) Handle(ctx context.Context, ev domain.Event) ([]domain.Action, error) {
	return b.engine.Handle(ctx, ev)
}

// Submit queues an event on its user's lane.
func (b *Bot) Submit(ctx context.Context, ev domain.Event) error {
	return b.dispatcher.Submit(ctx, ev)
}

// Dispatch processes one event and delivers its replies before returning.
func (b *Bot) Dispatch(ctx context.Context, ev domain.Event) error {
	return b.dispatcher.Dispatch(ctx, ev)
}

// Close drains queued events.
func (b *Bot) Close() {
	b.dispatcher.Close()
}
