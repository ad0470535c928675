package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "intake"

// Metrics groups the collectors of the wizard.
type Metrics struct {
	Events      *prometheus.CounterVec // inbound events by outcome
	Sessions    *prometheus.CounterVec // session lifecycle transitions by type
	Answers     *prometheus.CounterVec // recorded answers by field
	Deliveries  *prometheus.CounterVec // outbound sends by action kind and result
	HandleTime  prometheus.Histogram   // engine latency per event
	ActiveLanes prometheus.Gauge       // users with an event lane open
	fields      map[string]struct{}
}

// NewMetrics creates the collectors and registers them with reg.
// knownFields bounds the cardinality of the answers counter.
func NewMetrics(reg prometheus.Registerer, knownFields []string) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound events by outcome.",
		}, []string{"outcome"}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session lifecycle transitions.",
		}, []string{"type"}),
		Answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Recorded answers per form field.",
		}, []string{"field"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Outbound messages by action kind and result.",
		}, []string{"kind", "result"}),
		HandleTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handle_duration_seconds",
			Help:      "Time spent in the conversation engine per event.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		ActiveLanes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_lanes",
			Help:      "Users with an open serial event lane.",
		}),
		fields: make(map[string]struct{}, len(knownFields)),
	}
	for _, f := range knownFields {
		m.fields[f] = struct{}{}
	}

	reg.MustRegister(m.Events, m.Sessions, m.Answers, m.Deliveries, m.HandleTime, m.ActiveLanes)
	return m
}

// Hooks returns lifecycle hooks that feed the session counters.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	count := func(ctx context.Context, e *domain.LifecycleEvent) {
		m.Sessions.WithLabelValues(string(e.Type)).Inc()
	}
	return domain.LifecycleHooks{
		OnStart: count,
		OnAnswer: func(ctx context.Context, e *domain.LifecycleEvent) {
			count(ctx, e)
			field := e.Field
			if _, ok := m.fields[field]; !ok {
				field = "other"
			}
			m.Answers.WithLabelValues(field).Inc()
		},
		OnComplete: count,
		OnCancel:   count,
		OnIgnored:  count,
	}
}

// ObserveEvent records an inbound event outcome ("handled", "duplicate", "rejected", "failed").
func (m *Metrics) ObserveEvent(outcome string, took time.Duration) {
	m.Events.WithLabelValues(outcome).Inc()
	if outcome == "handled" {
		m.HandleTime.Observe(took.Seconds())
	}
}

// ObserveDelivery records an outbound send result.
func (m *Metrics) ObserveDelivery(kind domain.ActionKind, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Deliveries.WithLabelValues(string(kind), result).Inc()
}

// LoggingHooks returns lifecycle hooks that log transitions at debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	log := func(ctx context.Context, e *domain.LifecycleEvent) {
		logger.DebugContext(ctx, string(e.Type), "user_id", e.UserID, "step", e.Step, "field", e.Field)
	}
	return domain.LifecycleHooks{OnStart: log, OnAnswer: log, OnComplete: log, OnCancel: log, OnIgnored: log}
}

// CombineHooks fans each callback out to every hook set, in order.
func CombineHooks(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	pick := func(get func(domain.LifecycleHooks) func(context.Context, *domain.LifecycleEvent)) func(context.Context, *domain.LifecycleEvent) {
		var fns []func(context.Context, *domain.LifecycleEvent)
		for _, s := range sets {
			if fn := get(s); fn != nil {
				fns = append(fns, fn)
			}
		}
		if len(fns) == 0 {
			return nil
		}
		return func(ctx context.Context, e *domain.LifecycleEvent) {
			for _, fn := range fns {
				fn(ctx, e)
			}
		}
	}
	return domain.LifecycleHooks{
		OnStart:    pick(func(h domain.LifecycleHooks) func(context.Context, *domain.LifecycleEvent) { return h.OnStart }),
		OnAnswer:   pick(func(h domain.LifecycleHooks) func(context.Context, *domain.LifecycleEvent) { return h.OnAnswer }),
		OnComplete: pick(func(h domain.LifecycleHooks) func(context.Context, *domain.LifecycleEvent) { return h.OnComplete }),
		OnCancel:   pick(func(h domain.LifecycleHooks) func(context.Context, *domain.LifecycleEvent) { return h.OnCancel }),
		OnIgnored:  pick(func(h domain.LifecycleHooks) func(context.Context, *domain.LifecycleEvent) { return h.OnIgnored }),
	}
}
