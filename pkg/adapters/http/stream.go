package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
)

// StreamManager fans lifecycle events out to SSE subscribers, keyed by user ID.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // UserID -> set of channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a channel for userID. The returned func unsubscribes and closes it.
func (sm *StreamManager) Subscribe(userID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[userID]; !ok {
		sm.subscribers[userID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[userID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[userID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(sm.subscribers, userID)
				}
			}
			close(ch)
		})
	}
}

// Broadcast sends msg to every subscriber of userID. Slow subscribers miss messages.
func (sm *StreamManager) Broadcast(userID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[userID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("sse buffer full, dropping message", "user_id", userID)
		}
	}
}

// Subscribers returns the number of open subscriptions for userID.
func (sm *StreamManager) Subscribers(userID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[userID])
}

// Hooks publishes every lifecycle event as JSON to the user's subscribers.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	publish := func(ctx context.Context, e *domain.LifecycleEvent) {
		data, err := json.Marshal(e)
		if err != nil {
			sm.logger.Error("encode lifecycle event", "err", err)
			return
		}
		sm.Broadcast(e.UserID, string(data))
	}
	return domain.LifecycleHooks{
		OnStart:    publish,
		OnAnswer:   publish,
		OnComplete: publish,
		OnCancel:   publish,
		OnIgnored:  publish,
	}
}
