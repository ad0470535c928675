package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data map[string]*domain.Session
	mu   sync.Mutex
}

func (s *SlowStore) Set(ctx context.Context, userID string, sess *domain.Session) error {
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.Session)
	}
	s.data[userID] = sess.Clone()
	return nil
}

func (s *SlowStore) Get(ctx context.Context, userID string) (*domain.Session, error) {
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.data[userID]; ok {
		return sess.Clone(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *SlowStore) Clear(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, userID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	return nil, nil
}

func TestManager_UpdateIsAtomicPerUser(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	ctx := context.Background()
	id := "race-test"
	writers := 20

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.Update(ctx, id, func(cur *domain.Session) (*domain.Session, error) {
				if cur == nil {
					cur = domain.NewSession(id, time.Now())
				}
				cur.Step++
				return cur, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Without per-user locking, read-modify-write would lose increments.
	got, err := manager.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, writers, got.Step)
}

func TestManager_UpdateNilClears(t *testing.T) {
	store := memory.NewStore()
	manager := session.NewManager(store)
	ctx := context.Background()

	require.NoError(t, manager.Update(ctx, "u", func(*domain.Session) (*domain.Session, error) {
		return domain.NewSession("u", time.Now()), nil
	}))
	require.NoError(t, manager.Update(ctx, "u", func(cur *domain.Session) (*domain.Session, error) {
		assert.NotNil(t, cur)
		return nil, nil
	}))

	_, err := store.Get(ctx, "u")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_UpdateErrorLeavesStoreUntouched(t *testing.T) {
	store := memory.NewStore()
	manager := session.NewManager(store)
	ctx := context.Background()
	boom := errors.New("boom")

	err := manager.Update(ctx, "u", func(*domain.Session) (*domain.Session, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	users, _ := store.List(ctx)
	assert.Empty(t, users)
}

type recordingLocker struct {
	mu     sync.Mutex
	locked []string
	fail   error
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if l.fail != nil {
		return nil, l.fail
	}
	l.mu.Lock()
	l.locked = append(l.locked, key)
	l.mu.Unlock()
	return func(context.Context) error { return nil }, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &recordingLocker{}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(time.Second))

	require.NoError(t, manager.Clear(context.Background(), "u1"))
	assert.Equal(t, []string{"u1"}, locker.locked)

	locker.fail = errors.New("redis down")
	err := manager.Clear(context.Background(), "u1")
	assert.ErrorContains(t, err, "distributed lock")
}

func TestManager_IndependentUsersDoNotBlock(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = manager.WithLock(ctx, "a", func(context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding
	defer close(release)

	done := make(chan struct{})
	go func() {
		_ = manager.WithLock(ctx, "b", func(context.Context) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for user b blocked on user a")
	}
}
