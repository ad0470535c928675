package dispatch

import (
	"errors"
	"sync"
)

// ErrLanesClosed is returned by Submit after Close.
var ErrLanesClosed = errors.New("lanes closed")

type lane struct {
	pending []func()
}

// Lanes runs submitted work serially per key and concurrently across keys.
// A lane's goroutine exits as soon as its queue drains.
type Lanes struct {
	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
	wg     sync.WaitGroup

	// onChange, when set, receives the number of open lanes after each change.
	onChange func(open int)
}

// NewLanes creates an empty lane set.
func NewLanes() *Lanes {
	return &Lanes{lanes: make(map[string]*lane)}
}

// Submit queues fn behind earlier work for key.
func (l *Lanes) Submit(key string, fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLanesClosed
	}

	ln, ok := l.lanes[key]
	if !ok {
		ln = &lane{}
		l.lanes[key] = ln
		l.wg.Add(1)
		go l.run(key, ln)
		l.notifyLocked()
	}
	ln.pending = append(ln.pending, fn)
	return nil
}

func (l *Lanes) run(key string, ln *lane) {
	defer l.wg.Done()
	for {
		l.mu.Lock()
		if len(ln.pending) == 0 {
			delete(l.lanes, key)
			l.notifyLocked()
			l.mu.Unlock()
			return
		}
		fn := ln.pending[0]
		ln.pending[0] = nil
		ln.pending = ln.pending[1:]
		l.mu.Unlock()

		fn()
	}
}

func (l *Lanes) notifyLocked() {
	if l.onChange != nil {
		l.onChange(len(l.lanes))
	}
}

// Open returns the number of lanes with queued or running work.
func (l *Lanes) Open() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lanes)
}

// Close stops accepting work and waits for queued work to finish.
func (l *Lanes) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.wg.Wait()
}
