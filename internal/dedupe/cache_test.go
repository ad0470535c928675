package dedupe

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_Seen(t *testing.T) {
	cache := New(time.Minute, 10)

	assert.False(t, cache.Seen("a"), "first sighting")
	assert.True(t, cache.Seen("a"), "duplicate")
	assert.False(t, cache.Seen("b"))
}

func TestCache_Expiry(t *testing.T) {
	clock := time.Now()
	cache := New(time.Minute, 10)
	cache.now = func() time.Time { return clock }

	cache.Seen("a")
	clock = clock.Add(2 * time.Minute)

	assert.False(t, cache.Seen("a"), "expired keys are new again")
	assert.Equal(t, 1, cache.Len())
}

func TestCache_EvictsOldest(t *testing.T) {
	cache := New(time.Minute, 3)

	for i := 0; i < 4; i++ {
		cache.Seen(fmt.Sprintf("k%d", i))
	}

	assert.Equal(t, 3, cache.Len())
	assert.False(t, cache.Seen("k0"), "oldest key was evicted")
	assert.True(t, cache.Seen("k3"))
}

func TestCache_ConcurrentSeen(t *testing.T) {
	cache := New(time.Minute, 100)
	var firsts atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !cache.Seen("same") {
				firsts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), firsts.Load(), "exactly one caller sees the key as new")
}

func TestCache_Forget(t *testing.T) {
	cache := New(time.Minute, 10)

	assert.False(t, cache.Seen("a"))
	cache.Forget("a")
	assert.Equal(t, 0, cache.Len())
	assert.False(t, cache.Seen("a"), "forgotten keys are new again")
	assert.True(t, cache.Seen("a"))

	cache.Forget("missing")
	assert.Equal(t, 1, cache.Len())
}
