package dispatch

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanes_PreserveOrderPerKey(t *testing.T) {
	lanes := NewLanes()

	var mu sync.Mutex
	got := map[string][]int{}

	for i := 0; i < 100; i++ {
		for _, key := range []string{"a", "b", "c"} {
			key, i := key, i
			require.NoError(t, lanes.Submit(key, func() {
				mu.Lock()
				got[key] = append(got[key], i)
				mu.Unlock()
			}))
		}
	}
	lanes.Close()

	for _, key := range []string{"a", "b", "c"} {
		require.Len(t, got[key], 100)
		for i, v := range got[key] {
			assert.Equal(t, i, v, "key %s out of order", key)
		}
	}
	assert.Equal(t, 0, lanes.Open())
}

func TestLanes_KeysRunConcurrently(t *testing.T) {
	lanes := NewLanes()
	defer lanes.Close()

	block := make(chan struct{})
	require.NoError(t, lanes.Submit("slow", func() { <-block }))

	done := make(chan struct{})
	require.NoError(t, lanes.Submit("fast", func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lane for another key was blocked")
	}
	close(block)
}

func TestLanes_SubmitAfterClose(t *testing.T) {
	lanes := NewLanes()
	lanes.Close()
	assert.ErrorIs(t, lanes.Submit("k", func() {}), ErrLanesClosed)
}

func TestLanes_ReportsOpenCount(t *testing.T) {
	lanes := NewLanes()
	var mu sync.Mutex
	var peak int
	lanes.onChange = func(open int) {
		mu.Lock()
		if open > peak {
			peak = open
		}
		mu.Unlock()
	}

	block := make(chan struct{})
	for i := 0; i < 3; i++ {
		require.NoError(t, lanes.Submit(fmt.Sprint(i), func() { <-block }))
	}
	close(block)
	lanes.Close()

	assert.Equal(t, 3, peak)
	assert.Equal(t, 0, lanes.Open())
}
