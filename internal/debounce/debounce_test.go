package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroWindowIsPassThrough(t *testing.T) {
	var mu sync.Mutex
	var flushed [][]*string
	d := New(0, nil, func(items []*string) {
		mu.Lock()
		defer mu.Unlock()
		flushed = append(flushed, items)
	})

	a, b := "a", "b"
	d.Enqueue(&a)
	d.Enqueue(&b)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, flushed, 2)
	assert.Equal(t, "a", *flushed[0][0])
	assert.Equal(t, "b", *flushed[1][0])
}

func TestBatchesByKeyWithinWindow(t *testing.T) {
	var mu sync.Mutex
	var flushed [][]*string
	done := make(chan struct{})

	d := New(30*time.Millisecond, func(s *string) string { return "k" }, func(items []*string) {
		mu.Lock()
		flushed = append(flushed, items)
		mu.Unlock()
		close(done)
	})

	a, b, c := "a", "b", "c"
	d.Enqueue(&a)
	d.Enqueue(&b)
	d.Enqueue(&c)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("flush never happened")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, flushed, 1)
	assert.Len(t, flushed[0], 3)
}

func TestResolveMsPrecedence(t *testing.T) {
	cfg := Config{DebounceMs: 100, ByChannel: map[string]int{"slack": 50}}
	override := 10

	assert.Equal(t, 10*time.Millisecond, ResolveMs(cfg, "slack", &override))
	assert.Equal(t, 50*time.Millisecond, ResolveMs(cfg, "slack", nil))
	assert.Equal(t, 100*time.Millisecond, ResolveMs(cfg, "discord", nil))
}

func TestStopDropsPendingBatches(t *testing.T) {
	flushedCount := 0
	d := New(50*time.Millisecond, func(s *string) string { return "k" }, func(items []*string) {
		flushedCount++
	})
	a := "a"
	d.Enqueue(&a)
	d.Stop()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, flushedCount)
}
