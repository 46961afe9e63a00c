package budget

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRolloverTickerRunsUntilCancelled(t *testing.T) {
	l := New(10, 100, 5)
	ticker, err := NewRolloverTicker(l, "@every 10ms", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		ticker.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ticker did not stop after context cancellation")
	}
}
