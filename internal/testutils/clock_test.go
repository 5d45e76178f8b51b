package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goworkers/threadpool/pkg/types"
)

func TestClockWrapper_Now(t *testing.T) {
	mock := NewMockClock(t)
	clk := NewClockWrapper(mock)

	start := clk.Now()
	mock.Advance(3 * time.Second).MustWait(context.Background())

	assert.Equal(t, 3*time.Second, clk.Since(start))
}

func TestClockWrapper_AfterFunc(t *testing.T) {
	mock := NewMockClock(t)
	clk := NewClockWrapper(mock)

	fired := make(chan struct{})
	clk.AfterFunc(time.Second, func() { close(fired) })

	mock.Advance(time.Second).MustWait(context.Background())

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timer callback did not fire")
	}
}

func TestClockWrapper_TimerStop(t *testing.T) {
	mock := NewMockClock(t)
	clk := NewClockWrapper(mock)

	timer := clk.AfterFunc(time.Second, func() {
		t.Error("stopped timer fired")
	})
	assert.True(t, timer.Stop())

	mock.Advance(2 * time.Second).MustWait(context.Background())
}

func TestWithMockClock(t *testing.T) {
	mock := NewMockClock(t)
	ctx := WithMockClock(context.Background(), mock)

	clk := types.ClockFromContext(ctx)
	require.NotNil(t, clk)
	assert.True(t, clk.Now().Equal(mock.Now()))

	// without injection the fallback is the real clock
	real := types.ClockFromContext(context.Background())
	assert.WithinDuration(t, time.Now(), real.Now(), time.Minute)
}
