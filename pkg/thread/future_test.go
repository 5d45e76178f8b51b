package thread

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_ResolveOnce(t *testing.T) {
	f := newFuture[int]()

	f.resolve(42)
	f.resolve(99)
	f.reject(errors.New("late"))

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestFuture_Reject(t *testing.T) {
	f := newFuture[int]()
	boom := errors.New("boom")

	f.reject(boom)
	f.resolve(1) // no-op after settlement

	_, err := f.Await(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestFuture_AwaitContextCancel(t *testing.T) {
	f := newFuture[int]()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// the future itself is unsettled; a later resolve still works
	f.resolve(7)
	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestFuture_TryResult(t *testing.T) {
	f := newFuture[string]()

	_, _, settled := f.TryResult()
	assert.False(t, settled)

	f.resolve("done")

	v, err, settled := f.TryResult()
	assert.True(t, settled)
	assert.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestFuture_DoneChannel(t *testing.T) {
	f := newFuture[int]()

	select {
	case <-f.Done():
		t.Fatal("unsettled future must not be done")
	default:
	}

	f.resolve(1)

	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("settled future must close Done")
	}
}
