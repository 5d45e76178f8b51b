package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskError(t *testing.T) {
	cause := errors.New("division by zero")
	te := NewTaskError(cause)

	assert.Equal(t, "division by zero", te.Message)
	assert.Equal(t, "task error: division by zero", te.Error())
	assert.ErrorIs(t, te, cause)
	assert.Empty(t, te.Stack)

	te.WithStack("goroutine 1 [running]:")
	assert.NotEmpty(t, te.Stack)
}

func TestTaskError_WrappedMatchable(t *testing.T) {
	te := NewTaskError(errors.New("boom"))
	wrapped := fmt.Errorf("exec: %w", te)

	var got *TaskError
	require.ErrorAs(t, wrapped, &got)
	assert.Equal(t, "boom", got.Message)
}

func TestCrashError(t *testing.T) {
	ce := NewCrashError("w-42", nil)
	assert.Equal(t, "worker w-42 crashed", ce.Error())
	assert.ErrorIs(t, ce, ErrWorkerCrashed)

	withCause := NewCrashError("w-43", errors.New("oom"))
	assert.Contains(t, withCause.Error(), "oom")
	assert.ErrorIs(t, withCause, ErrWorkerCrashed)
}
