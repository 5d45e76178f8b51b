package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goworkers/threadpool/pkg/types"
)

func TestBuffer_Access(t *testing.T) {
	b := New(16)
	assert.Equal(t, 16, b.Len())
	assert.False(t, b.IsDetached())

	data, err := b.Bytes()
	require.NoError(t, err)
	assert.Len(t, data, 16)

	data[0] = 0xFF
	again, err := b.Bytes()
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), again[0], "Bytes must not copy")
}

func TestBuffer_FromBytes(t *testing.T) {
	src := []byte{1, 2, 3}
	b := FromBytes(src)
	assert.Equal(t, 3, b.Len())

	data, err := b.Bytes()
	require.NoError(t, err)
	assert.Equal(t, src, data)
}

func TestBuffer_DetachRevokesAccess(t *testing.T) {
	b := New(8)
	require.NoError(t, b.Detach())

	assert.True(t, b.IsDetached())
	_, err := b.Bytes()
	assert.ErrorIs(t, err, types.ErrBufferDetached)

	// length stays readable while in transit
	assert.Equal(t, 8, b.Len())
}

func TestBuffer_DoubleDetach(t *testing.T) {
	b := New(8)
	require.NoError(t, b.Detach())

	// the same region cannot be transferred twice
	err := b.Detach()
	assert.ErrorIs(t, err, types.ErrBufferDetached)
}

func TestBuffer_AttachRestoresAccess(t *testing.T) {
	b := New(8)
	require.NoError(t, b.Detach())
	require.NoError(t, b.Attach())

	data, err := b.Bytes()
	require.NoError(t, err)
	assert.Len(t, data, 8)

	// transferable again after a round trip
	assert.NoError(t, b.Detach())
}

func TestSharedBuffer_AtomicOps(t *testing.T) {
	s := NewShared(4)
	assert.Equal(t, 4, s.Words())

	s.Store(0, 41)
	assert.Equal(t, uint32(41), s.Load(0))

	assert.Equal(t, uint32(42), s.Add(0, 1))

	assert.True(t, s.CompareAndSwap(0, 42, 7))
	assert.False(t, s.CompareAndSwap(0, 42, 9))
	assert.Equal(t, uint32(7), s.Load(0))
}

func TestViews_ReadWrite(t *testing.T) {
	b := New(16)

	u := NewUint32View(b)
	assert.Equal(t, 4, u.Len())
	require.NoError(t, u.Set(2, 0xDEAD))
	v, err := u.At(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEAD), v)

	f := NewFloat64View(b)
	assert.Equal(t, 2, f.Len())
	require.NoError(t, f.Set(0, 3.5))
	fv, err := f.At(0)
	require.NoError(t, err)
	assert.Equal(t, 3.5, fv)
}

func TestViews_DetachedBuffer(t *testing.T) {
	b := New(8)
	u := NewUint32View(b)
	require.NoError(t, b.Detach())

	_, err := u.At(0)
	assert.ErrorIs(t, err, types.ErrBufferDetached)
	assert.ErrorIs(t, u.Set(0, 1), types.ErrBufferDetached)
}
