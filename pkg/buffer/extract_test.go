package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_Dedup(t *testing.T) {
	bufA := New(8)

	// the same buffer reachable through two different paths
	out := ExtractArgs([]any{bufA, map[string]any{"nested": bufA}})

	assert.Len(t, out, 1)
	assert.Same(t, bufA, out[0])
}

func TestExtract_SharedExcluded(t *testing.T) {
	shared := NewShared(4)
	exclusive := New(8)

	out := ExtractArgs([]any{shared, exclusive})

	assert.Len(t, out, 1)
	assert.Same(t, exclusive, out[0])
}

func TestExtract_ViewContributesUnderlying(t *testing.T) {
	buf := New(16)
	view := NewUint32View(buf)

	out := Extract(view)

	assert.Len(t, out, 1)
	assert.Same(t, buf, out[0], "a view contributes its buffer, not itself")
}

func TestExtract_ViewAndBufferDedup(t *testing.T) {
	buf := New(16)
	view := NewFloat64View(buf)

	out := ExtractArgs([]any{buf, view})

	assert.Len(t, out, 1)
}

func TestExtract_Scalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{"nil", nil},
		{"int", 42},
		{"string", "hello"},
		{"float", 3.14},
		{"bool", true},
		{"nil slice", []any(nil)},
		{"nil map", map[string]any(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, Extract(tt.in))
		})
	}
}

func TestExtract_NestedStructures(t *testing.T) {
	b1 := New(4)
	b2 := New(4)
	b3 := New(4)

	arg := []any{
		[]any{b1, []any{b2}},
		map[string]any{
			"deep": map[string]any{"deeper": b3},
		},
		"scalar",
		nil,
	}

	out := Extract(arg)
	assert.Len(t, out, 3)
	assert.Contains(t, out, b1)
	assert.Contains(t, out, b2)
	assert.Contains(t, out, b3)
}

func TestExtract_StructFields(t *testing.T) {
	type payload struct {
		Data   *Buffer
		Shared *SharedBuffer
		hidden *Buffer
	}

	b := New(8)
	p := payload{Data: b, Shared: NewShared(1), hidden: New(8)}

	out := Extract(p)
	assert.Len(t, out, 1, "unexported fields and shared regions are skipped")
	assert.Same(t, b, out[0])
}

func TestExtract_TypedSlices(t *testing.T) {
	b1 := New(4)
	b2 := New(4)

	out := Extract([]*Buffer{b1, b2, b1})
	assert.Len(t, out, 2)
}

func TestExtract_AliasedSlices(t *testing.T) {
	b1 := New(4)
	b2 := New(4)

	// same base array, different lengths; b2 is reachable only through
	// the longer alias and must not be conflated away
	s := []any{b1, b2}
	out := ExtractArgs([]any{s[:1], s})

	assert.Equal(t, []*Buffer{b1, b2}, out)
}

func TestExtract_Cycle(t *testing.T) {
	b := New(4)
	m := map[string]any{"buf": b}
	m["self"] = m

	out := Extract(m)
	assert.Len(t, out, 1)
}

func TestExtract_DiscoveryOrder(t *testing.T) {
	b1 := New(4)
	b2 := New(4)

	out := ExtractArgs([]any{b1, b2, b1})
	assert.Equal(t, []*Buffer{b1, b2}, out)
}
