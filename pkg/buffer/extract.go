package buffer

import "reflect"

// Extract walks an argument value and returns the deduplicated set of
// buffers eligible for zero-copy transfer, in discovery order.
//
// Traversal rules: a typed view contributes its underlying Buffer, not
// itself; a Buffer contributes itself; a SharedBuffer and anything built on
// top of it contributes nothing (transferring it would revoke the sender's
// concurrent access); slices, arrays, maps, and exported struct fields are
// recursed; nils and scalars are no-ops. A buffer reachable through several
// paths appears exactly once: transferring the same region twice would be
// rejected by Buffer.Detach.
func Extract(v any) []*Buffer {
	w := &walker{
		seen:    make(map[*Buffer]struct{}),
		visited: make(map[visitKey]struct{}),
	}
	w.walk(reflect.ValueOf(v))
	return w.out
}

// ExtractArgs extracts transferables from a full argument list
func ExtractArgs(args []any) []*Buffer {
	w := &walker{
		seen:    make(map[*Buffer]struct{}),
		visited: make(map[visitKey]struct{}),
	}
	for _, a := range args {
		w.walk(reflect.ValueOf(a))
	}
	return w.out
}

// visitKey identifies a traversed reference. Slices carry their length:
// two slices over the same base array but with different lengths reach
// different element sets and must both be walked.
type visitKey struct {
	ptr uintptr
	len int
}

type walker struct {
	seen    map[*Buffer]struct{}
	visited map[visitKey]struct{}
	out     []*Buffer
}

func (w *walker) add(b *Buffer) {
	if b == nil {
		return
	}
	if _, ok := w.seen[b]; ok {
		return
	}
	w.seen[b] = struct{}{}
	w.out = append(w.out, b)
}

func (w *walker) walk(v reflect.Value) {
	if !v.IsValid() {
		return
	}

	// Typed values take precedence over structural recursion.
	if v.CanInterface() {
		switch x := v.Interface().(type) {
		case *Buffer:
			w.add(x)
			return
		case *SharedBuffer:
			// shared regions are referenced, never moved
			return
		case View:
			w.add(x.Buffer())
			return
		}
	}

	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return
		}
		if !w.visit(visitKey{ptr: v.Pointer()}) {
			return
		}
		w.walk(v.Elem())
	case reflect.Interface:
		if v.IsNil() {
			return
		}
		w.walk(v.Elem())
	case reflect.Slice:
		if v.IsNil() || !w.visit(visitKey{ptr: v.Pointer(), len: v.Len()}) {
			return
		}
		for i := 0; i < v.Len(); i++ {
			w.walk(v.Index(i))
		}
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			w.walk(v.Index(i))
		}
	case reflect.Map:
		if v.IsNil() || !w.visit(visitKey{ptr: v.Pointer()}) {
			return
		}
		iter := v.MapRange()
		for iter.Next() {
			w.walk(iter.Value())
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).IsExported() {
				w.walk(v.Field(i))
			}
		}
	}
}

// visit guards against reference cycles; reports whether the key is new
func (w *walker) visit(k visitKey) bool {
	if _, ok := w.visited[k]; ok {
		return false
	}
	w.visited[k] = struct{}{}
	return true
}
