package buffer

import (
	"encoding/binary"
	"math"
)

// A view interprets a Buffer's bytes as fixed-width elements without
// copying. For transfer purposes a view contributes its underlying Buffer,
// not itself.

// View is implemented by all typed views over a Buffer
type View interface {
	// Buffer returns the underlying exclusive buffer
	Buffer() *Buffer
	// Len returns the number of elements visible through the view
	Len() int
}

// Uint32View interprets a Buffer as little-endian uint32 elements
type Uint32View struct {
	buf *Buffer
}

// NewUint32View creates a uint32 view over buf
func NewUint32View(buf *Buffer) *Uint32View {
	return &Uint32View{buf: buf}
}

// Buffer returns the underlying buffer
func (v *Uint32View) Buffer() *Buffer {
	return v.buf
}

// Len returns the number of whole uint32 elements
func (v *Uint32View) Len() int {
	return v.buf.Len() / 4
}

// At reads element i
func (v *Uint32View) At(i int) (uint32, error) {
	b, err := v.buf.Bytes()
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[i*4:]), nil
}

// Set writes element i
func (v *Uint32View) Set(i int, val uint32) error {
	b, err := v.buf.Bytes()
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b[i*4:], val)
	return nil
}

// Float64View interprets a Buffer as little-endian float64 elements
type Float64View struct {
	buf *Buffer
}

// NewFloat64View creates a float64 view over buf
func NewFloat64View(buf *Buffer) *Float64View {
	return &Float64View{buf: buf}
}

// Buffer returns the underlying buffer
func (v *Float64View) Buffer() *Buffer {
	return v.buf
}

// Len returns the number of whole float64 elements
func (v *Float64View) Len() int {
	return v.buf.Len() / 8
}

// At reads element i
func (v *Float64View) At(i int) (float64, error) {
	b, err := v.buf.Bytes()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:])), nil
}

// Set writes element i
func (v *Float64View) Set(i int, val float64) error {
	b, err := v.buf.Bytes()
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(val))
	return nil
}
