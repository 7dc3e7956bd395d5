// Package membuf implements the managed byte buffer that backs the MemBuf
// script type: a contiguous, resizable region with a current size and a hard
// maximum size.
//
// The buffer does no range validation of its own on the fast paths (typed
// gets and puts, bulk copies). Callers validate indices first; the shift
// primitives are the exception and report bad geometry as a *ShiftError.
package membuf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// NotFound is returned by FindByte when the byte does not occur.
const NotFound uint32 = 0xFFFFFFFF

// MaxCapacity is the largest max size a buffer can be created with.
const MaxCapacity uint32 = 0xFFFFFFFF

// Buffer is a resizable byte region. It is not safe for concurrent use.
type Buffer struct {
	data    []byte
	size    uint32
	maxSize uint32
	expand  uint32
}

// Option configures a Buffer at construction.
type Option func(*Buffer)

// WithExpandIncrement makes growth round up to a multiple of inc, clipped at
// the max size. Zero means grow to the exact requested size.
func WithExpandIncrement(inc uint32) Option {
	return func(b *Buffer) {
		b.expand = inc
	}
}

// New creates a buffer with the given initial and maximum sizes.
func New(initSize, maxSize uint32, opts ...Option) (*Buffer, error) {
	b := &Buffer{}
	for _, opt := range opts {
		opt(b)
	}
	if err := b.Reset(initSize, maxSize); err != nil {
		return nil, err
	}
	return b, nil
}

// MustNew is like New but panics on invalid sizes. For static setup only.
func MustNew(initSize, maxSize uint32, opts ...Option) *Buffer {
	b, err := New(initSize, maxSize, opts...)
	if err != nil {
		panic(err)
	}
	return b
}

// Reset discards the current contents and resizes the buffer to initSize,
// zero filled, with the new max size.
func (b *Buffer) Reset(initSize, maxSize uint32) error {
	if maxSize == 0 || maxSize < initSize {
		return &SizeError{Op: "reset", Requested: initSize, Max: maxSize}
	}
	b.data = make([]byte, initSize)
	b.size = initSize
	b.maxSize = maxSize
	return nil
}

// Size returns the current size.
func (b *Buffer) Size() uint32 { return b.size }

// MaxSize returns the hard ceiling.
func (b *Buffer) MaxSize() uint32 { return b.maxSize }

// ExpandIncrement returns the growth granularity (0 for exact growth).
func (b *Buffer) ExpandIncrement() uint32 { return b.expand }

// Released reports whether Release has been called.
func (b *Buffer) Released() bool { return b.data == nil && b.maxSize == 0 }

// Bytes returns the first Size() bytes. The slice aliases the buffer and is
// invalidated by any resize.
func (b *Buffer) Bytes() []byte { return b.data[:b.size] }

// Reallocate changes the current size. Growing past the max size fails and
// leaves the buffer unchanged. When preserve is false the surviving region
// is zeroed.
func (b *Buffer) Reallocate(newSize uint32, preserve bool) error {
	if newSize > b.maxSize {
		return &SizeError{Op: "reallocate", Requested: newSize, Max: b.maxSize}
	}
	if newSize > b.size {
		b.grow(b.roundUp(newSize))
	} else {
		b.size = newSize
	}
	if !preserve {
		clear(b.data[:b.size])
	}
	return nil
}

// roundUp applies the expand increment to a growth request.
func (b *Buffer) roundUp(n uint32) uint32 {
	if b.expand == 0 {
		return n
	}
	r := (uint64(n) + uint64(b.expand) - 1) / uint64(b.expand) * uint64(b.expand)
	if r > uint64(b.maxSize) {
		return b.maxSize
	}
	return uint32(r)
}

// grow extends the current size to n, keeping existing bytes. Bytes between
// the old and new size are always zero.
func (b *Buffer) grow(n uint32) {
	if int(n) > cap(b.data) {
		nd := make([]byte, n, b.capFor(n))
		copy(nd, b.data[:b.size])
		b.data = nd
	} else {
		if int(n) > len(b.data) {
			b.data = b.data[:n]
		}
		clear(b.data[b.size:n])
	}
	b.size = n
}

func (b *Buffer) capFor(n uint32) int {
	c := uint64(cap(b.data)) * 2
	if c < uint64(n) {
		c = uint64(n)
	}
	if c > uint64(b.maxSize) {
		c = uint64(b.maxSize)
	}
	return int(c)
}

// ensure grows the buffer so that [0, end) is inside the current size.
func (b *Buffer) ensure(end uint64) {
	if end > uint64(b.size) {
		if end > uint64(b.maxSize) {
			panic(fmt.Sprintf("membuf: write end %d beyond max size %d", end, b.maxSize))
		}
		b.grow(b.roundUp(uint32(end)))
	}
}

// Release drops the storage. The buffer must not be used afterwards.
func (b *Buffer) Release() {
	b.data = nil
	b.size = 0
	b.maxSize = 0
}

// CopyFrom replaces this buffer's sizes and contents with src's.
func (b *Buffer) CopyFrom(src *Buffer) {
	if b == src {
		return
	}
	b.data = make([]byte, src.size)
	copy(b.data, src.data[:src.size])
	b.size = src.size
	b.maxSize = src.maxSize
	b.expand = src.expand
}

// ---------------------------------------------------------------------------
// Byte and typed access (little-endian)
// ---------------------------------------------------------------------------

// ByteAt returns the byte at i.
func (b *Buffer) ByteAt(i uint32) byte { return b.data[:b.size][i] }

// SetByteAt stores v at i, growing the current size if i is past it.
func (b *Buffer) SetByteAt(i uint32, v byte) {
	b.ensure(uint64(i) + 1)
	b.data[i] = v
}

func (b *Buffer) Card1At(i uint32) uint8  { return b.ByteAt(i) }
func (b *Buffer) Card2At(i uint32) uint16 { return binary.LittleEndian.Uint16(b.data[i : i+2]) }
func (b *Buffer) Card4At(i uint32) uint32 { return binary.LittleEndian.Uint32(b.data[i : i+4]) }
func (b *Buffer) Card8At(i uint32) uint64 { return binary.LittleEndian.Uint64(b.data[i : i+8]) }
func (b *Buffer) Int1At(i uint32) int8    { return int8(b.ByteAt(i)) }
func (b *Buffer) Int2At(i uint32) int16   { return int16(b.Card2At(i)) }
func (b *Buffer) Int4At(i uint32) int32   { return int32(b.Card4At(i)) }
func (b *Buffer) Int8At(i uint32) int64   { return int64(b.Card8At(i)) }

func (b *Buffer) Float4At(i uint32) float32 { return math.Float32frombits(b.Card4At(i)) }
func (b *Buffer) Float8At(i uint32) float64 { return math.Float64frombits(b.Card8At(i)) }

func (b *Buffer) PutCard1(i uint32, v uint8) { b.SetByteAt(i, v) }

func (b *Buffer) PutCard2(i uint32, v uint16) {
	b.ensure(uint64(i) + 2)
	binary.LittleEndian.PutUint16(b.data[i:], v)
}

func (b *Buffer) PutCard4(i uint32, v uint32) {
	b.ensure(uint64(i) + 4)
	binary.LittleEndian.PutUint32(b.data[i:], v)
}

func (b *Buffer) PutCard8(i uint32, v uint64) {
	b.ensure(uint64(i) + 8)
	binary.LittleEndian.PutUint64(b.data[i:], v)
}

func (b *Buffer) PutInt1(i uint32, v int8)      { b.PutCard1(i, uint8(v)) }
func (b *Buffer) PutInt2(i uint32, v int16)     { b.PutCard2(i, uint16(v)) }
func (b *Buffer) PutInt4(i uint32, v int32)     { b.PutCard4(i, uint32(v)) }
func (b *Buffer) PutInt8(i uint32, v int64)     { b.PutCard8(i, uint64(v)) }
func (b *Buffer) PutFloat4(i uint32, v float32) { b.PutCard4(i, math.Float32bits(v)) }
func (b *Buffer) PutFloat8(i uint32, v float64) { b.PutCard8(i, math.Float64bits(v)) }

// ---------------------------------------------------------------------------
// Bulk operations
// ---------------------------------------------------------------------------

// CopyIn copies count bytes from src starting at src index 0 into this
// buffer at at, growing the current size as needed.
func (b *Buffer) CopyIn(src []byte, count, at uint32) {
	b.ensure(uint64(at) + uint64(count))
	copy(b.data[at:at+count], src[:count])
}

// CopyOut copies count bytes starting at from into dst.
func (b *Buffer) CopyOut(dst []byte, count, from uint32) {
	copy(dst[:count], b.data[from:from+count])
}

// Equal reports whether count bytes at at match the same range in other.
func (b *Buffer) Equal(other *Buffer, at, count uint32) bool {
	x := b.data[at : at+count]
	y := other.data[at : at+count]
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// Checksum returns the wrapping 32 bit sum of count bytes starting at start.
func (b *Buffer) Checksum(start, count uint32) uint32 {
	var sum uint32
	for _, c := range b.data[start : start+count] {
		sum += uint32(c)
	}
	return sum
}

// FindByte returns the index of the first v at or after start, or NotFound.
func (b *Buffer) FindByte(start uint32, v byte) uint32 {
	for i := start; i < b.size; i++ {
		if b.data[i] == v {
			return i
		}
	}
	return NotFound
}

// Set fills the current size with fill.
func (b *Buffer) Set(fill byte) {
	d := b.data[:b.size]
	for i := range d {
		d[i] = fill
	}
}
