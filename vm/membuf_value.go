package vm

import (
	"fmt"
	"io"
	"strings"

	"github.com/chazu/membuf/membuf"
)

// bufferHolder is the storage variant behind a MemBuf value. An owned
// holder releases its buffer when the value is destroyed; a borrowed one
// only references a buffer that host code keeps ownership of.
type bufferHolder interface {
	buffer() *membuf.Buffer
	release()
}

type ownedBuffer struct{ buf *membuf.Buffer }

func (o ownedBuffer) buffer() *membuf.Buffer { return o.buf }
func (o ownedBuffer) release()               { o.buf.Release() }

type borrowedBuffer struct{ buf *membuf.Buffer }

func (b borrowedBuffer) buffer() *membuf.Buffer { return b.buf }
func (b borrowedBuffer) release()               {}

// MemBufValue is the instance data of a MemBuf value.
type MemBufValue struct {
	holder    bufferHolder
	destroyed bool
}

// newOwnedMemBuf creates a value owning a fresh placeholder buffer.
func newOwnedMemBuf(size uint32, opts ...membuf.Option) *MemBufValue {
	return &MemBufValue{holder: ownedBuffer{buf: membuf.MustNew(size, size, opts...)}}
}

// NewMemBufView wraps buf without taking ownership. The caller keeps buf
// alive for the lifetime of the returned value and must not use it while a
// script is operating on it.
func NewMemBufView(buf *membuf.Buffer) *MemBufValue {
	return &MemBufValue{holder: borrowedBuffer{buf: buf}}
}

// Buffer returns the underlying buffer.
func (m *MemBufValue) Buffer() *membuf.Buffer { return m.holder.buffer() }

// IsView reports whether the value references a host-owned buffer.
func (m *MemBufValue) IsView() bool {
	_, ok := m.holder.(borrowedBuffer)
	return ok
}

// Destroy releases the buffer if this value owns it. Calling it more than
// once is harmless.
func (m *MemBufValue) Destroy() {
	if m.destroyed {
		return
	}
	m.destroyed = true
	m.holder.release()
}

// CopyFrom copies src's buffer contents and sizes into this value's buffer.
// The storage variant of m is unchanged.
func (m *MemBufValue) CopyFrom(src *MemBufValue) {
	m.Buffer().CopyFrom(src.Buffer())
}

// DebugFormat writes the allocation size followed by up to 8 (short) or
// 128 (long) bytes, in hex when radix is 16 and decimal otherwise. The
// byte list always starts on its own line; the short form prefixes it
// with ", Bytes: ".
func (m *MemBufValue) DebugFormat(w io.Writer, long bool, radix int) error {
	buf := m.Buffer()
	limit := uint32(8)
	if long {
		limit = 128
	}
	count := min(buf.Size(), limit)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Alloc Size: %d", buf.Size())
	if long && count < buf.Size() {
		fmt.Fprintf(&sb, "  (Showing first %d bytes)\n", count)
	} else {
		sb.WriteByte('\n')
	}
	if !long {
		sb.WriteString(", Bytes: ")
	}

	for n := uint32(0); n < count; n++ {
		if n > 0 && n%8 == 0 {
			sb.WriteString("\n    ")
		}
		if radix == 16 {
			fmt.Fprintf(&sb, "%02X ", buf.ByteAt(n))
		} else {
			fmt.Fprintf(&sb, "%3d ", buf.ByteAt(n))
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
