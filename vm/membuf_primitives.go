package vm

import (
	"errors"
	"math"
	"strings"

	"github.com/chazu/membuf/membuf"
)

// ---------------------------------------------------------------------------
// MemBuf primitives
//
// Every primitive validates its arguments against the receiver's buffer
// before touching it. Ranges are checked against the current size unless
// the operation may grow the buffer (puts, imports, hex pair insertion), in
// which case the max size is the ceiling.
// ---------------------------------------------------------------------------

func (c *MemBufClass) primCtor(i *Interpreter, recv Value, initSize, maxSize Value) Value {
	initSz, maxSz := i.Card4Arg(initSize, 1), i.Card4Arg(maxSize, 2)
	if ceiling := c.vm.config.MaxCeiling; ceiling > 0 && maxSz > ceiling {
		c.raise(i, ErrBadInitSizes, initSz, maxSz)
	}
	if err := c.self(i).Buffer().Reset(initSz, maxSz); err != nil {
		c.raise(i, ErrBadInitSizes, initSz, maxSz)
	}
	return Nil
}

func (c *MemBufClass) primCalcSum(i *Interpreter, recv Value, start, count Value) Value {
	buf := c.self(i).Buffer()
	at, n := i.Card4Arg(start, 1), i.Card4Arg(count, 2)
	c.IndexCheck(i, buf, n, at, false)
	return FromCard4(buf.Checksum(at, n))
}

func (c *MemBufClass) primCheckIndRange(i *Interpreter, recv Value, start, count, useMax Value) Value {
	at, n := i.Card4Arg(start, 1), i.Card4Arg(count, 2)
	c.IndexCheck(i, c.self(i).Buffer(), n, at, i.BoolArg(useMax, 3))
	return Nil
}

func (c *MemBufClass) primCompByteRange(i *Interpreter, recv Value, src, start, count Value) Value {
	buf := c.self(i).Buffer()
	other := c.bufArg(i, src, 1).Buffer()
	at, n := i.Card4Arg(start, 2), i.Card4Arg(count, 3)
	c.IndexCheck(i, buf, n, at, false)
	c.IndexCheck(i, other, n, at, false)
	return FromBool(buf.Equal(other, at, n))
}

// ---------------------------------------------------------------------------
// Bulk copies
// ---------------------------------------------------------------------------

// copyArgs resolves the other buffer of a copy and rejects copying a buffer
// onto itself, which includes two views of the same host buffer.
func (c *MemBufClass) copyArgs(i *Interpreter, other Value) (self, peer *membuf.Buffer) {
	self = c.self(i).Buffer()
	peer = c.bufArg(i, other, 1).Buffer()
	if self == peer {
		c.raise(i, ErrSelfTarget)
	}
	return self, peer
}

func (c *MemBufClass) primCopyIn(i *Interpreter, recv Value, src, count, srcIndex Value) Value {
	dst, from := c.copyArgs(i, src)
	n, at := i.Card4Arg(count, 2), i.Card4Arg(srcIndex, 3)
	c.IndexCheck(i, dst, n, 0, false)
	c.IndexCheck(i, from, n, at, false)
	dst.CopyIn(from.Bytes()[at:], n, 0)
	return Nil
}

func (c *MemBufClass) primCopyInAt(i *Interpreter, recv Value, src, count, atIndex Value) Value {
	dst, from := c.copyArgs(i, src)
	n, at := i.Card4Arg(count, 2), i.Card4Arg(atIndex, 3)
	c.IndexCheck(i, dst, n, at, false)
	c.IndexCheck(i, from, n, 0, false)
	dst.CopyIn(from.Bytes(), n, at)
	return Nil
}

func (c *MemBufClass) primCopyOut(i *Interpreter, recv Value, target, count, srcIndex Value) Value {
	from, dst := c.copyArgs(i, target)
	n, at := i.Card4Arg(count, 2), i.Card4Arg(srcIndex, 3)
	c.IndexCheck(i, from, n, at, false)
	c.IndexCheck(i, dst, n, 0, false)
	dst.CopyIn(from.Bytes()[at:], n, 0)
	return Nil
}

// ---------------------------------------------------------------------------
// String export / import
// ---------------------------------------------------------------------------

// export widens count bytes starting at from into the target string, one
// character per byte. A zero byte ends a variable length export and is an
// error otherwise; on error the target keeps the characters before it.
func (c *MemBufClass) export(i *Interpreter, target Value, count, from uint32, variable bool) {
	buf := c.self(i).Buffer()
	str := i.stringArg(target, 1)
	c.IndexCheck(i, buf, count, from, false)

	var sb strings.Builder
	for n := uint32(0); n < count; n++ {
		b := buf.ByteAt(from + n)
		if b == 0 {
			if variable {
				break
			}
			str.Content = sb.String()
			c.raise(i, ErrBadChar)
		}
		sb.WriteRune(rune(b))
	}
	str.Content = sb.String()
}

func (c *MemBufClass) primExportString(i *Interpreter, recv Value, target, count Value) Value {
	c.export(i, target, i.Card4Arg(count, 2), 0, false)
	return Nil
}

func (c *MemBufClass) primExportStringAt(i *Interpreter, recv Value, target, count, srcIndex Value) Value {
	c.export(i, target, i.Card4Arg(count, 2), i.Card4Arg(srcIndex, 3), false)
	return Nil
}

func (c *MemBufClass) primExportVarString(i *Interpreter, recv Value, target, maxCount, srcIndex Value) Value {
	c.export(i, target, i.Card4Arg(maxCount, 2), i.Card4Arg(srcIndex, 3), true)
	return Nil
}

// importString narrows up to count characters of src into the buffer at at.
// count is clamped to the source length. The buffer grows to hold the whole
// range before any byte is written, so a character above 255 leaves the
// bytes before it in place.
func (c *MemBufClass) importString(i *Interpreter, src Value, count, at uint32) Value {
	buf := c.self(i).Buffer()
	runes := []rune(i.stringArg(src, 1).Content)
	if uint64(count) > uint64(len(runes)) {
		count = uint32(len(runes))
	}
	c.IndexCheck(i, buf, count, at, true)
	if end := at + count; end > buf.Size() {
		if err := buf.Reallocate(end, true); err != nil {
			c.raise(i, ErrBadReallocSize, end, buf.MaxSize())
		}
	}
	for n := uint32(0); n < count; n++ {
		r := runes[n]
		if r < 0 || r > 0xFF {
			c.raise(i, ErrByteRange)
		}
		buf.PutCard1(at+n, byte(r))
	}
	return FromCard4(count)
}

func (c *MemBufClass) primImportString(i *Interpreter, recv Value, src, count Value) Value {
	return c.importString(i, src, i.Card4Arg(count, 2), 0)
}

func (c *MemBufClass) primImportStringAt(i *Interpreter, recv Value, src, count, at Value) Value {
	return c.importString(i, src, i.Card4Arg(count, 2), i.Card4Arg(at, 3))
}

// ---------------------------------------------------------------------------
// ASCII digits
// ---------------------------------------------------------------------------

// maxDigits is the widest digit run that can be extracted.
const maxDigits = 10

func digitValue(b byte, radix uint64) (uint64, bool) {
	switch {
	case b >= '0' && b <= '9':
		return uint64(b - '0'), true
	case radix == 16 && b >= 'A' && b <= 'F':
		return uint64(b-'A') + 10, true
	case radix == 16 && b >= 'a' && b <= 'f':
		return uint64(b-'a') + 10, true
	}
	return 0, false
}

// extract parses count ASCII digits at at in the given radix.
func (c *MemBufClass) extract(i *Interpreter, at, count uint32, radix uint64) uint32 {
	buf := c.self(i).Buffer()
	c.IndexCheck(i, buf, count, at, false)
	if count == 0 || count > maxDigits {
		c.raise(i, ErrBadDigRange, count)
	}

	notDigit := ErrNotDecDig
	if radix == 16 {
		notDigit = ErrNotHexDig
	}
	var val uint64
	for n := uint32(0); n < count; n++ {
		d, ok := digitValue(buf.ByteAt(at+n), radix)
		if !ok {
			c.raise(i, notDigit, at+n)
		}
		val = val*radix + d
	}
	if val > math.MaxUint32 {
		c.raise(i, ErrBadValue, count, at)
	}
	return uint32(val)
}

func (c *MemBufClass) primExtractDigAt(radix uint64) Method1Func {
	return func(i *Interpreter, recv Value, at Value) Value {
		return FromCard4(c.extract(i, i.Card4Arg(at, 1), 1, radix))
	}
}

func (c *MemBufClass) primExtractValAt(radix uint64) Method2Func {
	return func(i *Interpreter, recv Value, at, count Value) Value {
		return FromCard4(c.extract(i, i.Card4Arg(at, 1), i.Card4Arg(count, 2), radix))
	}
}

const hexDigits = "0123456789ABCDEF"

// primInsertASCIIHexPair writes a byte as two uppercase hex characters.
// Values below 0x10 are written as a space and a single digit.
func (c *MemBufClass) primInsertASCIIHexPair(i *Interpreter, recv Value, value, at Value) Value {
	buf := c.self(i).Buffer()
	v, idx := i.Card1Arg(value, 1), i.Card4Arg(at, 2)
	c.IndexCheck(i, buf, 2, idx, true)
	hi := byte(' ')
	if v >= 0x10 {
		hi = hexDigits[v>>4]
	}
	buf.PutCard1(idx, hi)
	buf.PutCard1(idx+1, hexDigits[v&0xF])
	return Nil
}

// ---------------------------------------------------------------------------
// Typed access
// ---------------------------------------------------------------------------

func (c *MemBufClass) getAt(width uint32, get func(*membuf.Buffer, uint32) Value) Method1Func {
	return func(i *Interpreter, recv Value, at Value) Value {
		buf := c.self(i).Buffer()
		idx := i.Card4Arg(at, 1)
		c.IndexCheck(i, buf, width, idx, false)
		return get(buf, idx)
	}
}

func (c *MemBufClass) putAt(width uint32, put func(*Interpreter, *membuf.Buffer, uint32, Value)) Method2Func {
	return func(i *Interpreter, recv Value, at, v Value) Value {
		buf := c.self(i).Buffer()
		idx := i.Card4Arg(at, 1)
		c.IndexCheck(i, buf, width, idx, true)
		put(i, buf, idx, v)
		return Nil
	}
}

func (c *MemBufClass) primFindByte(i *Interpreter, recv Value, start, toFind Value) Value {
	buf := c.self(i).Buffer()
	at, b := i.Card4Arg(start, 1), i.Card1Arg(toFind, 2)
	c.IndexCheck(i, buf, 1, at, false)
	return FromCard4(buf.FindByte(at, b))
}

func (c *MemBufClass) primGetAlloc(i *Interpreter, recv Value) Value {
	return FromCard4(c.self(i).Buffer().Size())
}

func (c *MemBufClass) primGetMaxSize(i *Interpreter, recv Value) Value {
	return FromCard4(c.self(i).Buffer().MaxSize())
}

// ---------------------------------------------------------------------------
// Shifts and sizing
// ---------------------------------------------------------------------------

// blockMove converts a shift primitive's geometry error into BlockMove.
func (c *MemBufClass) blockMove(i *Interpreter, err error) {
	if err == nil {
		return
	}
	var se *membuf.ShiftError
	if !errors.As(err, &se) {
		panic(err)
	}
	c.raise(i, ErrBlockMove, se.Error())
}

func (c *MemBufClass) primMakeSpace(i *Interpreter, recv Value, start, size, fullCount Value) Value {
	at, n, full := i.Card4Arg(start, 1), i.Card4Arg(size, 2), i.Card4Arg(fullCount, 3)
	c.blockMove(i, c.self(i).Buffer().MakeSpace(at, n, full))
	return Nil
}

func (c *MemBufClass) primRemoveSpace(i *Interpreter, recv Value, start, size, fullCount Value) Value {
	at, n, full := i.Card4Arg(start, 1), i.Card4Arg(size, 2), i.Card4Arg(fullCount, 3)
	c.blockMove(i, c.self(i).Buffer().RemoveSpace(at, n, full))
	return Nil
}

func (c *MemBufClass) primMoveToStart(i *Interpreter, recv Value, start, count Value) Value {
	buf := c.self(i).Buffer()
	at, n := i.Card4Arg(start, 1), i.Card4Arg(count, 2)
	c.IndexCheck(i, buf, n, at, false)
	c.blockMove(i, buf.MoveToStart(at, n))
	return Nil
}

func (c *MemBufClass) primReallocate(i *Interpreter, recv Value, size Value) Value {
	buf := c.self(i).Buffer()
	n := i.Card4Arg(size, 1)
	if n > buf.MaxSize() {
		c.raise(i, ErrBadReallocSize, n, buf.MaxSize())
	}
	if err := buf.Reallocate(n, true); err != nil {
		c.raise(i, ErrBadReallocSize, n, buf.MaxSize())
	}
	return Nil
}

func (c *MemBufClass) primSetAll(i *Interpreter, recv Value, fill Value) Value {
	c.self(i).Buffer().Set(i.Card1Arg(fill, 1))
	return Nil
}
