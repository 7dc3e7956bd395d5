package vm

import "errors"

// MemBufError is an ordinal of MemBufErrors. The order is fixed; scripts
// and saved traces refer to entries by ordinal.
type MemBufError int

const (
	ErrBadDigRange MemBufError = iota
	ErrBadChar
	ErrBadIndex
	ErrBadInitSizes
	ErrBadReallocSize
	ErrBadValue
	ErrByteRange
	ErrNotDecDig
	ErrNotHexDig
	ErrOverflow
	ErrBlockMove
	ErrSelfTarget
)

func (e MemBufError) String() string {
	return MemBufErrors.Name(int(e))
}

// MemBufErrors is the catalog raised by MemBuf methods.
var MemBufErrors = NewErrorEnum(memBufClassPath+".MemBufErrors",
	[2]string{"BadDigRange", "%(1) is too large a range for digit extraction"},
	[2]string{"BadChar", "Zero byte cannot be put into a string"},
	[2]string{"BadIndex", "Index %(1) is beyond the buffer size of %(2)"},
	[2]string{"BadInitSizes", "The initial (%(1)) or max (%(2)) size was invalid"},
	[2]string{"BadReallocSize", "The realloc size (%(1)) is larger than the max size (%(2))"},
	[2]string{"BadValue", "Could not convert the %(1) bytes at index %(2) into a numeric value"},
	[2]string{"ByteRange", "The source value is > 255"},
	[2]string{"NotDecDig", "The value at offset %(1) is not an ASCII decimal digit"},
	[2]string{"NotHexDig", "The value at offset %(1) is not an ASCII hex digit"},
	[2]string{"Overflow", "The start index (%(1)) plus the size (%(2)) would overflow the max buffer size (%(3))"},
	[2]string{"BlockMove", "%(1)"},
	[2]string{"SelfTarget", "The source and target buffers cannot be the same"},
)

// IsMemBufError reports whether err is a script exception raised from
// MemBufErrors with the given ordinal.
func IsMemBufError(err error, want MemBufError) bool {
	var exc *ScriptException
	return errors.As(err, &exc) && exc.Matches(MemBufErrors, int(want))
}
