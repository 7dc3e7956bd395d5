package vm

import (
	"fmt"
	"math"
	"strconv"
)

// Value is a script value packed into 64 bits.
//
// Any bit pattern outside the quiet-NaN space is a float64. Inside it, three
// tag bits select an integer, a registry handle or one of the constants nil,
// true and false, with the low 48 bits as payload. Floats that are NaN are
// stored as a single canonical NaN so that no float, whatever bytes it was
// read from, can alias a tagged value.
type Value uint64

const (
	quietNaN  uint64 = 0x7FF8000000000000
	tagBits   uint64 = 0x0007000000000000
	payload48 uint64 = 0x0000FFFFFFFFFFFF

	kindRef   uint64 = 1 << 48
	kindInt   uint64 = 2 << 48
	kindConst uint64 = 3 << 48

	// canonicalNaN has no tag bits set, so it boxes as a float.
	canonicalNaN uint64 = quietNaN | 1
)

const (
	Nil   = Value(quietNaN | kindConst | 0)
	True  = Value(quietNaN | kindConst | 1)
	False = Value(quietNaN | kindConst | 2)
)

// SmallInt range: 48 bit two's complement.
const (
	MaxSmallInt int64 = 1<<47 - 1
	MinSmallInt int64 = -1 << 47
)

func (v Value) tag() uint64 {
	if uint64(v)&quietNaN != quietNaN {
		return 0
	}
	return uint64(v) & tagBits
}

// IsFloat reports whether v holds a float64, including infinities and NaN.
func (v Value) IsFloat() bool { return v.tag() == 0 }

func (v Value) IsSmallInt() bool { return v.tag() == kindInt }

// IsRef reports whether v is an ObjectRegistry handle.
func (v Value) IsRef() bool { return v.tag() == kindRef }

func (v Value) IsNil() bool  { return v == Nil }
func (v Value) IsBool() bool { return v == True || v == False }

// FromFloat64 boxes f. Every NaN becomes the canonical NaN.
func FromFloat64(f float64) Value {
	if f != f {
		return Value(canonicalNaN)
	}
	return Value(math.Float64bits(f))
}

// Float64 unboxes a float. It panics if v is not one.
func (v Value) Float64() float64 {
	if !v.IsFloat() {
		panic("vm: Value is not a float")
	}
	return math.Float64frombits(uint64(v))
}

// FromSmallInt boxes n, which must lie in [MinSmallInt, MaxSmallInt].
func FromSmallInt(n int64) Value {
	if n < MinSmallInt || n > MaxSmallInt {
		panic("vm: integer outside the SmallInt range")
	}
	return Value(quietNaN | kindInt | uint64(n)&payload48)
}

// FromCard4 boxes an unsigned 32 bit value.
func FromCard4(n uint32) Value { return FromSmallInt(int64(n)) }

// SmallInt unboxes an integer. It panics if v is not one.
func (v Value) SmallInt() int64 {
	if !v.IsSmallInt() {
		panic("vm: Value is not a SmallInt")
	}
	// Shift the 48 bit payload to the top and back to sign extend it.
	return int64(uint64(v)<<16) >> 16
}

func FromRefID(id uint32) Value {
	return Value(quietNaN | kindRef | uint64(id))
}

// RefID returns the registry handle in v. It panics if v is not a ref.
func (v Value) RefID() uint32 {
	if !v.IsRef() {
		panic("vm: Value is not a ref")
	}
	return uint32(uint64(v) & payload48)
}

func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Bool unboxes true or false. It panics on anything else.
func (v Value) Bool() bool {
	if !v.IsBool() {
		panic("vm: Value is not a boolean")
	}
	return v == True
}

// String renders v for diagnostics. A ref prints as its handle.
func (v Value) String() string {
	switch v.tag() {
	case 0:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case kindInt:
		return strconv.FormatInt(v.SmallInt(), 10)
	case kindRef:
		return fmt.Sprintf("ref#%d", v.RefID())
	}
	switch v {
	case Nil:
		return "nil"
	case True:
		return "true"
	case False:
		return "false"
	}
	return fmt.Sprintf("Value(%#x)", uint64(v))
}
