package vm

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/membuf/membuf"
)

// newMemBuf declares a MemBuf and runs its constructor.
func newMemBuf(t *testing.T, vm *VM, i *Interpreter, initSize, maxSize int64) Value {
	t.Helper()
	v, err := vm.AllocateStorage("MemBuf", "buf", false)
	if err != nil {
		t.Fatalf("AllocateStorage: %v", err)
	}
	mustSend(t, i, v, "Ctor", FromSmallInt(initSize), FromSmallInt(maxSize))
	return v
}

func mustSend(t *testing.T, i *Interpreter, recv Value, name string, args ...Value) Value {
	t.Helper()
	result, err := i.Send(recv, name, args...)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", name, err)
	}
	return result
}

func expectRaise(t *testing.T, i *Interpreter, want MemBufError, recv Value, name string, args ...Value) *ScriptException {
	t.Helper()
	_, err := i.Send(recv, name, args...)
	if err == nil {
		t.Fatalf("%s: expected %s, got no error", name, want)
	}
	if !IsMemBufError(err, want) {
		t.Fatalf("%s: error = %v, want %s", name, err, want)
	}
	return i.LastException()
}

func ints(ns ...int64) []Value {
	out := make([]Value, len(ns))
	for n, v := range ns {
		out[n] = FromSmallInt(v)
	}
	return out
}

func fill(t *testing.T, i *Interpreter, buf Value, data string) {
	t.Helper()
	for n := 0; n < len(data); n++ {
		mustSend(t, i, buf, "PutCard1At", ints(int64(n), int64(data[n]))...)
	}
}

func contents(vm *VM, v Value) string {
	return string(vm.MemBufValueOf(v).Buffer().Bytes())
}

func TestMemBufPlaceholder(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	v, err := vm.AllocateStorage("MemBuf", "b", false)
	if err != nil {
		t.Fatal(err)
	}
	if got := mustSend(t, i, v, "GetAlloc").SmallInt(); got != 8 {
		t.Errorf("placeholder alloc = %d, want 8", got)
	}
	if got := mustSend(t, i, v, "GetMaxSize").SmallInt(); got != 8 {
		t.Errorf("placeholder max = %d, want 8", got)
	}
}

func TestMemBufCtorValidation(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	v, _ := vm.AllocateStorage("MemBuf", "b", false)

	exc := expectRaise(t, i, ErrBadInitSizes, v, "Ctor", ints(0, 0)...)
	if exc.Text != "The initial (0) or max (0) size was invalid" {
		t.Errorf("text = %q", exc.Text)
	}
	expectRaise(t, i, ErrBadInitSizes, v, "Ctor", ints(11, 10)...)

	mustSend(t, i, v, "Ctor", ints(10, 20)...)
	if got := mustSend(t, i, v, "GetAlloc").SmallInt(); got != 10 {
		t.Errorf("alloc = %d, want 10", got)
	}
}

func TestMemBufMaxCeilingConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxCeiling = 64
	vm := NewVMWithConfig(cfg)
	i := vm.NewInterpreter()
	v, _ := vm.AllocateStorage("MemBuf", "b", false)
	expectRaise(t, i, ErrBadInitSizes, v, "Ctor", ints(1, 65)...)
	mustSend(t, i, v, "Ctor", ints(1, 64)...)
}

func TestMemBufEndToEnd(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	b := newMemBuf(t, vm, i, 10, 20)

	mustSend(t, i, b, "PutCard4At", ints(0, 0x11223344)...)
	if got := mustSend(t, i, b, "GetCard4At", FromSmallInt(0)).SmallInt(); got != 0x11223344 {
		t.Errorf("GetCard4At = %#x, want 0x11223344", got)
	}
	mustSend(t, i, b, "Reallocate", FromSmallInt(20))

	exc := expectRaise(t, i, ErrBadReallocSize, b, "Reallocate", FromSmallInt(21))
	want := "The realloc size (21) is larger than the max size (20)"
	if exc.Text != want {
		t.Errorf("text = %q, want %q", exc.Text, want)
	}
	if got := mustSend(t, i, b, "GetAlloc").SmallInt(); got != 20 {
		t.Errorf("alloc after failed realloc = %d, want 20", got)
	}
}

func TestMemBufReallocateKeepsContents(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	b := newMemBuf(t, vm, i, 4, 16)
	fill(t, i, b, "WXYZ")
	mustSend(t, i, b, "Reallocate", FromSmallInt(8))
	if got := contents(vm, b); got != "WXYZ\x00\x00\x00\x00" {
		t.Errorf("contents = %q", got)
	}
	mustSend(t, i, b, "Reallocate", FromSmallInt(2))
	if got := contents(vm, b); got != "WX" {
		t.Errorf("contents after shrink = %q", got)
	}
}

func TestMemBufIndexCheck(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	b := newMemBuf(t, vm, i, 4, 8)

	tests := []struct {
		index, count int64
		useMax       bool
		want         MemBufError
		ok           bool
	}{
		{0, 4, false, 0, true},
		{3, 1, false, 0, true},
		{4, 0, false, ErrBadIndex, false},
		{2, 3, false, ErrOverflow, false},
		{2, 3, true, 0, true},
		{7, 1, true, 0, true},
		{8, 0, true, ErrBadIndex, false},
		{7, 2, true, ErrOverflow, false},
		{0, math.MaxUint32, true, ErrOverflow, false},
	}
	for _, tt := range tests {
		_, err := i.Send(b, "CheckIndRange", FromSmallInt(tt.index), FromSmallInt(tt.count), FromBool(tt.useMax))
		if tt.ok {
			if err != nil {
				t.Errorf("CheckIndRange(%d, %d, %v) = %v, want ok", tt.index, tt.count, tt.useMax, err)
			}
			continue
		}
		if !IsMemBufError(err, tt.want) {
			t.Errorf("CheckIndRange(%d, %d, %v) = %v, want %s", tt.index, tt.count, tt.useMax, err, tt.want)
		}
	}

	exc := expectRaise(t, i, ErrOverflow, b, "CheckIndRange", FromSmallInt(2), FromSmallInt(3), False)
	want := "The start index (2) plus the size (3) would overflow the max buffer size (4)"
	if exc.Text != want {
		t.Errorf("text = %q, want %q", exc.Text, want)
	}
}

func TestMemBufIndexCheckProperty(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	b := newMemBuf(t, vm, i, 5, 9)
	buf := vm.MemBufValueOf(b).Buffer()

	for _, useMax := range []bool{false, true} {
		ceiling := uint64(buf.Size())
		if useMax {
			ceiling = uint64(buf.MaxSize())
		}
		for index := uint64(0); index <= 10; index++ {
			for count := uint64(0); count <= 10; count++ {
				_, err := i.Send(b, "CheckIndRange", FromSmallInt(int64(index)), FromSmallInt(int64(count)), FromBool(useMax))
				want := index < ceiling && index+count <= ceiling
				if (err == nil) != want {
					t.Errorf("CheckIndRange(%d, %d, %v): err = %v, want ok = %v", index, count, useMax, err, want)
				}
			}
		}
	}
}

func TestMemBufTypedRoundTrip(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	b := newMemBuf(t, vm, i, 0, 32)

	tests := []struct {
		put, get string
		at       int64
		val      Value
	}{
		{"PutCard1At", "GetCard1At", 0, FromSmallInt(255)},
		{"PutCard2At", "GetCard2At", 1, FromSmallInt(0xBEEF)},
		{"PutCard4At", "GetCard4At", 3, FromSmallInt(0xFFFFFFFF)},
		{"PutInt1At", "GetInt1At", 7, FromSmallInt(-128)},
		{"PutInt2At", "GetInt2At", 8, FromSmallInt(-32768)},
		{"PutInt4At", "GetInt4At", 10, FromSmallInt(math.MinInt32)},
		{"PutFloat4At", "GetFloat4At", 14, FromFloat64(-2.5)},
		{"PutFloat8At", "GetFloat8At", 24, FromFloat64(math.E)},
	}
	for _, tt := range tests {
		mustSend(t, i, b, tt.put, FromSmallInt(tt.at), tt.val)
		got := mustSend(t, i, b, tt.get, FromSmallInt(tt.at))
		if got != tt.val {
			t.Errorf("%s(%d) = %v, want %v", tt.get, tt.at, got, tt.val)
		}
	}
	if got := mustSend(t, i, b, "GetAlloc").SmallInt(); got != 32 {
		t.Errorf("alloc after puts = %d, want 32", got)
	}
}

// Float reads of arbitrary bytes always come back as floats, whatever NaN
// payload the bytes carry.
func TestMemBufFloatFromRawBytes(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	b := newMemBuf(t, vm, i, 8, 8)

	tests := []struct {
		name   string
		get    string
		lo, hi int64
		check  func(float64) bool
	}{
		{"ref tagged NaN", "GetFloat8At", 1, 0x7FF90000, math.IsNaN},
		{"int tagged NaN", "GetFloat8At", 1, 0x7FFA0000, math.IsNaN},
		{"nil pattern", "GetFloat8At", 0, 0x7FFB0000, math.IsNaN},
		{"negative tagged NaN", "GetFloat8At", 7, 0xFFF90000, math.IsNaN},
		{"signaling NaN", "GetFloat8At", 1, 0x7FF00000, math.IsNaN},
		{"+Inf", "GetFloat8At", 0, 0x7FF00000, func(f float64) bool { return math.IsInf(f, 1) }},
		{"-Inf", "GetFloat8At", 0, 0xFFF00000, func(f float64) bool { return math.IsInf(f, -1) }},
		{"float4 NaN with payload", "GetFloat4At", 0x7FD00000, 0, math.IsNaN},
		{"float4 NaN low bit", "GetFloat4At", 0x7FC00001, 0, math.IsNaN},
		{"float4 all ones", "GetFloat4At", 0xFFFFFFFF, 0, math.IsNaN},
		{"float4 signaling NaN", "GetFloat4At", 0x7F800001, 0, math.IsNaN},
		{"float4 +Inf", "GetFloat4At", 0x7F800000, 0, func(f float64) bool { return math.IsInf(f, 1) }},
		{"float4 -Inf", "GetFloat4At", 0xFF800000, 0, func(f float64) bool { return math.IsInf(f, -1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mustSend(t, i, b, "PutCard4At", ints(0, tt.lo)...)
			mustSend(t, i, b, "PutCard4At", ints(4, tt.hi)...)

			got := mustSend(t, i, b, tt.get, FromSmallInt(0))
			if !got.IsFloat() || got.IsSmallInt() || got.IsRef() || got.IsNil() {
				t.Fatalf("%s = %s, want a float", tt.get, got)
			}
			if f := got.Float64(); !tt.check(f) {
				t.Errorf("%s = %v", tt.get, f)
			}
		})
	}
	if n := vm.Registry().Count(); n != 1 {
		t.Errorf("live objects = %d, want 1", n)
	}
}

func TestMemBufPutGrowsToMax(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	b := newMemBuf(t, vm, i, 2, 8)

	mustSend(t, i, b, "PutCard4At", ints(4, 7)...)
	if got := mustSend(t, i, b, "GetAlloc").SmallInt(); got != 8 {
		t.Errorf("alloc = %d, want 8", got)
	}
	expectRaise(t, i, ErrOverflow, b, "PutCard4At", ints(5, 1)...)
	expectRaise(t, i, ErrBadIndex, b, "PutCard1At", ints(8, 1)...)
}

func TestMemBufGetChecksCurrentSize(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	b := newMemBuf(t, vm, i, 4, 16)
	expectRaise(t, i, ErrBadIndex, b, "GetCard1At", FromSmallInt(4))
	expectRaise(t, i, ErrOverflow, b, "GetCard4At", FromSmallInt(1))
	expectRaise(t, i, ErrBadIndex, b, "GetFloat8At", FromSmallInt(10))
}

func TestMemBufArgumentErrors(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	b := newMemBuf(t, vm, i, 4, 16)

	_, err := i.Send(b, "PutCard1At", FromSmallInt(0), FromSmallInt(256))
	if exc := i.LastException(); err == nil || !exc.Matches(RuntimeErrors, ErrParmRange) {
		t.Errorf("PutCard1At(0, 256) = %v, want ParmRange", err)
	}
	_, err = i.Send(b, "GetCard1At", True)
	if exc := i.LastException(); err == nil || !exc.Matches(RuntimeErrors, ErrBadParmType) {
		t.Errorf("GetCard1At(true) = %v, want BadParmType", err)
	}
	_, err = i.Send(b, "GetCard1At")
	if exc := i.LastException(); err == nil || !exc.Matches(RuntimeErrors, ErrBadParmCount) {
		t.Errorf("GetCard1At() = %v, want BadParmCount", err)
	}
	if i.Depth() != 0 {
		t.Errorf("stack depth after errors = %d, want 0", i.Depth())
	}
}

func TestMemBufChecksum(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	b := newMemBuf(t, vm, i, 4, 4)
	fill(t, i, b, "\x00\x01\x02\x03")
	if got := mustSend(t, i, b, "CalcSum", ints(0, 4)...).SmallInt(); got != 6 {
		t.Errorf("CalcSum(0, 4) = %d, want 6", got)
	}
	expectRaise(t, i, ErrOverflow, b, "CalcSum", ints(1, 4)...)
}

func TestMemBufFindByte(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	b := newMemBuf(t, vm, i, 5, 5)
	fill(t, i, b, "abcab")

	if got := mustSend(t, i, b, "FindByte", ints(1, 'a')...).SmallInt(); got != 3 {
		t.Errorf("FindByte(1, a) = %d, want 3", got)
	}
	if got := mustSend(t, i, b, "FindByte", ints(0, 'z')...).SmallInt(); got != int64(membuf.NotFound) {
		t.Errorf("FindByte(0, z) = %d, want not found", got)
	}
	expectRaise(t, i, ErrBadIndex, b, "FindByte", ints(5, 'a')...)
}

func TestMemBufSetAll(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	b := newMemBuf(t, vm, i, 3, 10)
	mustSend(t, i, b, "SetAll", FromSmallInt('q'))
	if got := contents(vm, b); got != "qqq" {
		t.Errorf("contents = %q, want qqq", got)
	}
}

func TestMemBufCopies(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	a := newMemBuf(t, vm, i, 6, 16)
	b := newMemBuf(t, vm, i, 6, 16)
	fill(t, i, a, "abcdef")
	fill(t, i, b, "......")

	mustSend(t, i, b, "CopyIn", a, FromSmallInt(3), FromSmallInt(2))
	if got := contents(vm, b); got != "cde..." {
		t.Errorf("CopyIn: %q, want cde...", got)
	}

	mustSend(t, i, b, "CopyInAt", a, FromSmallInt(2), FromSmallInt(4))
	if got := contents(vm, b); got != "cde.ab" {
		t.Errorf("CopyInAt: %q, want cde.ab", got)
	}

	mustSend(t, i, a, "CopyOut", b, FromSmallInt(2), FromSmallInt(4))
	if got := contents(vm, b); got != "efe.ab" {
		t.Errorf("CopyOut: %q, want efe.ab", got)
	}

	expectRaise(t, i, ErrOverflow, b, "CopyIn", a, FromSmallInt(3), FromSmallInt(4))
	expectRaise(t, i, ErrOverflow, b, "CopyInAt", a, FromSmallInt(3), FromSmallInt(4))
}

func TestMemBufSelfTarget(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	a := newMemBuf(t, vm, i, 4, 8)
	fill(t, i, a, "wxyz")

	for _, name := range []string{"CopyIn", "CopyInAt", "CopyOut"} {
		exc := expectRaise(t, i, ErrSelfTarget, a, name, a, FromSmallInt(2), FromSmallInt(1))
		if exc.Text != "The source and target buffers cannot be the same" {
			t.Errorf("%s text = %q", name, exc.Text)
		}
		if got := contents(vm, a); got != "wxyz" {
			t.Errorf("%s mutated buffer: %q", name, got)
		}
	}

	// Two views over one host buffer are the same target
	host := membuf.MustNew(4, 4)
	v1 := vm.NewMemBufView("v1", host)
	v2 := vm.NewMemBufView("v2", host)
	expectRaise(t, i, ErrSelfTarget, v1, "CopyIn", v2, FromSmallInt(1), FromSmallInt(0))
}

func TestMemBufCompByteRange(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	a := newMemBuf(t, vm, i, 4, 8)
	b := newMemBuf(t, vm, i, 4, 8)
	fill(t, i, a, "abcd")
	fill(t, i, b, "xbcd")

	if got := mustSend(t, i, a, "CompByteRange", b, FromSmallInt(1), FromSmallInt(3)); got != True {
		t.Errorf("CompByteRange(1, 3) = %v, want true", got)
	}
	if got := mustSend(t, i, a, "CompByteRange", b, FromSmallInt(0), FromSmallInt(2)); got != False {
		t.Errorf("CompByteRange(0, 2) = %v, want false", got)
	}
	expectRaise(t, i, ErrOverflow, a, "CompByteRange", b, FromSmallInt(2), FromSmallInt(3))
}

func TestMemBufExport(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	b := newMemBuf(t, vm, i, 6, 8)
	fill(t, i, b, "ab\x00cd\xe9")
	s := vm.NewString("s", "old")

	mustSend(t, i, b, "ExportString", s, FromSmallInt(2))
	if got := vm.StringContent(s); got != "ab" {
		t.Errorf("ExportString = %q, want ab", got)
	}

	mustSend(t, i, b, "ExportStringAt", s, FromSmallInt(3), FromSmallInt(3))
	if got := vm.StringContent(s); got != "cdé" {
		t.Errorf("ExportStringAt = %q, want cdé", got)
	}

	exc := expectRaise(t, i, ErrBadChar, b, "ExportString", s, FromSmallInt(4))
	if exc.Text != "Zero byte cannot be put into a string" {
		t.Errorf("text = %q", exc.Text)
	}
	expectRaise(t, i, ErrBadChar, b, "ExportStringAt", s, FromSmallInt(2), FromSmallInt(1))

	mustSend(t, i, b, "ExportVarString", s, FromSmallInt(6), FromSmallInt(0))
	if got := vm.StringContent(s); got != "ab" {
		t.Errorf("ExportVarString = %q, want ab", got)
	}
	expectRaise(t, i, ErrOverflow, b, "ExportVarString", s, FromSmallInt(7), FromSmallInt(0))
}

func TestMemBufImport(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	b := newMemBuf(t, vm, i, 0, 16)
	s := vm.NewString("s", "hello")

	// Count beyond the source length is clamped, not an error.
	if got := mustSend(t, i, b, "ImportString", s, FromSmallInt(100)).SmallInt(); got != 5 {
		t.Errorf("ImportString returned %d, want 5", got)
	}
	if got := contents(vm, b); got != "hello" {
		t.Errorf("contents = %q, want hello", got)
	}

	if got := mustSend(t, i, b, "ImportStringAt", s, FromSmallInt(2), FromSmallInt(10)).SmallInt(); got != 2 {
		t.Errorf("ImportStringAt returned %d, want 2", got)
	}
	if got := mustSend(t, i, b, "GetAlloc").SmallInt(); got != 12 {
		t.Errorf("alloc = %d, want 12", got)
	}

	latin := vm.NewString("l", "ÿ")
	mustSend(t, i, b, "ImportString", latin, FromSmallInt(1))
	if got := mustSend(t, i, b, "GetCard1At", FromSmallInt(0)).SmallInt(); got != 0xFF {
		t.Errorf("byte 0 = %#x, want 0xff", got)
	}

	wide := vm.NewString("w", "abĀc")
	exc := expectRaise(t, i, ErrByteRange, b, "ImportString", wide, FromSmallInt(4))
	if exc.Text != "The source value is > 255" {
		t.Errorf("text = %q", exc.Text)
	}
	if got := contents(vm, b)[:3]; got != "abl" {
		t.Errorf("bytes before bad character = %q, want abl", got)
	}

	expectRaise(t, i, ErrOverflow, b, "ImportStringAt", s, FromSmallInt(5), FromSmallInt(12))
}

func TestMemBufExtract(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	b := newMemBuf(t, vm, i, 0, 32)
	fill(t, i, b, "4294967295|4294967296|fFa0|12x")

	tests := []struct {
		method    string
		at, count int64
		want      int64
	}{
		{"ExtractDecValAt", 0, 10, 4294967295},
		{"ExtractDecValAt", 0, 3, 429},
		{"ExtractHexValAt", 22, 4, 0xFFA0},
		{"ExtractHexValAt", 0, 8, 0x42949672},
		{"ExtractDecValAt", 27, 2, 12},
	}
	for _, tt := range tests {
		got := mustSend(t, i, b, tt.method, ints(tt.at, tt.count)...).SmallInt()
		if got != tt.want {
			t.Errorf("%s(%d, %d) = %d, want %d", tt.method, tt.at, tt.count, got, tt.want)
		}
	}

	if got := mustSend(t, i, b, "ExtractDecDigAt", FromSmallInt(1)).SmallInt(); got != 2 {
		t.Errorf("ExtractDecDigAt(1) = %d, want 2", got)
	}
	if got := mustSend(t, i, b, "ExtractHexDigAt", FromSmallInt(23)).SmallInt(); got != 0xF {
		t.Errorf("ExtractHexDigAt(23) = %d, want 15", got)
	}

	exc := expectRaise(t, i, ErrBadValue, b, "ExtractDecValAt", ints(11, 10)...)
	if exc.Text != "Could not convert the 10 bytes at index 11 into a numeric value" {
		t.Errorf("text = %q", exc.Text)
	}
	exc = expectRaise(t, i, ErrNotDecDig, b, "ExtractDecValAt", ints(27, 3)...)
	if exc.Text != "The value at offset 29 is not an ASCII decimal digit" {
		t.Errorf("text = %q", exc.Text)
	}
	exc = expectRaise(t, i, ErrNotHexDig, b, "ExtractHexValAt", ints(20, 4)...)
	if exc.Text != "The value at offset 21 is not an ASCII hex digit" {
		t.Errorf("text = %q", exc.Text)
	}
	expectRaise(t, i, ErrNotHexDig, b, "ExtractHexDigAt", FromSmallInt(10))
	expectRaise(t, i, ErrNotDecDig, b, "ExtractDecDigAt", FromSmallInt(22))

	exc = expectRaise(t, i, ErrBadDigRange, b, "ExtractDecValAt", ints(0, 11)...)
	if exc.Text != "11 is too large a range for digit extraction" {
		t.Errorf("text = %q", exc.Text)
	}
	expectRaise(t, i, ErrBadDigRange, b, "ExtractHexValAt", ints(0, 0)...)
	expectRaise(t, i, ErrOverflow, b, "ExtractDecValAt", ints(28, 4)...)
}

func TestMemBufHexExtractionProperty(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	b := newMemBuf(t, vm, i, 0, 16)

	for n, v := range []uint32{0, 1, 0xA, 0xFF, 0x1234, 0xDEADBEEF, math.MaxUint32} {
		text := hexString(v)
		if n%2 == 1 {
			text = strings.ToLower(text)
		}
		fill(t, i, b, text)
		got := mustSend(t, i, b, "ExtractHexValAt", ints(0, 8)...).SmallInt()
		if uint32(got) != v {
			t.Errorf("ExtractHexValAt(%q) = %#x, want %#x", text, got, v)
		}
	}
}

func hexString(v uint32) string {
	var sb strings.Builder
	for shift := 28; shift >= 0; shift -= 4 {
		sb.WriteByte(hexDigits[(v>>uint(shift))&0xF])
	}
	return sb.String()
}

func TestMemBufInsertASCIIHexPair(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	b := newMemBuf(t, vm, i, 0, 6)

	mustSend(t, i, b, "InsertASCIIHexPair", ints(0xA7, 0)...)
	mustSend(t, i, b, "InsertASCIIHexPair", ints(0x05, 2)...)
	mustSend(t, i, b, "InsertASCIIHexPair", ints(0x10, 4)...)
	if got := contents(vm, b); got != "A7 510" {
		t.Errorf("contents = %q, want %q", got, "A7 510")
	}
	expectRaise(t, i, ErrOverflow, b, "InsertASCIIHexPair", ints(1, 5)...)
}

func TestMemBufMakeSpaceScenario(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	b := newMemBuf(t, vm, i, 0, 7)
	fill(t, i, b, "ABCDE")

	mustSend(t, i, b, "MakeSpace", ints(3, 2, 5)...)
	mustSend(t, i, b, "PutCard1At", ints(3, 'x')...)
	mustSend(t, i, b, "PutCard1At", ints(4, 'y')...)
	if got := contents(vm, b); got != "ABCxyDE" {
		t.Errorf("contents = %q, want ABCxyDE", got)
	}

	mustSend(t, i, b, "RemoveSpace", ints(3, 2, 7)...)
	if got := contents(vm, b)[:5]; got != "ABCDE" {
		t.Errorf("after RemoveSpace = %q, want ABCDE", got)
	}
}

func TestMemBufShiftErrors(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	b := newMemBuf(t, vm, i, 5, 6)

	exc := expectRaise(t, i, ErrBlockMove, b, "MakeSpace", ints(3, 2, 5)...)
	if !strings.Contains(exc.Text, "make space") {
		t.Errorf("BlockMove text = %q, want the native error text", exc.Text)
	}
	expectRaise(t, i, ErrBlockMove, b, "MakeSpace", ints(0, 1, 6)...)
	expectRaise(t, i, ErrBlockMove, b, "RemoveSpace", ints(4, 2, 5)...)
	expectRaise(t, i, ErrOverflow, b, "MoveToStart", ints(3, 3)...)
}

func TestMemBufMoveToStart(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	b := newMemBuf(t, vm, i, 0, 8)
	fill(t, i, b, "abcdef")
	mustSend(t, i, b, "MoveToStart", ints(4, 2)...)
	if got := contents(vm, b); got != "efcdef" {
		t.Errorf("contents = %q, want efcdef", got)
	}
}

func TestMemBufViewMode(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	host := membuf.MustNew(4, 16)

	v := vm.NewMemBufView("view", host)
	if !vm.MemBufValueOf(v).IsView() {
		t.Fatal("view value does not report IsView")
	}
	mustSend(t, i, v, "PutCard4At", ints(0, 0x01020304)...)
	if got := host.Card4At(0); got != 0x01020304 {
		t.Errorf("host buffer = %#x, want 0x01020304", got)
	}

	if !vm.Destroy(v) {
		t.Fatal("Destroy returned false")
	}
	if host.Released() {
		t.Error("destroying a view released the host buffer")
	}
	if got := host.Card4At(0); got != 0x01020304 {
		t.Errorf("host buffer after destroy = %#x", got)
	}

	owned := newMemBuf(t, vm, i, 4, 4)
	buf := vm.MemBufValueOf(owned).Buffer()
	vm.Destroy(owned)
	if !buf.Released() {
		t.Error("destroying an owned value did not release its buffer")
	}
	if _, err := i.Send(owned, "GetAlloc"); err == nil || !i.LastException().Matches(RuntimeErrors, ErrNullObject) {
		t.Errorf("send to destroyed value = %v, want NullObject", err)
	}
}

func TestMemBufAssign(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	a := newMemBuf(t, vm, i, 3, 9)
	b := newMemBuf(t, vm, i, 1, 2)
	fill(t, i, a, "xyz")

	if err := vm.Assign(b, a); err != nil {
		t.Fatal(err)
	}
	if got := contents(vm, b); got != "xyz" {
		t.Errorf("contents = %q, want xyz", got)
	}
	if got := mustSend(t, i, b, "GetMaxSize").SmallInt(); got != 9 {
		t.Errorf("max = %d, want 9", got)
	}

	s := vm.NewString("s", "")
	if err := vm.Assign(b, s); err == nil {
		t.Error("assigning a String to a MemBuf should fail")
	}
}

func TestMemBufDebugFormat(t *testing.T) {
	vm := NewVM()
	i := vm.NewInterpreter()
	b := newMemBuf(t, vm, i, 10, 10)
	fill(t, i, b, "\x00\x01\x02\x0A\xFF")
	mb := vm.MemBufValueOf(b)

	var sb strings.Builder
	if err := mb.DebugFormat(&sb, false, 16); err != nil {
		t.Fatal(err)
	}
	if want := "Alloc Size: 10\n, Bytes: 00 01 02 0A FF 00 00 00 "; sb.String() != want {
		t.Errorf("short hex = %q, want %q", sb.String(), want)
	}

	sb.Reset()
	mb.DebugFormat(&sb, true, 10)
	want := "Alloc Size: 10\n  0   1   2  10 255   0   0   0 \n      0   0 "
	if sb.String() != want {
		t.Errorf("long dec = %q, want %q", sb.String(), want)
	}
}
