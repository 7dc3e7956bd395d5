package vm

import "math"

// Argument coercion for primitives. Each helper either returns the Go value
// or raises BadParmType / ParmRange naming the parameter position and the
// method being executed.

func (i *Interpreter) classPath() string {
	if i.class == nil {
		return ""
	}
	return i.class.Path
}

func (i *Interpreter) badType(pos int, want string) {
	i.RaiseException(RuntimeErrors, ErrBadParmType, i.classPath(), pos, i.method, want)
}

func (i *Interpreter) badRange(pos int, want string) {
	i.RaiseException(RuntimeErrors, ErrParmRange, i.classPath(), pos, i.method, want)
}

func (i *Interpreter) intArg(v Value, pos int, lo, hi int64, typeName string) int64 {
	if !v.IsSmallInt() {
		i.badType(pos, typeName)
	}
	n := v.SmallInt()
	if n < lo || n > hi {
		i.badRange(pos, typeName)
	}
	return n
}

// Card1Arg coerces an unsigned 8 bit argument.
func (i *Interpreter) Card1Arg(v Value, pos int) uint8 {
	return uint8(i.intArg(v, pos, 0, math.MaxUint8, "Card1"))
}

// Card2Arg coerces an unsigned 16 bit argument.
func (i *Interpreter) Card2Arg(v Value, pos int) uint16 {
	return uint16(i.intArg(v, pos, 0, math.MaxUint16, "Card2"))
}

// Card4Arg coerces an unsigned 32 bit argument.
func (i *Interpreter) Card4Arg(v Value, pos int) uint32 {
	return uint32(i.intArg(v, pos, 0, math.MaxUint32, "Card4"))
}

func (i *Interpreter) Int1Arg(v Value, pos int) int8 {
	return int8(i.intArg(v, pos, math.MinInt8, math.MaxInt8, "Int1"))
}

func (i *Interpreter) Int2Arg(v Value, pos int) int16 {
	return int16(i.intArg(v, pos, math.MinInt16, math.MaxInt16, "Int2"))
}

func (i *Interpreter) Int4Arg(v Value, pos int) int32 {
	return int32(i.intArg(v, pos, math.MinInt32, math.MaxInt32, "Int4"))
}

// Float8Arg accepts a float or an integer.
func (i *Interpreter) Float8Arg(v Value, pos int) float64 {
	switch {
	case v.IsSmallInt():
		return float64(v.SmallInt())
	case v.IsFloat():
		return v.Float64()
	}
	i.badType(pos, "Float8")
	return 0
}

// Float4Arg accepts a float or an integer and narrows it to 32 bits.
// Finite values outside the float32 range raise ParmRange.
func (i *Interpreter) Float4Arg(v Value, pos int) float32 {
	f := i.Float8Arg(v, pos)
	if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
		i.badRange(pos, "Float4")
	}
	return float32(f)
}

func (i *Interpreter) BoolArg(v Value, pos int) bool {
	if !v.IsBool() {
		i.badType(pos, "Boolean")
	}
	return v.Bool()
}

func (i *Interpreter) stringArg(v Value, pos int) *StringObject {
	s := i.vm.stringObject(v)
	if s == nil {
		i.badType(pos, "String")
	}
	return s
}

// objectArg returns the object behind v if it is an instance of cls.
func (i *Interpreter) objectArg(v Value, pos int, cls *Class) *Object {
	obj := i.vm.registry.Get(v)
	if obj == nil || !obj.Class.IsSubclassOf(cls) {
		i.badType(pos, cls.Name)
	}
	return obj
}
