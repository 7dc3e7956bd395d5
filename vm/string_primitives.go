package vm

import "unicode/utf8"

// ---------------------------------------------------------------------------
// String Storage
// ---------------------------------------------------------------------------

// StringObject is the instance data of a String value. Strings are mutable
// in place so that methods can fill them as out parameters.
type StringObject struct {
	Content string
}

// NewString registers a new String value holding s.
func (vm *VM) NewString(name, s string) Value {
	return vm.registry.Register(&Object{
		Class: vm.StringClass,
		Name:  name,
		Data:  &StringObject{Content: s},
	})
}

// StringContent returns the text of a String value, or "" if v is not one.
func (vm *VM) StringContent(v Value) string {
	if s := vm.stringObject(v); s != nil {
		return s.Content
	}
	return ""
}

func (vm *VM) stringObject(v Value) *StringObject {
	obj := vm.registry.Get(v)
	if obj == nil {
		return nil
	}
	s, _ := obj.Data.(*StringObject)
	return s
}

// ---------------------------------------------------------------------------
// String Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerStringPrimitives() {
	c := vm.StringClass

	// Length in characters, not bytes
	c.AddMethod0(vm.Selectors, "GetLength", func(i *Interpreter, recv Value) Value {
		return FromSmallInt(int64(utf8.RuneCountInString(vm.StringContent(recv))))
	})

	c.AddMethod0(vm.Selectors, "Clear", func(i *Interpreter, recv Value) Value {
		i.Self().Data.(*StringObject).Content = ""
		return Nil
	})

	c.AddMethod1(vm.Selectors, "Append", func(i *Interpreter, recv Value, other Value) Value {
		s := i.stringArg(other, 1)
		dst := i.Self().Data.(*StringObject)
		dst.Content += s.Content
		return Nil
	})
}
