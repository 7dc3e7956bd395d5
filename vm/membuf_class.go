package vm

import (
	"sort"

	"github.com/chazu/membuf/membuf"
)

const memBufClassPath = "MEng.System.Runtime.MemBuf"

// MemBufClass is the MemBuf runtime class: a script-visible byte buffer
// with bounds-checked typed access. Its method table is built once, in
// NewVM; method IDs are stable for the life of the VM.
type MemBufClass struct {
	*Class
	vm   *VM
	opts []membuf.Option
}

// MethodInfo describes one entry of a class's method table.
type MethodInfo struct {
	ID    int
	Name  string
	Arity int
}

func newMemBufClass(vm *VM) *MemBufClass {
	c := &MemBufClass{
		Class: NewClass("MemBuf", memBufClassPath, vm.ObjectClass),
		vm:    vm,
	}
	if inc := vm.config.ExpandIncrement; inc > 0 {
		c.opts = append(c.opts, membuf.WithExpandIncrement(inc))
	}
	placeholder := vm.config.PlaceholderSize
	c.NewStorage = func() interface{} {
		return newOwnedMemBuf(placeholder, c.opts...)
	}
	c.registerPrimitives()
	return c
}

// Methods returns the method table in ID order.
func (c *MemBufClass) Methods() []MethodInfo {
	var out []MethodInfo
	for id, m := range c.VTable.LocalMethods() {
		out = append(out, MethodInfo{ID: id, Name: m.Name(), Arity: m.Arity()})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

// MethodID returns the ID of a MemBuf method, or -1 if the class does not
// define it.
func (c *MemBufClass) MethodID(name string) int {
	id := c.vm.Selectors.Lookup(name)
	if id < 0 || c.VTable.LookupLocal(id) == nil {
		return -1
	}
	return id
}

// Dispatch invokes methodID on instance if MemBuf itself defines it.
// handled is false for any other ID, leaving the stack untouched so that
// the caller can try the base class.
func (c *MemBufClass) Dispatch(i *Interpreter, methodID int, instance Value, argc int) (handled bool, err error) {
	obj := c.vm.registry.Get(instance)
	if obj == nil || !obj.Class.IsSubclassOf(c.Class) {
		return false, nil
	}
	return i.dispatchLocal(c.Class, methodID, obj, instance, argc)
}

// NewMemBufView registers a MemBuf value that operates on buf without
// owning it. Destroying the value leaves buf intact.
func (vm *VM) NewMemBufView(name string, buf *membuf.Buffer) Value {
	return vm.registry.Register(&Object{
		Class: vm.MemBuf.Class,
		Name:  name,
		Data:  NewMemBufView(buf),
	})
}

// MemBufValueOf returns the MemBuf instance data behind v, or nil.
func (vm *VM) MemBufValueOf(v Value) *MemBufValue {
	obj := vm.registry.Get(v)
	if obj == nil {
		return nil
	}
	mb, _ := obj.Data.(*MemBufValue)
	return mb
}

// IndexCheck validates that [index, index+count) lies inside buf, against
// the max size when useMax is set and the current size otherwise. A failed
// check raises BadIndex or Overflow. Other classes call this to validate
// ranges they are about to hand to a MemBuf.
func (c *MemBufClass) IndexCheck(i *Interpreter, buf *membuf.Buffer, count, index uint32, useMax bool) {
	ceiling := buf.Size()
	if useMax {
		ceiling = buf.MaxSize()
	}
	if index >= ceiling {
		c.raise(i, ErrBadIndex, index, ceiling)
	}
	if uint64(index)+uint64(count) > uint64(ceiling) {
		c.raise(i, ErrOverflow, index, count, ceiling)
	}
}

func (c *MemBufClass) raise(i *Interpreter, err MemBufError, tokens ...interface{}) {
	i.RaiseException(MemBufErrors, int(err), c.Path, tokens...)
}

// self returns the receiver's instance data.
func (c *MemBufClass) self(i *Interpreter) *MemBufValue {
	return i.Self().Data.(*MemBufValue)
}

// bufArg coerces a MemBuf argument.
func (c *MemBufClass) bufArg(i *Interpreter, v Value, pos int) *MemBufValue {
	return i.objectArg(v, pos, c.Class).Data.(*MemBufValue)
}

// ---------------------------------------------------------------------------
// Registration
// ---------------------------------------------------------------------------

func (c *MemBufClass) add0(name string, fn Method0Func) {
	c.AddMethod0(c.vm.Selectors, name, fn)
}

func (c *MemBufClass) add1(name string, fn Method1Func) {
	c.AddMethod1(c.vm.Selectors, name, fn)
}

func (c *MemBufClass) add2(name string, fn Method2Func) {
	c.AddMethod2(c.vm.Selectors, name, fn)
}

func (c *MemBufClass) add3(name string, fn Method3Func) {
	c.AddMethod3(c.vm.Selectors, name, fn)
}

func (c *MemBufClass) registerPrimitives() {
	c.add2("Ctor", c.primCtor)

	c.add2("CalcSum", c.primCalcSum)
	c.add3("CheckIndRange", c.primCheckIndRange)
	c.add3("CompByteRange", c.primCompByteRange)

	c.add3("CopyIn", c.primCopyIn)
	c.add3("CopyInAt", c.primCopyInAt)
	c.add3("CopyOut", c.primCopyOut)

	c.add2("ExportString", c.primExportString)
	c.add3("ExportStringAt", c.primExportStringAt)
	c.add3("ExportVarString", c.primExportVarString)

	c.add1("ExtractDecDigAt", c.primExtractDigAt(10))
	c.add2("ExtractDecValAt", c.primExtractValAt(10))
	c.add1("ExtractHexDigAt", c.primExtractDigAt(16))
	c.add2("ExtractHexValAt", c.primExtractValAt(16))

	c.add2("FindByte", c.primFindByte)
	c.add0("GetAlloc", c.primGetAlloc)
	c.add0("GetMaxSize", c.primGetMaxSize)

	c.add1("GetCard1At", c.getAt(1, func(b *membuf.Buffer, at uint32) Value { return FromSmallInt(int64(b.Card1At(at))) }))
	c.add1("GetCard2At", c.getAt(2, func(b *membuf.Buffer, at uint32) Value { return FromSmallInt(int64(b.Card2At(at))) }))
	c.add1("GetCard4At", c.getAt(4, func(b *membuf.Buffer, at uint32) Value { return FromCard4(b.Card4At(at)) }))
	c.add1("GetInt1At", c.getAt(1, func(b *membuf.Buffer, at uint32) Value { return FromSmallInt(int64(b.Int1At(at))) }))
	c.add1("GetInt2At", c.getAt(2, func(b *membuf.Buffer, at uint32) Value { return FromSmallInt(int64(b.Int2At(at))) }))
	c.add1("GetInt4At", c.getAt(4, func(b *membuf.Buffer, at uint32) Value { return FromSmallInt(int64(b.Int4At(at))) }))
	c.add1("GetFloat4At", c.getAt(4, func(b *membuf.Buffer, at uint32) Value { return FromFloat64(float64(b.Float4At(at))) }))
	c.add1("GetFloat8At", c.getAt(8, func(b *membuf.Buffer, at uint32) Value { return FromFloat64(b.Float8At(at)) }))

	c.add2("PutCard1At", c.putAt(1, func(i *Interpreter, b *membuf.Buffer, at uint32, v Value) { b.PutCard1(at, i.Card1Arg(v, 2)) }))
	c.add2("PutCard2At", c.putAt(2, func(i *Interpreter, b *membuf.Buffer, at uint32, v Value) { b.PutCard2(at, i.Card2Arg(v, 2)) }))
	c.add2("PutCard4At", c.putAt(4, func(i *Interpreter, b *membuf.Buffer, at uint32, v Value) { b.PutCard4(at, i.Card4Arg(v, 2)) }))
	c.add2("PutInt1At", c.putAt(1, func(i *Interpreter, b *membuf.Buffer, at uint32, v Value) { b.PutInt1(at, i.Int1Arg(v, 2)) }))
	c.add2("PutInt2At", c.putAt(2, func(i *Interpreter, b *membuf.Buffer, at uint32, v Value) { b.PutInt2(at, i.Int2Arg(v, 2)) }))
	c.add2("PutInt4At", c.putAt(4, func(i *Interpreter, b *membuf.Buffer, at uint32, v Value) { b.PutInt4(at, i.Int4Arg(v, 2)) }))
	c.add2("PutFloat4At", c.putAt(4, func(i *Interpreter, b *membuf.Buffer, at uint32, v Value) { b.PutFloat4(at, i.Float4Arg(v, 2)) }))
	c.add2("PutFloat8At", c.putAt(8, func(i *Interpreter, b *membuf.Buffer, at uint32, v Value) { b.PutFloat8(at, i.Float8Arg(v, 2)) }))

	c.add2("ImportString", c.primImportString)
	c.add3("ImportStringAt", c.primImportStringAt)
	c.add2("InsertASCIIHexPair", c.primInsertASCIIHexPair)

	c.add3("MakeSpace", c.primMakeSpace)
	c.add2("MoveToStart", c.primMoveToStart)
	c.add3("RemoveSpace", c.primRemoveSpace)

	c.add1("Reallocate", c.primReallocate)
	c.add1("SetAll", c.primSetAll)
}
