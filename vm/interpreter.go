package vm

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"
)

// ErrStackOverflow is returned when pushing would exceed the operand stack
// limit.
var ErrStackOverflow = errors.New("vm: operand stack overflow")

// Interpreter is one logical thread of script execution: an operand stack,
// the source line being executed and the last raised exception.
// An Interpreter must not be used from more than one goroutine.
type Interpreter struct {
	vm       *VM
	stack    []Value
	maxStack int
	line     int

	// Set for the duration of a primitive call.
	self   *Object
	class  *Class
	method string

	lastException *ScriptException
}

// NewInterpreter creates an interpreter bound to vm.
func (vm *VM) NewInterpreter() *Interpreter {
	return &Interpreter{
		vm:       vm,
		stack:    make([]Value, 0, 32),
		maxStack: vm.config.StackSize,
	}
}

// VM returns the VM this interpreter runs in.
func (i *Interpreter) VM() *VM { return i.vm }

// ---------------------------------------------------------------------------
// Operand stack
// ---------------------------------------------------------------------------

// Push pushes v onto the operand stack.
func (i *Interpreter) Push(v Value) error {
	if i.maxStack > 0 && len(i.stack) >= i.maxStack {
		return ErrStackOverflow
	}
	i.stack = append(i.stack, v)
	return nil
}

// Pop removes and returns the top of the stack. Popping an empty stack
// returns Nil.
func (i *Interpreter) Pop() Value {
	n := len(i.stack)
	if n == 0 {
		return Nil
	}
	v := i.stack[n-1]
	i.stack = i.stack[:n-1]
	return v
}

// PopN removes the top n values and returns them in push order.
func (i *Interpreter) PopN(n int) []Value {
	if n > len(i.stack) {
		n = len(i.stack)
	}
	if n == 0 {
		return nil
	}
	start := len(i.stack) - n
	out := make([]Value, n)
	copy(out, i.stack[start:])
	i.stack = i.stack[:start]
	return out
}

// Depth returns the number of values on the stack.
func (i *Interpreter) Depth() int { return len(i.stack) }

// ---------------------------------------------------------------------------
// Diagnostics state
// ---------------------------------------------------------------------------

// SetLine records the source line now executing.
func (i *Interpreter) SetLine(line int) { i.line = line }

// CurLine returns the source line now executing.
func (i *Interpreter) CurLine() int { return i.line }

// LastException returns the most recently raised exception, or nil.
func (i *Interpreter) LastException() *ScriptException { return i.lastException }

// ClearException forgets the last raised exception.
func (i *Interpreter) ClearException() { i.lastException = nil }

// Self returns the receiver of the primitive being executed.
func (i *Interpreter) Self() *Object { return i.self }

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

// Dispatch invokes methodID on instance with the top argc stack values as
// arguments. The receiver's class is searched first, then its superclasses.
// On success the result replaces the arguments on the stack. handled is
// false, with the stack untouched, when no class in the chain defines
// methodID. A raised script exception is returned as a *ScriptException.
func (i *Interpreter) Dispatch(methodID int, instance Value, argc int) (handled bool, err error) {
	obj := i.vm.registry.Get(instance)
	if obj == nil {
		i.PopN(argc)
		return true, i.guard(func() {
			i.RaiseException(RuntimeErrors, ErrNullObject, "", instance)
		})
	}
	for c := obj.Class; c != nil; c = c.Superclass {
		if h, err := i.dispatchLocal(c, methodID, obj, instance, argc); h {
			return true, err
		}
	}
	return false, nil
}

// dispatchLocal invokes methodID if c itself defines it.
func (i *Interpreter) dispatchLocal(c *Class, methodID int, obj *Object, instance Value, argc int) (bool, error) {
	m := c.VTable.LookupLocal(methodID)
	if m == nil {
		return false, nil
	}
	args := i.PopN(argc)

	if i.vm.log.AllowLevel(commonlog.Debug) {
		i.vm.log.Debug("dispatch", "class", c.Name, "method", m.Name(), "object", obj.Name, "line", i.line)
	}

	prevSelf, prevClass, prevMethod := i.self, i.class, i.method
	i.self, i.class, i.method = obj, c, m.Name()
	defer func() {
		i.self, i.class, i.method = prevSelf, prevClass, prevMethod
	}()

	var result Value
	err := i.guard(func() {
		if len(args) != m.Arity() {
			i.RaiseException(RuntimeErrors, ErrBadParmCount, c.Path, m.Name(), m.Arity(), len(args))
		}
		result = m.Invoke(i, instance, args)
	})
	if err != nil {
		return true, err
	}
	return true, i.Push(result)
}

// guard runs fn, converting a raised script exception into an error.
// Any other panic is reported as an Internal runtime error so that no
// native failure escapes a dispatch.
func (i *Interpreter) guard(fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if sig, ok := r.(SignaledException); ok {
			err = sig.Exception
			return
		}
		i.vm.log.Errorf("recovered from native panic in %s: %v", i.method, r)
		err = i.guard(func() {
			path := ""
			if i.class != nil {
				path = i.class.Path
			}
			i.RaiseException(RuntimeErrors, ErrInternal, path, i.method, fmt.Sprint(r))
		})
	}()
	fn()
	return nil
}

// Send looks up name, pushes args and dispatches to instance, returning
// the method's result. A name the receiver does not understand raises
// NotUnderstood.
func (i *Interpreter) Send(instance Value, name string, args ...Value) (Value, error) {
	for n, a := range args {
		if err := i.Push(a); err != nil {
			i.PopN(n)
			return Nil, err
		}
	}
	id := i.vm.Selectors.Lookup(name)
	handled, err := false, error(nil)
	if id >= 0 {
		handled, err = i.Dispatch(id, instance, len(args))
	}
	if !handled {
		i.PopN(len(args))
		return Nil, i.guard(func() {
			cls := "<unknown>"
			if obj := i.vm.registry.Get(instance); obj != nil {
				cls = obj.Class.Path
			}
			i.RaiseException(RuntimeErrors, ErrNotUnderstood, cls, cls, name)
		})
	}
	if err != nil {
		return Nil, err
	}
	return i.Pop(), nil
}
