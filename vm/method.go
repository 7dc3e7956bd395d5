package vm

// Method is a callable entry in a VTable.
type Method interface {
	Invoke(i *Interpreter, receiver Value, args []Value) Value
	Name() string
	Arity() int
}

// Method0Func is a primitive taking no arguments.
type Method0Func func(i *Interpreter, receiver Value) Value

// Method1Func is a primitive taking one argument.
type Method1Func func(i *Interpreter, receiver Value, arg1 Value) Value

// Method2Func is a primitive taking two arguments.
type Method2Func func(i *Interpreter, receiver Value, arg1, arg2 Value) Value

// Method3Func is a primitive taking three arguments.
type Method3Func func(i *Interpreter, receiver Value, arg1, arg2, arg3 Value) Value

// ---------------------------------------------------------------------------
// Arity-specialized method wrappers
// ---------------------------------------------------------------------------

// Method0 wraps a zero-argument primitive.
type Method0 struct {
	name string
	fn   Method0Func
}

func (m *Method0) Invoke(i *Interpreter, receiver Value, args []Value) Value {
	return m.fn(i, receiver)
}

func (m *Method0) Name() string { return m.name }
func (m *Method0) Arity() int   { return 0 }

// Method1 wraps a one-argument primitive.
type Method1 struct {
	name string
	fn   Method1Func
}

func (m *Method1) Invoke(i *Interpreter, receiver Value, args []Value) Value {
	return m.fn(i, receiver, args[0])
}

func (m *Method1) Name() string { return m.name }
func (m *Method1) Arity() int   { return 1 }

// Method2 wraps a two-argument primitive.
type Method2 struct {
	name string
	fn   Method2Func
}

func (m *Method2) Invoke(i *Interpreter, receiver Value, args []Value) Value {
	return m.fn(i, receiver, args[0], args[1])
}

func (m *Method2) Name() string { return m.name }
func (m *Method2) Arity() int   { return 2 }

// Method3 wraps a three-argument primitive.
type Method3 struct {
	name string
	fn   Method3Func
}

func (m *Method3) Invoke(i *Interpreter, receiver Value, args []Value) Value {
	return m.fn(i, receiver, args[0], args[1], args[2])
}

func (m *Method3) Name() string { return m.name }
func (m *Method3) Arity() int   { return 3 }

// ---------------------------------------------------------------------------
// Class helpers
// ---------------------------------------------------------------------------

// AddMethod0 interns name and installs a zero-argument primitive.
func (c *Class) AddMethod0(st *SelectorTable, name string, fn Method0Func) int {
	id := st.Intern(name)
	c.VTable.AddMethod(id, &Method0{name: name, fn: fn})
	return id
}

// AddMethod1 interns name and installs a one-argument primitive.
func (c *Class) AddMethod1(st *SelectorTable, name string, fn Method1Func) int {
	id := st.Intern(name)
	c.VTable.AddMethod(id, &Method1{name: name, fn: fn})
	return id
}

// AddMethod2 interns name and installs a two-argument primitive.
func (c *Class) AddMethod2(st *SelectorTable, name string, fn Method2Func) int {
	id := st.Intern(name)
	c.VTable.AddMethod(id, &Method2{name: name, fn: fn})
	return id
}

// AddMethod3 interns name and installs a three-argument primitive.
func (c *Class) AddMethod3(st *SelectorTable, name string, fn Method3Func) int {
	id := st.Intern(name)
	c.VTable.AddMethod(id, &Method3{name: name, fn: fn})
	return id
}
