package trace

import (
	"errors"

	"github.com/chazu/membuf/vm"
)

// Recorder appends entries to a Session as a script runs. Values that
// were declared through Decl are recorded by name; any other String value
// is recorded by content.
type Recorder struct {
	vm      *vm.VM
	session *Session
	names   map[vm.Value]string
	vars    map[string]vm.Value
}

// NewRecorder records into a new session for source.
func NewRecorder(v *vm.VM, source string) *Recorder {
	return &Recorder{
		vm:      v,
		session: NewSession(source),
		names:   make(map[vm.Value]string),
		vars:    make(map[string]vm.Value),
	}
}

// Session returns the session recorded so far.
func (r *Recorder) Session() *Session { return r.session }

// Decl records the declaration of a named value.
func (r *Recorder) Decl(line int, name, class string, constTag bool, v vm.Value) {
	r.names[v] = name
	r.vars[name] = v
	r.session.Entries = append(r.session.Entries, Entry{
		Op:    OpDecl,
		Line:  line,
		Var:   name,
		Class: class,
		Const: constTag,
	})
}

// Call records a method invocation and its outcome. err is the error
// returned by Interpreter.Send.
func (r *Recorder) Call(line int, recv string, method string, args []vm.Value, result vm.Value, err error) {
	e := Entry{
		Op:     OpCall,
		Line:   line,
		Var:    recv,
		Method: method,
		Args:   make([]Arg, len(args)),
	}
	for n, a := range args {
		e.Args[n] = r.argOf(a)
	}
	if err != nil {
		e.Error = errorName(err)
	} else {
		e.Result = r.argOf(result)
	}
	r.session.Entries = append(r.session.Entries, e)
}

// Destroy records the destruction of a declared value.
func (r *Recorder) Destroy(line int, name string) {
	r.session.Entries = append(r.session.Entries, Entry{Op: OpDestroy, Line: line, Var: name})
}

// Assign records dst = src between two declared values.
func (r *Recorder) Assign(line int, dst, src string) {
	r.session.Entries = append(r.session.Entries, Entry{
		Op:   OpAssign,
		Line: line,
		Var:  dst,
		Args: []Arg{{Kind: KindRef, Str: src}},
	})
}

// Snapshot records the final contents of every declared MemBuf value.
func (r *Recorder) Snapshot(line int) {
	for _, e := range r.session.Entries {
		if e.Op != OpDecl {
			continue
		}
		mb := r.vm.MemBufValueOf(r.vars[e.Var])
		if mb == nil {
			continue
		}
		buf := mb.Buffer()
		r.session.Entries = append(r.session.Entries, Entry{
			Op:      OpSnapshot,
			Line:    line,
			Var:     e.Var,
			Bytes:   append([]byte{}, buf.Bytes()...),
			MaxSize: buf.MaxSize(),
		})
	}
}

func (r *Recorder) argOf(v vm.Value) Arg {
	return toArg(r.vm, r.names, v)
}

func toArg(machine *vm.VM, names map[vm.Value]string, v vm.Value) Arg {
	switch {
	case v == vm.Nil:
		return Arg{Kind: KindNil}
	case v.IsBool():
		return Arg{Kind: KindBool, Bool: v.Bool()}
	case v.IsSmallInt():
		return Arg{Kind: KindInt, Int: v.SmallInt()}
	case v.IsRef():
		if name, ok := names[v]; ok {
			return Arg{Kind: KindRef, Str: name}
		}
		return Arg{Kind: KindString, Str: machine.StringContent(v)}
	default:
		return Arg{Kind: KindFloat, Float: v.Float64()}
	}
}

// errorName returns the exception name carried by err, or its text for
// errors that are not script exceptions.
func errorName(err error) string {
	var exc *vm.ScriptException
	if errors.As(err, &exc) {
		return exc.Name
	}
	return err.Error()
}
