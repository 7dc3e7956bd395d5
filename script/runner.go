package script

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/tliron/commonlog"

	"github.com/chazu/membuf/trace"
	"github.com/chazu/membuf/vm"
)

var log = commonlog.GetLogger("membuf.script")

// ExpectationError reports an expect statement whose outcome differed.
type ExpectationError struct {
	Line int
	Call string
	Want string
	Got  string
}

func (e *ExpectationError) Error() string {
	return fmt.Sprintf("line %d: expect %s: want %s, got %s", e.Line, e.Call, e.Want, e.Got)
}

// StatementError is a script mistake that is not a raised exception:
// undeclared names, bad literals, unsupported initializers.
type StatementError struct {
	Line int
	Msg  string
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Stats counts what a run executed.
type Stats struct {
	Statements   int
	Calls        int
	Expectations int
}

// Runner executes programs against one interpreter. Declarations persist
// across Run calls.
type Runner struct {
	vm     *vm.VM
	interp *vm.Interpreter
	out    io.Writer
	rec    *trace.Recorder
	vars   map[string]vm.Value
	temps  []vm.Value
}

// NewRunner creates a runner on machine that writes print and dump output
// to out.
func NewRunner(machine *vm.VM, out io.Writer) *Runner {
	return &Runner{
		vm:     machine,
		interp: machine.NewInterpreter(),
		out:    out,
		vars:   make(map[string]vm.Value),
	}
}

// Record attaches a trace recorder. Every declaration and call from here on
// is recorded.
func (r *Runner) Record(rec *trace.Recorder) { r.rec = rec }

// Interpreter returns the interpreter statements run on.
func (r *Runner) Interpreter() *vm.Interpreter { return r.interp }

// Lookup returns a declared value.
func (r *Runner) Lookup(name string) (vm.Value, bool) {
	v, ok := r.vars[name]
	return v, ok
}

// Run executes prog. It stops at the first uncaught exception, failed
// expectation or statement error; an uncaught exception is returned as
// the *vm.ScriptException, which carries the statement's line.
func (r *Runner) Run(prog *Program) (Stats, error) {
	var stats Stats
	for _, st := range prog.Statements {
		line := st.Pos.Line
		r.interp.SetLine(line)
		stats.Statements++

		err := r.exec(st, line, &stats)
		r.releaseTemps()
		if err != nil {
			log.Infof("stopped at line %d: %s", line, err)
			return stats, err
		}
	}
	log.Debugf("ran %d statements, %d calls, %d expectations", stats.Statements, stats.Calls, stats.Expectations)
	return stats, nil
}

// RunSource parses and runs source.
func (r *Runner) RunSource(name, source string) (Stats, error) {
	prog, err := Parse(name, source)
	if err != nil {
		return Stats{}, err
	}
	return r.Run(prog)
}

// Finish records a snapshot of every live MemBuf when recording.
func (r *Runner) Finish(line int) {
	if r.rec != nil {
		r.rec.Snapshot(line)
	}
}

func (r *Runner) exec(st *Statement, line int, stats *Stats) error {
	switch {
	case st.Decl != nil:
		return r.declare(st.Decl, line, stats)

	case st.Expect != nil:
		stats.Expectations++
		return r.expect(st.Expect, line, stats)

	case st.Print != nil:
		res, err := r.call(st.Print, line, stats)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(r.out, "%s = %s\n", st.Print, r.format(res))
		return err

	case st.Dump != nil:
		return r.dump(st.Dump, line)

	case st.Destroy != nil:
		v, err := r.lookup(*st.Destroy, line)
		if err != nil {
			return err
		}
		r.vm.Destroy(v)
		if r.rec != nil {
			r.rec.Destroy(line, *st.Destroy)
		}
		return nil

	case st.Assign != nil:
		dst, err := r.lookup(st.Assign.Dst, line)
		if err != nil {
			return err
		}
		src, err := r.lookup(st.Assign.Src, line)
		if err != nil {
			return err
		}
		if err := r.vm.Assign(dst, src); err != nil {
			return &StatementError{Line: line, Msg: err.Error()}
		}
		if r.rec != nil {
			r.rec.Assign(line, st.Assign.Dst, st.Assign.Src)
		}
		return nil

	case st.Call != nil:
		_, err := r.call(st.Call, line, stats)
		return err
	}
	return &StatementError{Line: line, Msg: "empty statement"}
}

func (r *Runner) declare(d *Decl, line int, stats *Stats) error {
	if _, ok := r.vars[d.Name]; ok {
		return &StatementError{Line: line, Msg: fmt.Sprintf("%s is already declared", d.Name)}
	}
	v, err := r.vm.AllocateStorage(d.Class, d.Name, d.Const)
	if err != nil {
		return &StatementError{Line: line, Msg: err.Error()}
	}
	r.vars[d.Name] = v
	if r.rec != nil {
		r.rec.Decl(line, d.Name, d.Class, d.Const, v)
	}
	log.Debugf("line %d: declared %s : %s", line, d.Name, d.Class)

	// Constructor arguments and string initializers run as ordinary calls
	// so that they are validated and recorded like any other.
	if d.Args != nil {
		if _, err := r.call(&Call{Recv: d.Name, Method: "Ctor", Args: d.Args}, line, stats); err != nil {
			return err
		}
	}
	if d.Init != nil {
		if d.Init.Str == nil || r.vm.Object(v).Class != r.vm.StringClass {
			return &StatementError{Line: line, Msg: "only a String can be initialized from a literal"}
		}
		if _, err := r.call(&Call{Recv: d.Name, Method: "Append", Args: []*Literal{d.Init}}, line, stats); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) expect(e *Expect, line int, stats *Stats) error {
	if (e.Raises == nil) == (e.Equals == nil) {
		return &StatementError{Line: line, Msg: "expect needs exactly one of == or raises"}
	}
	res, err := r.call(e.Call, line, stats)

	if e.Raises != nil {
		var exc *vm.ScriptException
		switch {
		case errors.As(err, &exc):
			r.interp.ClearException()
			if exc.Name == *e.Raises {
				return nil
			}
			return &ExpectationError{Line: line, Call: e.Call.String(), Want: "raise " + *e.Raises, Got: "raise " + exc.Name}
		case err != nil:
			return err
		default:
			return &ExpectationError{Line: line, Call: e.Call.String(), Want: "raise " + *e.Raises, Got: r.format(res)}
		}
	}

	if err != nil {
		return err
	}
	ok, err := r.matches(res, e.Equals, line)
	if err != nil {
		return err
	}
	if !ok {
		return &ExpectationError{Line: line, Call: e.Call.String(), Want: e.Equals.String(), Got: r.format(res)}
	}
	return nil
}

func (r *Runner) dump(d *Dump, line int) error {
	v, err := r.lookup(d.Name, line)
	if err != nil {
		return err
	}
	mb := r.vm.MemBufValueOf(v)
	if mb == nil {
		return &StatementError{Line: line, Msg: fmt.Sprintf("%s is not a live MemBuf", d.Name)}
	}
	radix := 16
	if d.Radix == "dec" {
		radix = 10
	}
	if _, err := fmt.Fprintf(r.out, "%s: ", d.Name); err != nil {
		return err
	}
	if err := mb.DebugFormat(r.out, d.Long, radix); err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.out)
	return err
}

// call sends c, recording it when a recorder is attached.
func (r *Runner) call(c *Call, line int, stats *Stats) (vm.Value, error) {
	recv, err := r.lookup(c.Recv, line)
	if err != nil {
		return vm.Nil, err
	}
	args := make([]vm.Value, len(c.Args))
	for n, a := range c.Args {
		if args[n], err = r.value(a, line); err != nil {
			return vm.Nil, err
		}
	}

	stats.Calls++
	res, err := r.interp.Send(recv, c.Method, args...)
	if r.rec != nil {
		r.rec.Call(line, c.Recv, c.Method, args, res, err)
	}
	if err == nil && res.IsRef() && !r.declared(res) {
		r.temps = append(r.temps, res)
	}
	return res, err
}

func (r *Runner) lookup(name string, line int) (vm.Value, error) {
	v, ok := r.vars[name]
	if !ok {
		return vm.Nil, &StatementError{Line: line, Msg: fmt.Sprintf("%s is not declared", name)}
	}
	return v, nil
}

func (r *Runner) declared(v vm.Value) bool {
	for _, d := range r.vars {
		if d == v {
			return true
		}
	}
	return false
}

// value converts a literal to a script value. String literals become
// temporary String values released after the statement.
func (r *Runner) value(l *Literal, line int) (vm.Value, error) {
	switch {
	case l.Float != nil:
		return vm.FromFloat64(*l.Float), nil
	case l.Int != nil:
		n, err := l.IntValue()
		if err != nil || n > vm.MaxSmallInt || n < vm.MinSmallInt {
			return vm.Nil, &StatementError{Line: line, Msg: fmt.Sprintf("integer %s out of range", *l.Int)}
		}
		return vm.FromSmallInt(n), nil
	case l.Str != nil:
		s, err := l.StringValue()
		if err != nil {
			return vm.Nil, &StatementError{Line: line, Msg: fmt.Sprintf("bad string %s", *l.Str)}
		}
		v := r.vm.NewString("", s)
		r.temps = append(r.temps, v)
		return v, nil
	case l.Bool != nil:
		return vm.FromBool(*l.Bool == "true"), nil
	case l.Ref != nil:
		return r.lookup(*l.Ref, line)
	default:
		return vm.Nil, nil
	}
}

// matches compares a call result with an expected literal. Integers and
// floats compare numerically; strings compare by content.
func (r *Runner) matches(res vm.Value, l *Literal, line int) (bool, error) {
	switch {
	case l.Int != nil:
		n, err := l.IntValue()
		if err != nil {
			return false, &StatementError{Line: line, Msg: fmt.Sprintf("bad integer %s", *l.Int)}
		}
		if res.IsSmallInt() {
			return res.SmallInt() == n, nil
		}
		return res.IsFloat() && res.Float64() == float64(n), nil
	case l.Float != nil:
		switch {
		case res.IsSmallInt():
			return float64(res.SmallInt()) == *l.Float, nil
		case res.IsFloat():
			f := res.Float64()
			return f == *l.Float || (math.IsNaN(f) && math.IsNaN(*l.Float)), nil
		}
		return false, nil
	case l.Str != nil:
		s, err := l.StringValue()
		if err != nil {
			return false, &StatementError{Line: line, Msg: fmt.Sprintf("bad string %s", *l.Str)}
		}
		obj := r.vm.Object(res)
		return obj != nil && obj.Class == r.vm.StringClass && r.vm.StringContent(res) == s, nil
	case l.Bool != nil:
		return res.IsBool() && res.Bool() == (*l.Bool == "true"), nil
	case l.Ref != nil:
		v, err := r.lookup(*l.Ref, line)
		return err == nil && v == res, err
	default:
		return res == vm.Nil, nil
	}
}

func (r *Runner) format(v vm.Value) string {
	if !v.IsRef() {
		return v.String()
	}
	for name, d := range r.vars {
		if d == v {
			return name
		}
	}
	if obj := r.vm.Object(v); obj != nil && obj.Class == r.vm.StringClass {
		return fmt.Sprintf("%q", r.vm.StringContent(v))
	}
	return v.String()
}

func (r *Runner) releaseTemps() {
	for _, v := range r.temps {
		r.vm.Destroy(v)
	}
	r.temps = r.temps[:0]
}
