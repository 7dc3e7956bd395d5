package trace

import (
	"bytes"
	"fmt"

	"github.com/chazu/membuf/vm"
)

// Divergence is a replayed step whose outcome differs from the recording.
type Divergence struct {
	Index  int
	Line   int
	Var    string
	Method string
	Want   string
	Got    string
}

func (d Divergence) String() string {
	if d.Method == "" {
		return fmt.Sprintf("entry %d (line %d) %s: want %s, got %s", d.Index, d.Line, d.Var, d.Want, d.Got)
	}
	return fmt.Sprintf("entry %d (line %d) %s.%s: want %s, got %s", d.Index, d.Line, d.Var, d.Method, d.Want, d.Got)
}

// Report summarizes a replay.
type Report struct {
	Calls       int
	Snapshots   int
	Divergences []Divergence

	// Live is the number of values still registered when the replay ended.
	Live int
}

// OK reports whether the replay matched the recording.
func (r *Report) OK() bool { return len(r.Divergences) == 0 }

// Replay re-executes s against a new VM built with cfg and compares every
// call outcome and snapshot with the recording. An error is returned only
// when the session itself is malformed.
func Replay(s *Session, cfg vm.Config) (*Report, error) {
	machine := vm.NewVMWithConfig(cfg)
	interp := machine.NewInterpreter()
	vars := make(map[string]vm.Value)
	names := make(map[vm.Value]string)
	report := &Report{}

	log.Infof("replaying session %s (%d entries)", s.ID, len(s.Entries))

	for n, e := range s.Entries {
		switch e.Op {
		case OpDecl:
			v, err := machine.AllocateStorage(e.Class, e.Var, e.Const)
			if err != nil {
				return nil, fmt.Errorf("trace: entry %d: %w", n, err)
			}
			vars[e.Var] = v
			names[v] = e.Var

		case OpCall:
			recv, ok := vars[e.Var]
			if !ok {
				return nil, fmt.Errorf("trace: entry %d: undeclared receiver %q", n, e.Var)
			}
			var temps []vm.Value
			args := make([]vm.Value, len(e.Args))
			for k, a := range e.Args {
				v, err := fromArg(machine, vars, a)
				if err != nil {
					release(machine, temps)
					return nil, fmt.Errorf("trace: entry %d arg %d: %w", n, k+1, err)
				}
				if a.Kind == KindString {
					temps = append(temps, v)
				}
				args[k] = v
			}

			interp.SetLine(e.Line)
			result, err := interp.Send(recv, e.Method, args...)
			interp.ClearException()
			report.Calls++

			want, got := outcome(e.Result, e.Error), ""
			if err != nil {
				got = outcome(Arg{}, errorName(err))
			} else {
				got = outcome(toArg(machine, names, result), "")
				if _, named := names[result]; result.IsRef() && !named {
					temps = append(temps, result)
				}
			}
			release(machine, temps)
			if want != got {
				report.Divergences = append(report.Divergences, Divergence{
					Index: n, Line: e.Line, Var: e.Var, Method: e.Method, Want: want, Got: got,
				})
			}

		case OpDestroy:
			v, ok := vars[e.Var]
			if !ok {
				return nil, fmt.Errorf("trace: entry %d: undeclared value %q", n, e.Var)
			}
			machine.Destroy(v)

		case OpAssign:
			dst, ok := vars[e.Var]
			if !ok || len(e.Args) != 1 {
				return nil, fmt.Errorf("trace: entry %d: malformed assignment to %q", n, e.Var)
			}
			src, err := fromArg(machine, vars, e.Args[0])
			if err != nil {
				return nil, fmt.Errorf("trace: entry %d: %w", n, err)
			}
			err = machine.Assign(dst, src)
			if e.Args[0].Kind == KindString {
				machine.Destroy(src)
			}
			if err != nil {
				return nil, fmt.Errorf("trace: entry %d: %w", n, err)
			}

		case OpSnapshot:
			report.Snapshots++
			mb := machine.MemBufValueOf(vars[e.Var])
			if mb == nil {
				report.Divergences = append(report.Divergences, Divergence{
					Index: n, Line: e.Line, Var: e.Var, Want: "live buffer", Got: "destroyed",
				})
				continue
			}
			buf := mb.Buffer()
			if !bytes.Equal(buf.Bytes(), e.Bytes) || buf.MaxSize() != e.MaxSize {
				report.Divergences = append(report.Divergences, Divergence{
					Index: n, Line: e.Line, Var: e.Var,
					Want: fmt.Sprintf("% x (max %d)", e.Bytes, e.MaxSize),
					Got:  fmt.Sprintf("% x (max %d)", buf.Bytes(), buf.MaxSize()),
				})
			}

		default:
			return nil, fmt.Errorf("trace: entry %d: unknown op %s", n, e.Op)
		}
	}

	for _, d := range report.Divergences {
		log.Errorf("divergence: %s", d)
	}
	report.Live = machine.Registry().Count()
	return report, nil
}

func outcome(result Arg, errName string) string {
	if errName != "" {
		return "raise " + errName
	}
	return result.String()
}

// release destroys values created for a single call.
func release(machine *vm.VM, vals []vm.Value) {
	for _, v := range vals {
		machine.Destroy(v)
	}
}

// fromArg rebuilds a recorded argument. A KindString arg becomes a new
// String value that the caller must destroy.
func fromArg(machine *vm.VM, vars map[string]vm.Value, a Arg) (vm.Value, error) {
	switch a.Kind {
	case KindNil:
		return vm.Nil, nil
	case KindInt:
		if a.Int > vm.MaxSmallInt || a.Int < vm.MinSmallInt {
			return vm.Nil, fmt.Errorf("integer %d out of range", a.Int)
		}
		return vm.FromSmallInt(a.Int), nil
	case KindFloat:
		return vm.FromFloat64(a.Float), nil
	case KindBool:
		return vm.FromBool(a.Bool), nil
	case KindString:
		return machine.NewString("", a.Str), nil
	case KindRef:
		v, ok := vars[a.Str]
		if !ok {
			return vm.Nil, fmt.Errorf("undeclared value %q", a.Str)
		}
		return v, nil
	default:
		return vm.Nil, fmt.Errorf("unknown arg kind %d", a.Kind)
	}
}
