package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Error catalogs
// ---------------------------------------------------------------------------

// ErrorEnum is an ordered catalog of named errors, each with a message
// template. Templates use %(1), %(2) and %(3) as token placeholders.
// An ErrorEnum is built once and never modified.
type ErrorEnum struct {
	Path      string
	names     []string
	templates []string
}

// NewErrorEnum builds a catalog from (name, template) pairs in ordinal order.
func NewErrorEnum(path string, entries ...[2]string) *ErrorEnum {
	e := &ErrorEnum{Path: path}
	for _, ent := range entries {
		e.names = append(e.names, ent[0])
		e.templates = append(e.templates, ent[1])
	}
	return e
}

// Len returns the number of entries.
func (e *ErrorEnum) Len() int { return len(e.names) }

// Name returns the name of an ordinal.
func (e *ErrorEnum) Name(ord int) string {
	if ord < 0 || ord >= len(e.names) {
		return fmt.Sprintf("<%d>", ord)
	}
	return e.names[ord]
}

// Template returns the raw message template of an ordinal.
func (e *ErrorEnum) Template(ord int) string {
	if ord < 0 || ord >= len(e.templates) {
		return ""
	}
	return e.templates[ord]
}

// Format substitutes up to three tokens into the ordinal's template.
// Placeholders without a token are left as written.
func (e *ErrorEnum) Format(ord int, tokens ...interface{}) string {
	text := e.Template(ord)
	if len(tokens) == 0 {
		return text
	}
	pairs := make([]string, 0, len(tokens)*2)
	for n, tok := range tokens {
		if n == 3 {
			break
		}
		pairs = append(pairs, fmt.Sprintf("%%(%d)", n+1), fmt.Sprint(tok))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// ---------------------------------------------------------------------------
// Script exceptions
// ---------------------------------------------------------------------------

// ScriptException is a raised catalog error as the script sees it: which
// catalog and entry, the class that raised it, the formatted text and the
// source line that was executing.
type ScriptException struct {
	EnumPath  string
	ClassPath string
	Ordinal   int
	Name      string
	Text      string
	Line      int
}

func (e *ScriptException) Error() string {
	return fmt.Sprintf("%s.%s at line %d: %s", e.EnumPath, e.Name, e.Line, e.Text)
}

// Matches reports whether e is entry ord of enum.
func (e *ScriptException) Matches(enum *ErrorEnum, ord int) bool {
	return e != nil && e.EnumPath == enum.Path && e.Ordinal == ord
}

// SignaledException is panicked when a primitive raises a script
// exception. It is recovered at the dispatch boundary.
type SignaledException struct {
	Exception *ScriptException
}

// RaiseException formats entry ord of enum with tokens, records it as the
// interpreter's last exception and unwinds to the dispatch boundary.
// It does not return.
func (i *Interpreter) RaiseException(enum *ErrorEnum, ord int, classPath string, tokens ...interface{}) {
	exc := &ScriptException{
		EnumPath:  enum.Path,
		ClassPath: classPath,
		Ordinal:   ord,
		Name:      enum.Name(ord),
		Text:      enum.Format(ord, tokens...),
		Line:      i.line,
	}
	i.lastException = exc
	i.vm.log.Infof("%s raised %s.%s at line %d: %s", classPath, enum.Path, exc.Name, exc.Line, exc.Text)
	panic(SignaledException{Exception: exc})
}

// ---------------------------------------------------------------------------
// Runtime errors
// ---------------------------------------------------------------------------

// Ordinals of RuntimeErrors.
const (
	ErrBadParmType = iota
	ErrParmRange
	ErrNotUnderstood
	ErrBadParmCount
	ErrNullObject
	ErrInternal
)

// RuntimeErrors covers argument marshalling failures common to all
// classes.
var RuntimeErrors = NewErrorEnum("MEng.System.Runtime.RuntimeErrors",
	[2]string{"BadParmType", "Parameter %(1) of %(2) must be a %(3)"},
	[2]string{"ParmRange", "Parameter %(1) of %(2) is outside the range of a %(3)"},
	[2]string{"NotUnderstood", "%(1) does not understand method %(2)"},
	[2]string{"BadParmCount", "%(1) takes %(2) parameters, %(3) were passed"},
	[2]string{"NullObject", "The value %(1) has been destroyed"},
	[2]string{"Internal", "Internal error in %(1): %(2)"},
)
