// Package script implements a small statement language for driving MemBuf
// values from text: declarations, method calls by name, expectations and
// buffer dumps. Each statement records its source line on the interpreter
// so raised exceptions point back at the script.
//
//	var b : MemBuf(16, 64)
//	var s : String = "hello"
//	b.ImportString(s, 5)
//	expect b.GetCard1At(0) == 0x68
//	expect b.GetCard4At(100) raises BadIndex
//	print b.CalcSum(0, 5)
//	dump b long hex
package script

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Program is the top-level AST node
type Program struct {
	Statements []*Statement `@@*`
}

// Statement is one script statement. Exactly one field is set.
type Statement struct {
	Pos lexer.Position

	Decl    *Decl   `  @@`
	Expect  *Expect `| @@`
	Print   *Call   `| "print" @@`
	Dump    *Dump   `| @@`
	Destroy *string `| "destroy" @Ident`
	Assign  *Assign `| @@`
	Call    *Call   `| @@`
}

// Decl: (var | const) name : Class [ (args) ] [ = literal ]
type Decl struct {
	Const bool       `( "var" | @"const" )`
	Name  string     `@Ident ":"`
	Class string     `@Ident`
	Args  []*Literal `( "(" ( @@ ( "," @@ )* )? ")" )?`
	Init  *Literal   `( "=" @@ )?`
}

// Call: recv.Method(args)
type Call struct {
	Recv   string     `@Ident "."`
	Method string     `@Ident`
	Args   []*Literal `"(" ( @@ ( "," @@ )* )? ")"`
}

func (c *Call) String() string {
	s := c.Recv + "." + c.Method + "("
	for n, a := range c.Args {
		if n > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + ")"
}

// Expect: expect call (== literal | raises Name). The runner rejects an
// expectation that names both or neither.
type Expect struct {
	Call   *Call    `"expect" @@`
	Raises *string  `( "raises" @Ident )?`
	Equals *Literal `( "==" @@ )?`
}

// Dump: dump name [long] [hex | dec]
type Dump struct {
	Name  string `"dump" @Ident`
	Long  bool   `@"long"?`
	Radix string `@( "hex" | "dec" )?`
}

// Assign: dst = src
type Assign struct {
	Dst string `@Ident "="`
	Src string `@Ident`
}

// Literal is a call argument or expected value.
type Literal struct {
	Float *float64 `  @Float`
	Int   *string  `| @Int`
	Str   *string  `| @String`
	Bool  *string  `| @( "true" | "false" )`
	Nil   bool     `| @"nil"`
	Ref   *string  `| @Ident`
}

func (l *Literal) String() string {
	switch {
	case l.Float != nil:
		return strconv.FormatFloat(*l.Float, 'g', -1, 64)
	case l.Int != nil:
		return *l.Int
	case l.Str != nil:
		return *l.Str
	case l.Bool != nil:
		return *l.Bool
	case l.Ref != nil:
		return *l.Ref
	default:
		return "nil"
	}
}

// IntValue parses an integer literal. Decimal and 0x hex forms are
// accepted, with an optional sign.
func (l *Literal) IntValue() (int64, error) {
	return strconv.ParseInt(*l.Int, 0, 64)
}

// StringValue returns the unquoted content of a string literal.
func (l *Literal) StringValue() (string, error) {
	return strconv.Unquote(*l.Str)
}

var scriptLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Skip whitespace and comments
	{Name: "Whitespace", Pattern: `[\s]+`},
	{Name: "Comment", Pattern: `(#|//)[^\n]*`},

	// Literals
	{Name: "Float", Pattern: `-?[0-9]+\.[0-9]+([eE][-+]?[0-9]+)?`},
	{Name: "Int", Pattern: `-?(0[xX][0-9a-fA-F]+|[0-9]+)`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},

	{Name: "Punct", Pattern: `==|[().,:=]`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
})

// Parser is the script parser
var Parser = participle.MustBuild[Program](
	participle.Lexer(scriptLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// Parse parses script source. name is used in error positions.
func Parse(name, source string) (*Program, error) {
	prog, err := Parser.ParseString(name, source)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	return prog, nil
}
