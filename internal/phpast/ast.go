// Package phpast is the reduced PHP syntax tree the guard check works on.
//
// Only the shapes the check distinguishes are modelled. Everything else is an
// [Other] statement or an [OtherExpr] expression, which keeps the walk total:
// an unexpected construct is never an error, just an opaque node that may
// still own child statements.
package phpast

import "fmt"

// Statement is one of *Namespace, *If, *Class, *Interface, *Use, *Exit or *Other.
type Statement interface {
	// Pos returns the 1-based line the statement starts on.
	Pos() int
	stmt()
}

// Expression is one of *Not, *FunctionCall, *Literal or *OtherExpr.
type Expression interface {
	expr()
}

// Namespace is a namespace declaration. Statements that follow an unbraced
// `namespace Foo;` declaration belong to its Body.
type Namespace struct {
	Name   string
	Body   []Statement
	Braced bool
	Line   int
}

// If is an if statement. Body holds the statements of the if branch only.
type If struct {
	Cond Expression
	Body []Statement
	Line int
}

// Class is a class, trait or enum declaration; Body holds its members.
type Class struct {
	Name string
	Body []Statement
	Line int
}

// Interface is an interface declaration.
type Interface struct {
	Name string
	Body []Statement
	Line int
}

// Use is a namespace import.
type Use struct {
	Names []string
	Line  int
}

// Exit is `exit` or `die`, with or without a status.
type Exit struct {
	Line int
}

// Other is any statement not listed above. Body holds the statements it
// owns (a function body, a loop body, a method), if any.
type Other struct {
	Kind string
	Body []Statement
	Line int
}

func (s *Namespace) Pos() int { return s.Line }
func (s *If) Pos() int        { return s.Line }
func (s *Class) Pos() int     { return s.Line }
func (s *Interface) Pos() int { return s.Line }
func (s *Use) Pos() int       { return s.Line }
func (s *Exit) Pos() int      { return s.Line }
func (s *Other) Pos() int     { return s.Line }

func (*Namespace) stmt() {}
func (*If) stmt()        {}
func (*Class) stmt()     {}
func (*Interface) stmt() {}
func (*Use) stmt()       {}
func (*Exit) stmt()      {}
func (*Other) stmt()     {}

// Not is the boolean negation `!x`.
type Not struct {
	Operand Expression
}

// FunctionCall is a call to a named function. Name is the name as written,
// including a leading namespace separator if present.
type FunctionCall struct {
	Name string
	Args []Expression
}

// Literal is a constant string without interpolation.
type Literal struct {
	Value string
}

// OtherExpr is any expression not listed above.
type OtherExpr struct {
	Kind string
}

func (*Not) expr()          {}
func (*FunctionCall) expr() {}
func (*Literal) expr()      {}
func (*OtherExpr) expr()    {}

// Children returns the statements owned by s, or nil for leaves.
func Children(s Statement) []Statement {
	switch s := s.(type) {
	case *Namespace:
		return s.Body
	case *If:
		return s.Body
	case *Class:
		return s.Body
	case *Interface:
		return s.Body
	case *Other:
		return s.Body
	default:
		return nil
	}
}

// ParseError is returned by a parser when the source is not valid PHP.
type ParseError struct {
	Message string
	Line    int
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s on line %d", e.Message, e.Line)
	}

	return e.Message
}

// Comment is a source comment. Leading is set when nothing but whitespace
// precedes it on its line.
type Comment struct {
	Text    string
	Line    int
	Leading bool
}

// File is a parsed PHP file.
type File struct {
	Statements []Statement
	Comments   []Comment
}

// FirstLine returns the line of the first statement, or 0 for an empty file.
func (f *File) FirstLine() int {
	if f == nil || len(f.Statements) == 0 {
		return 0
	}

	return f.Statements[0].Pos()
}
