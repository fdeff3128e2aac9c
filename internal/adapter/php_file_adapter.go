package adapter

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"

	m "github.com/mouse-blink/phpguard/internal/model"
	"github.com/mouse-blink/phpguard/internal/phpast"
)

// PHPFileAdapter turns PHP source into the reduced syntax tree the guard check
// consumes, hiding the parser library from the domain layer.
type PHPFileAdapter interface {
	// Parse returns the file's statements and comments. A syntax error is
	// reported as a *phpast.ParseError.
	Parse(path m.Path, src []byte) (*phpast.File, error)
}

// TreeSitterPHPAdapter is a PHPFileAdapter backed by tree-sitter-php.
type TreeSitterPHPAdapter struct {
	lang *sitter.Language
}

// NewTreeSitterPHPAdapter constructs a TreeSitterPHPAdapter.
func NewTreeSitterPHPAdapter() *TreeSitterPHPAdapter {
	return &TreeSitterPHPAdapter{lang: sitter.NewLanguage(tree_sitter_php.LanguagePHP())}
}

// Parse parses src. tree-sitter parsers are not safe for concurrent use, so
// every call gets its own parser and tree.
func (a *TreeSitterPHPAdapter) Parse(path m.Path, src []byte) (*phpast.File, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(a.lang); err != nil {
		return nil, fmt.Errorf("php language: %w", err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, &phpast.ParseError{Message: fmt.Sprintf("Syntax error, cannot parse %s", path)}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(root, src)
	}

	c := &converter{src: src}

	return &phpast.File{
		Statements: c.program(root),
		Comments:   c.comments(root, nil),
	}, nil
}

// syntaxError describes the first ERROR or MISSING node in document order.
func syntaxError(root *sitter.Node, src []byte) error {
	n := firstBroken(root)
	if n == nil {
		return &phpast.ParseError{Message: "Syntax error"}
	}

	at := line(n)

	if n.IsMissing() {
		return &phpast.ParseError{Message: fmt.Sprintf("Syntax error, missing '%s'", n.Kind()), Line: at}
	}

	text := strings.TrimSpace(n.Utf8Text(src))
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		text = text[:i]
	}

	if len(text) > 32 {
		text = text[:32]
	}

	if text == "" {
		return &phpast.ParseError{Message: "Syntax error, unexpected end of file", Line: at}
	}

	return &phpast.ParseError{Message: fmt.Sprintf("Syntax error, unexpected '%s'", text), Line: at}
}

func firstBroken(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}

	if !n.HasError() {
		return nil
	}

	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}

		if found := firstBroken(child); found != nil {
			return found
		}
	}

	return nil
}

type converter struct {
	src []byte
}

func (c *converter) text(n *sitter.Node) string {
	return n.Utf8Text(c.src)
}

func line(n *sitter.Node) int {
	return int(n.StartPosition().Row) + 1
}

// program converts the top level. Statements following an unbraced
// namespace declaration are folded into it until the next namespace.
func (c *converter) program(root *sitter.Node) []phpast.Statement {
	var (
		out     []phpast.Statement
		current *phpast.Namespace
	)

	for i := uint(0); i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)

		s := c.statement(child)
		if s == nil {
			continue
		}

		if ns, ok := s.(*phpast.Namespace); ok {
			out = append(out, ns)

			current = nil
			if !ns.Braced {
				current = ns
			}

			continue
		}

		if current != nil {
			current.Body = append(current.Body, s)

			continue
		}

		out = append(out, s)
	}

	return out
}

// block converts the statements of a container node.
func (c *converter) block(n *sitter.Node) []phpast.Statement {
	if n == nil {
		return nil
	}

	switch n.Kind() {
	case "compound_statement", "colon_block", "declaration_list", "enum_declaration_list",
		"switch_block", "case_statement", "default_statement":
	default:
		// Single-statement bodies such as `if ($x) exit;`.
		if s := c.statement(n); s != nil {
			return []phpast.Statement{s}
		}

		return nil
	}

	var out []phpast.Statement

	for i := uint(0); i < n.NamedChildCount(); i++ {
		if s := c.statement(n.NamedChild(i)); s != nil {
			out = append(out, s)
		}
	}

	return out
}

// statement converts one node, returning nil for nodes that are not
// statements (tags, comments, whitespace-only inline text).
func (c *converter) statement(n *sitter.Node) phpast.Statement {
	if n == nil {
		return nil
	}

	switch n.Kind() {
	case "php_tag", "comment", "empty_statement":
		return nil

	case "text", "text_interpolation":
		if strings.TrimSpace(c.inlineText(n)) == "" {
			return nil
		}

		return &phpast.Other{Kind: "inline_html", Line: line(n)}

	case "namespace_definition":
		ns := &phpast.Namespace{Line: line(n)}
		if name := n.ChildByFieldName("name"); name != nil {
			ns.Name = c.text(name)
		}

		if body := n.ChildByFieldName("body"); body != nil {
			ns.Braced = true
			ns.Body = c.block(body)
		}

		return ns

	case "if_statement":
		return &phpast.If{
			Cond: c.condition(n.ChildByFieldName("condition")),
			Body: c.block(n.ChildByFieldName("body")),
			Line: line(n),
		}

	case "class_declaration", "trait_declaration", "enum_declaration":
		return &phpast.Class{Name: c.fieldText(n, "name"), Body: c.block(n.ChildByFieldName("body")), Line: line(n)}

	case "interface_declaration":
		return &phpast.Interface{Name: c.fieldText(n, "name"), Body: c.block(n.ChildByFieldName("body")), Line: line(n)}

	case "namespace_use_declaration":
		return &phpast.Use{Names: c.useNames(n), Line: line(n)}

	case "exit_statement":
		return &phpast.Exit{Line: line(n)}

	case "expression_statement":
		if c.isExit(n) {
			return &phpast.Exit{Line: line(n)}
		}

		return &phpast.Other{Kind: n.Kind(), Line: line(n)}
	}

	return &phpast.Other{Kind: n.Kind(), Body: c.block(n.ChildByFieldName("body")), Line: line(n)}
}

func (c *converter) fieldText(n *sitter.Node, field string) string {
	if f := n.ChildByFieldName(field); f != nil {
		return c.text(f)
	}

	return ""
}

// inlineText is the HTML carried by a text node, without the surrounding
// `?>` and `<?php` tags of a text interpolation.
func (c *converter) inlineText(n *sitter.Node) string {
	if n.Kind() == "text" {
		return c.text(n)
	}

	var b strings.Builder

	for i := uint(0); i < n.NamedChildCount(); i++ {
		if child := n.NamedChild(i); child != nil && child.Kind() == "text" {
			b.WriteString(c.text(child))
		}
	}

	return b.String()
}

func (c *converter) useNames(n *sitter.Node) []string {
	var names []string

	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}

		switch child.Kind() {
		case "namespace_use_clause":
			names = append(names, c.text(child))
		case "namespace_use_group":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				names = append(names, c.text(child.NamedChild(j)))
			}
		}
	}

	return names
}

// isExit reports whether an expression statement is `exit`, `die` or a call
// of either.
func (c *converter) isExit(n *sitter.Node) bool {
	e := firstNamed(n)
	if e == nil {
		return false
	}

	switch e.Kind() {
	case "exit_expression", "exit_statement":
		return true
	case "name":
		return isExitName(c.text(e))
	case "function_call_expression":
		if fn := e.ChildByFieldName("function"); fn != nil {
			return isExitName(c.text(fn))
		}
	}

	return false
}

func isExitName(name string) bool {
	return strings.EqualFold(name, "exit") || strings.EqualFold(name, "die")
}

// condition unwraps the parentheses around an if condition.
func (c *converter) condition(n *sitter.Node) phpast.Expression {
	if n == nil {
		return &phpast.OtherExpr{Kind: "missing"}
	}

	if n.Kind() == "parenthesized_expression" {
		if inner := firstNamed(n); inner != nil {
			return c.expression(inner)
		}
	}

	return c.expression(n)
}

func (c *converter) expression(n *sitter.Node) phpast.Expression {
	switch n.Kind() {
	case "parenthesized_expression":
		if inner := firstNamed(n); inner != nil {
			return c.expression(inner)
		}

	case "unary_op_expression":
		if c.operator(n) != "!" {
			break
		}

		operand := n.ChildByFieldName("argument")
		if operand == nil {
			operand = lastNamed(n)
		}

		if operand != nil {
			return &phpast.Not{Operand: c.expression(operand)}
		}

	case "function_call_expression":
		call := &phpast.FunctionCall{Name: c.fieldText(n, "function")}

		if args := n.ChildByFieldName("arguments"); args != nil {
			for i := uint(0); i < args.NamedChildCount(); i++ {
				arg := args.NamedChild(i)
				if arg == nil || arg.Kind() != "argument" {
					continue
				}

				if v := lastNamed(arg); v != nil {
					call.Args = append(call.Args, c.expression(v))
				} else {
					call.Args = append(call.Args, &phpast.OtherExpr{Kind: arg.Kind()})
				}
			}
		}

		return call

	case "string", "encapsed_string":
		if v, ok := c.literal(n); ok {
			return &phpast.Literal{Value: v}
		}
	}

	return &phpast.OtherExpr{Kind: n.Kind()}
}

// operator returns the operator token of a unary expression.
func (c *converter) operator(n *sitter.Node) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return c.text(op)
	}

	for i := uint(0); i < n.ChildCount(); i++ {
		if child := n.Child(i); child != nil && !child.IsNamed() {
			return child.Kind()
		}
	}

	return ""
}

// literal returns the value of a string without interpolation.
func (c *converter) literal(n *sitter.Node) (string, bool) {
	var (
		b     strings.Builder
		parts int
	)

	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}

		switch child.Kind() {
		case "string_content", "string_value":
			b.WriteString(c.text(child))
		case "escape_sequence":
			b.WriteString(unescape(c.text(child)))
		default:
			return "", false
		}

		parts++
	}

	if parts > 0 {
		return b.String(), true
	}

	text := c.text(n)
	if len(text) >= 2 {
		return text[1 : len(text)-1], true
	}

	return "", true
}

func unescape(seq string) string {
	switch seq {
	case `\'`:
		return "'"
	case `\"`:
		return `"`
	case `\\`:
		return `\`
	case `\$`:
		return "$"
	}

	return seq
}

// comments collects every comment in document order.
func (c *converter) comments(n *sitter.Node, acc []phpast.Comment) []phpast.Comment {
	if n.Kind() == "comment" {
		return append(acc, phpast.Comment{
			Text:    c.text(n),
			Line:    line(n),
			Leading: c.isLeading(n),
		})
	}

	for i := uint(0); i < n.ChildCount(); i++ {
		if child := n.Child(i); child != nil {
			acc = c.comments(child, acc)
		}
	}

	return acc
}

// isLeading reports whether only whitespace precedes n on its line.
func (c *converter) isLeading(n *sitter.Node) bool {
	start := n.StartByte()
	col := n.StartPosition().Column

	if col > start {
		return false
	}

	return strings.TrimSpace(string(c.src[start-col:start])) == ""
}

func firstNamed(n *sitter.Node) *sitter.Node {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if child := n.NamedChild(i); child != nil && child.Kind() != "comment" {
			return child
		}
	}

	return nil
}

func lastNamed(n *sitter.Node) *sitter.Node {
	for i := n.NamedChildCount(); i > 0; i-- {
		if child := n.NamedChild(i - 1); child != nil && child.Kind() != "comment" {
			return child
		}
	}

	return nil
}
