package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// AnonName is the reserved name under which a bare top-level expression is
// wrapped as a nullary function. Identifiers cannot contain '_', so it can
// never collide with a user-declared name.
const AnonName = "__anon_expr"

// Expr is the closed set of expression nodes. Lowering dispatches on the
// concrete type with an exhaustive switch; nodes carry no behavior.
type Expr interface {
	exprNode()
	String() string
}

// Number literal: 1.0
type NumberExpr struct {
	Value float64
}

func (n *NumberExpr) exprNode() {}

func (n *NumberExpr) String() string {
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

// Variable reference: x
type VariableExpr struct {
	Name string
}

func (v *VariableExpr) exprNode() {}

func (v *VariableExpr) String() string {
	return v.Name
}

// Binary expression: a + b
type BinaryExpr struct {
	Op    byte
	Left  Expr
	Right Expr
}

func (b *BinaryExpr) exprNode() {}

func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %c %s)", b.Left, b.Op, b.Right)
}

// Call expression: callee(args...)
type CallExpr struct {
	Callee string
	Args   []Expr
}

func (c *CallExpr) exprNode() {}

func (c *CallExpr) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Callee, strings.Join(args, ", "))
}

// Prototype is a function signature: its name and parameter names. The
// grammar does not enforce parameter uniqueness.
type Prototype struct {
	Name   string
	Params []string
}

func (p *Prototype) String() string {
	return fmt.Sprintf("%s(%s)", p.Name, strings.Join(p.Params, " "))
}

// Function is a definition: a prototype plus a body expression.
type Function struct {
	Proto *Prototype
	Body  Expr
}

// IsAnon reports whether this definition wraps a bare top-level expression.
func (f *Function) IsAnon() bool {
	return f.Proto.Name == AnonName
}
