// Package expr builds expression graphs from infix source text such as
// "log(x) + x*y - sin(y)".
//
// The grammar is the subset of Go expression syntax made of float literals,
// identifiers, parentheses, the binary operators + - * /, unary + and -,
// and calls to sin, cos, log and exp.
package expr

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"github.com/born-ml/adgraph/internal/autodiff"
)

// Common errors.
var (
	ErrUnboundVariable = errors.New("unbound variable")
	ErrUnsupported     = errors.New("unsupported syntax")
	ErrSyntax          = errors.New("syntax error")
	ErrInvalidBinding  = errors.New("invalid binding")
)

// Binding assigns an initial value to a variable of an expression.
type Binding struct {
	Name  string
	Value float64
}

// Variable is a named leaf created for a Binding.
type Variable struct {
	Name string
	Var  autodiff.Var
}

// Expr is an expression compiled into a session.
type Expr struct {
	Source string
	Output autodiff.Var
	Vars   []Variable // In binding order
}

// Lookup returns the leaf bound to name.
func (e *Expr) Lookup(name string) (autodiff.Var, bool) {
	for _, v := range e.Vars {
		if v.Name == name {
			return v.Var, true
		}
	}
	return autodiff.Var{}, false
}

// Parse compiles src into s.
//
// One leaf is created per binding, in binding order, before any other
// node, so the bound variables get the first names of the session. Numeric
// literals become leaves as well.
func Parse(s *autodiff.Session, src string, bindings []Binding) (*Expr, error) {
	tree, err := parser.ParseExpr(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	c := &compiler{s: s, vars: make(map[string]autodiff.Var, len(bindings))}
	e := &Expr{Source: src, Vars: make([]Variable, 0, len(bindings))}
	for _, b := range bindings {
		if !token.IsIdentifier(b.Name) {
			return nil, fmt.Errorf("%w: %q is not an identifier", ErrInvalidBinding, b.Name)
		}
		if _, dup := c.vars[b.Name]; dup {
			return nil, fmt.Errorf("%w: %q bound twice", ErrInvalidBinding, b.Name)
		}
		v := s.Var(b.Value)
		c.vars[b.Name] = v
		e.Vars = append(e.Vars, Variable{Name: b.Name, Var: v})
	}

	out, err := c.compile(tree)
	if err != nil {
		return nil, err
	}
	e.Output = out
	return e, nil
}

// ParseBinding parses "name=value".
func ParseBinding(s string) (Binding, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return Binding{}, fmt.Errorf("%w: %q, want name=value", ErrInvalidBinding, s)
	}
	name = strings.TrimSpace(name)
	if !token.IsIdentifier(name) {
		return Binding{}, fmt.Errorf("%w: %q is not an identifier", ErrInvalidBinding, name)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return Binding{}, fmt.Errorf("%w: %s: %v", ErrInvalidBinding, name, err)
	}
	return Binding{Name: name, Value: f}, nil
}

// Identifiers returns the distinct variable names referenced by src in
// order of first appearance. Function names are not included.
func Identifiers(src string) ([]string, error) {
	tree, err := parser.ParseExpr(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	var names []string
	seen := make(map[string]bool)
	var walk func(ast.Node) bool
	walk = func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.CallExpr:
			for _, a := range n.Args {
				ast.Inspect(a, walk)
			}
			return false
		case *ast.Ident:
			if !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
		}
		return true
	}
	ast.Inspect(tree, walk)
	return names, nil
}
