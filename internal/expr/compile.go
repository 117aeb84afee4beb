package expr

import (
	"fmt"
	"go/ast"
	"go/token"
	"strconv"

	"github.com/born-ml/adgraph/internal/autodiff"
)

type compiler struct {
	s    *autodiff.Session
	vars map[string]autodiff.Var
}

var functions = map[string]func(autodiff.Var) autodiff.Var{
	"sin": autodiff.Var.Sin,
	"cos": autodiff.Var.Cos,
	"log": autodiff.Var.Log,
	"exp": autodiff.Var.Exp,
}

var binaryOps = map[token.Token]func(autodiff.Var, autodiff.Var) autodiff.Var{
	token.ADD: autodiff.Var.Add,
	token.SUB: autodiff.Var.Sub,
	token.MUL: autodiff.Var.Mul,
	token.QUO: autodiff.Var.Div,
}

func (c *compiler) compile(n ast.Expr) (autodiff.Var, error) {
	switch n := n.(type) {
	case *ast.ParenExpr:
		return c.compile(n.X)

	case *ast.BasicLit:
		if n.Kind != token.INT && n.Kind != token.FLOAT {
			return autodiff.Var{}, unsupported(n, "literal "+n.Value)
		}
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return autodiff.Var{}, unsupported(n, "literal "+n.Value)
		}
		return c.s.Var(f), nil

	case *ast.Ident:
		v, ok := c.vars[n.Name]
		if !ok {
			return autodiff.Var{}, fmt.Errorf("%w: %s at column %d", ErrUnboundVariable, n.Name, n.Pos())
		}
		return v, nil

	case *ast.UnaryExpr:
		x, err := c.compile(n.X)
		if err != nil {
			return autodiff.Var{}, err
		}
		switch n.Op {
		case token.ADD:
			return x, nil
		case token.SUB:
			return x.Neg(), nil
		default:
			return autodiff.Var{}, unsupported(n, "operator "+n.Op.String())
		}

	case *ast.BinaryExpr:
		op, ok := binaryOps[n.Op]
		if !ok {
			return autodiff.Var{}, unsupported(n, "operator "+n.Op.String())
		}
		x, err := c.compile(n.X)
		if err != nil {
			return autodiff.Var{}, err
		}
		y, err := c.compile(n.Y)
		if err != nil {
			return autodiff.Var{}, err
		}
		return op(x, y), nil

	case *ast.CallExpr:
		id, ok := n.Fun.(*ast.Ident)
		if !ok {
			return autodiff.Var{}, unsupported(n, "call expression")
		}
		fn, ok := functions[id.Name]
		if !ok {
			return autodiff.Var{}, unsupported(n, "function "+id.Name)
		}
		if len(n.Args) != 1 || n.Ellipsis.IsValid() {
			return autodiff.Var{}, unsupported(n, fmt.Sprintf("%s takes 1 argument, got %d", id.Name, len(n.Args)))
		}
		x, err := c.compile(n.Args[0])
		if err != nil {
			return autodiff.Var{}, err
		}
		return fn(x), nil

	default:
		return autodiff.Var{}, unsupported(n, fmt.Sprintf("%T", n))
	}
}

// unsupported reports n with its 1-based column in the source.
func unsupported(n ast.Node, what string) error {
	return fmt.Errorf("%w: %s at column %d", ErrUnsupported, what, n.Pos())
}
