package transform_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/mathexpr/ast"
	"github.com/dekarrin/mathexpr/eval"
	"github.com/dekarrin/mathexpr/transform"
)

func evalAt(t *testing.T, n ast.Node, x *ast.Real, v ast.Real) ast.Real {
	t.Helper()
	*x = v
	r, err := eval.Eval(n)
	require.NoError(t, err)
	return r
}

// checkDerivative numerically verifies d/dx at several points against the
// symbolic result, per §8.1's "differentiation vs. finite differences"
// testable property.
func checkDerivative(t *testing.T, build func(x ast.Node) ast.Node, points []ast.Real) {
	t.Helper()
	var xv ast.Real
	ref := ast.RefNode{Addr: &xv, Name: "x"}
	expr := build(ref)

	deriv, err := transform.Differentiate(expr, ref)
	require.NoError(t, err)
	deriv = transform.Simplify(deriv)

	const h = 1e-6
	for _, p := range points {
		numeric := (evalAt(t, expr, &xv, p+h) - evalAt(t, expr, &xv, p-h)) / (2 * h)
		symbolic := evalAt(t, deriv, &xv, p)
		assert.InDelta(t, numeric, symbolic, 1e-3, "at x=%v", p)
	}
}

func TestDifferentiate_Polynomial(t *testing.T) {
	checkDerivative(t, func(x ast.Node) ast.Node {
		return ast.NewMultinary(ast.OpAdd, ast.IntPowerNode{Child: x, Exponent: 3}, ast.NumberNode{Value: 2})
	}, []ast.Real{-2, -0.5, 1, 3})
}

func TestDifferentiate_SinCos(t *testing.T) {
	checkDerivative(t, func(x ast.Node) ast.Node {
		return ast.UnaryFuncNode{Fn: ast.FnSin, Child: x}
	}, []ast.Real{0.1, 1, 2.5})
}

func TestDifferentiate_Log(t *testing.T) {
	checkDerivative(t, func(x ast.Node) ast.Node {
		return ast.UnaryFuncNode{Fn: ast.FnLog, Child: x}
	}, []ast.Real{0.5, 1, 5})
}

func TestDifferentiate_Product(t *testing.T) {
	checkDerivative(t, func(x ast.Node) ast.Node {
		return ast.NewMultinary(ast.OpMul, x, ast.UnaryFuncNode{Fn: ast.FnSin, Child: x})
	}, []ast.Real{0.5, 1.5})
}

func TestDifferentiate_Quotient(t *testing.T) {
	checkDerivative(t, func(x ast.Node) ast.Node {
		return ast.BinaryOpNode{Op: ast.OpDiv, Left: x, Right: ast.NumberNode{Value: 3}}
	}, []ast.Real{1, 2})
}

func TestDifferentiate_Pow(t *testing.T) {
	checkDerivative(t, func(x ast.Node) ast.Node {
		return ast.BinaryFuncNode{Fn: ast.FnPow, Left: ast.NumberNode{Value: 2}, Right: x}
	}, []ast.Real{0.5, 1, 2})
}

func TestDifferentiate_Atan2(t *testing.T) {
	checkDerivative(t, func(x ast.Node) ast.Node {
		return ast.BinaryFuncNode{Fn: ast.FnAtan2, Left: x, Right: ast.NumberNode{Value: 2}}
	}, []ast.Real{0.3, 1, -1})
}

func TestDifferentiate_Number(t *testing.T) {
	out, err := transform.Differentiate(ast.NumberNode{Value: 5}, ast.SymbolNode{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.(ast.NumberNode).Value)
}

func TestDifferentiate_RefIdentity(t *testing.T) {
	var x, y ast.Real
	rx := ast.RefNode{Addr: &x}
	ry := ast.RefNode{Addr: &y}
	out, err := transform.Differentiate(rx, rx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, out.(ast.NumberNode).Value)

	out, err = transform.Differentiate(rx, ry)
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.(ast.NumberNode).Value)
}

func TestDifferentiate_CeilFails(t *testing.T) {
	_, err := transform.Differentiate(ast.UnaryFuncNode{Fn: ast.FnCeil, Child: ast.SymbolNode{Name: "x"}}, ast.SymbolNode{Name: "x"})
	require.Error(t, err)
}

func TestDifferentiate_ConditionDoesNotDifferentiate(t *testing.T) {
	x := ast.SymbolNode{Name: "x"}
	n := ast.ConditionalNode{
		Cond: ast.BinaryOpNode{Op: ast.OpLt, Left: x, Right: ast.NumberNode{Value: 0}},
		Then: ast.NumberNode{Value: 1},
		Else: x,
	}
	out, err := transform.Differentiate(n, x)
	require.NoError(t, err)
	require.Equal(t, ast.KindConditional, out.Kind())
	cn := out.(ast.ConditionalNode)
	assert.True(t, cn.Cond.Equal(n.Cond))
}

func TestDifferentiate_IntPowerRule(t *testing.T) {
	x := ast.SymbolNode{Name: "x"}
	out, err := transform.Differentiate(ast.IntPowerNode{Child: x, Exponent: 4}, x)
	require.NoError(t, err)
	out = transform.Simplify(out)
	// d/dx x^4 = 4x^3
	var xv ast.Real = 2
	rx := ast.RefNode{Addr: &xv}
	substituted, err := transform.Differentiate(ast.IntPowerNode{Child: rx, Exponent: 4}, rx)
	require.NoError(t, err)
	v, err := eval.Eval(transform.Simplify(substituted))
	require.NoError(t, err)
	assert.InDelta(t, 4*math.Pow(2, 3), v, 1e-9)
}
