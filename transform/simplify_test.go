package transform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/mathexpr/ast"
	"github.com/dekarrin/mathexpr/eval"
	"github.com/dekarrin/mathexpr/transform"
)

func num(v ast.Real) ast.Node { return ast.NumberNode{Value: v} }

func TestSimplify_ConstantFold(t *testing.T) {
	n := ast.BinaryOpNode{Op: ast.OpSub, Left: num(5), Right: num(3)}
	out := transform.Simplify(n)
	require.Equal(t, ast.KindNumber, out.Kind())
	assert.Equal(t, 2.0, out.(ast.NumberNode).Value)
}

func TestSimplify_SubZero(t *testing.T) {
	x := ast.SymbolNode{Name: "x"}
	out := transform.Simplify(ast.BinaryOpNode{Op: ast.OpSub, Left: x, Right: num(0)})
	assert.True(t, out.Equal(x))
}

func TestSimplify_ZeroSub(t *testing.T) {
	x := ast.SymbolNode{Name: "x"}
	out := transform.Simplify(ast.BinaryOpNode{Op: ast.OpSub, Left: num(0), Right: x})
	require.Equal(t, ast.KindUnaryOp, out.Kind())
	assert.Equal(t, ast.UnaryMinus, out.(ast.UnaryOpNode).Op)
}

func TestSimplify_DivByOne(t *testing.T) {
	x := ast.SymbolNode{Name: "x"}
	out := transform.Simplify(ast.BinaryOpNode{Op: ast.OpDiv, Left: x, Right: num(1)})
	assert.True(t, out.Equal(x))
}

func TestSimplify_PowIntegerBecomesIntPower(t *testing.T) {
	x := ast.SymbolNode{Name: "x"}
	out := transform.Simplify(ast.BinaryOpNode{Op: ast.OpPow, Left: x, Right: num(3)})
	require.Equal(t, ast.KindIntPower, out.Kind())
	assert.Equal(t, 3, out.(ast.IntPowerNode).Exponent)
}

func TestSimplify_IntPowerOfIntPowerCollapses(t *testing.T) {
	x := ast.SymbolNode{Name: "x"}
	inner := ast.IntPowerNode{Child: x, Exponent: 2}
	out := transform.Simplify(ast.IntPowerNode{Child: inner, Exponent: 3})
	require.Equal(t, ast.KindIntPower, out.Kind())
	assert.Equal(t, 6, out.(ast.IntPowerNode).Exponent)
	assert.True(t, out.(ast.IntPowerNode).Child.Equal(x))
}

func TestSimplify_MultinaryHoistAndFold(t *testing.T) {
	x := ast.SymbolNode{Name: "x"}
	inner := ast.NewMultinary(ast.OpAdd, num(1), num(2))
	out := transform.Simplify(ast.NewMultinary(ast.OpAdd, inner, x, num(3)))
	require.Equal(t, ast.KindMultinary, out.Kind())
	m := out.(ast.MultinaryNode)
	require.Len(t, m.Items, 2)
	assert.Equal(t, ast.KindNumber, m.Items[0].Kind())
	assert.Equal(t, 6.0, m.Items[0].(ast.NumberNode).Value)
}

func TestSimplify_MulByZeroCollapses(t *testing.T) {
	x := ast.SymbolNode{Name: "x"}
	out := transform.Simplify(ast.NewMultinary(ast.OpMul, x, num(0)))
	require.Equal(t, ast.KindNumber, out.Kind())
	assert.Equal(t, 0.0, out.(ast.NumberNode).Value)
}

func TestSimplify_MulIdentityDropped(t *testing.T) {
	x := ast.SymbolNode{Name: "x"}
	out := transform.Simplify(ast.NewMultinary(ast.OpMul, x, num(1)))
	assert.True(t, out.Equal(x))
}

func TestSimplify_ConditionalFold(t *testing.T) {
	x := ast.SymbolNode{Name: "x"}
	out := transform.Simplify(ast.ConditionalNode{Cond: num(1), Then: x, Else: num(0)})
	assert.True(t, out.Equal(x))
}

func TestSimplify_Idempotent(t *testing.T) {
	x := ast.SymbolNode{Name: "x"}
	n := ast.NewMultinary(ast.OpAdd, ast.BinaryOpNode{Op: ast.OpSub, Left: x, Right: num(0)}, num(2), num(3))
	once := transform.Simplify(n)
	twice := transform.Simplify(once)
	assert.Equal(t, once.Hash(), twice.Hash())
}

func TestSimplify_PreservesSemantics(t *testing.T) {
	expr := ast.NewMultinary(ast.OpAdd,
		ast.BinaryOpNode{Op: ast.OpSub, Left: num(4), Right: num(0)},
		ast.BinaryOpNode{Op: ast.OpPow, Left: num(2), Right: num(5)},
	)
	before, err := eval.Eval(expr)
	require.NoError(t, err)
	after, err := eval.Eval(transform.Simplify(expr))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
