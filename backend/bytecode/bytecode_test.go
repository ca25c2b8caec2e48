package bytecode_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/mathexpr/ast"
	"github.com/dekarrin/mathexpr/backend/bytecode"
	"github.com/dekarrin/mathexpr/eval"
)

func compileAndRun(t *testing.T, root ast.Node) ast.Real {
	t.Helper()
	prog, err := bytecode.Compile(ast.NewFunction(root))
	require.NoError(t, err)
	v, err := prog.Run()
	require.NoError(t, err)
	return v
}

func TestRun_ConstantArithmetic(t *testing.T) {
	n := ast.BinaryOpNode{Op: ast.OpSub, Left: ast.NumberNode{Value: 5}, Right: ast.NumberNode{Value: 3}}
	assert.Equal(t, 2.0, compileAndRun(t, n))
}

func TestRun_MultinaryAdd2And3(t *testing.T) {
	two := ast.NewMultinary(ast.OpAdd, ast.NumberNode{Value: 1}, ast.NumberNode{Value: 2})
	three := ast.NewMultinary(ast.OpAdd, ast.NumberNode{Value: 1}, ast.NumberNode{Value: 2}, ast.NumberNode{Value: 3})
	assert.Equal(t, 3.0, compileAndRun(t, two))
	assert.Equal(t, 6.0, compileAndRun(t, three))
}

func TestRun_MultinaryAddN(t *testing.T) {
	n := ast.NewMultinary(ast.OpAdd,
		ast.NumberNode{Value: 1}, ast.NumberNode{Value: 2}, ast.NumberNode{Value: 3}, ast.NumberNode{Value: 4})
	assert.Equal(t, 10.0, compileAndRun(t, n))
}

func TestRun_MultinaryMulN(t *testing.T) {
	n := ast.NewMultinary(ast.OpMul,
		ast.NumberNode{Value: 2}, ast.NumberNode{Value: 2}, ast.NumberNode{Value: 2}, ast.NumberNode{Value: 2})
	assert.Equal(t, 16.0, compileAndRun(t, n))
}

func TestRun_RefLoadsCurrentValue(t *testing.T) {
	var x ast.Real = 7
	ref := ast.RefNode{Addr: &x, Name: "x"}
	n := ast.BinaryOpNode{Op: ast.OpSub, Left: ref, Right: ast.NumberNode{Value: 2}}

	prog, err := bytecode.Compile(ast.NewFunction(n))
	require.NoError(t, err)

	v, err := prog.Run()
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)

	x = 20
	v, err = prog.Run()
	require.NoError(t, err)
	assert.Equal(t, 18.0, v)
}

func TestRun_IntPowerSpecialized(t *testing.T) {
	var x ast.Real = 3
	ref := ast.RefNode{Addr: &x}
	assert.Equal(t, 9.0, compileAndRun(t, ast.IntPowerNode{Child: ref, Exponent: 2}))
	assert.Equal(t, 243.0, compileAndRun(t, ast.IntPowerNode{Child: ref, Exponent: 5}))
	assert.Equal(t, math.Pow(3, 7), compileAndRun(t, ast.IntPowerNode{Child: ref, Exponent: 7}))
}

func TestRun_Conditional(t *testing.T) {
	trueBranch := ast.ConditionalNode{Cond: ast.NumberNode{Value: 1}, Then: ast.NumberNode{Value: 10}, Else: ast.NumberNode{Value: 20}}
	falseBranch := ast.ConditionalNode{Cond: ast.NumberNode{Value: 0}, Then: ast.NumberNode{Value: 10}, Else: ast.NumberNode{Value: 20}}
	assert.Equal(t, 10.0, compileAndRun(t, trueBranch))
	assert.Equal(t, 20.0, compileAndRun(t, falseBranch))
}

func TestRun_UnaryAndBinaryFunc(t *testing.T) {
	n := ast.BinaryFuncNode{Fn: ast.FnHypot, Left: ast.NumberNode{Value: 3}, Right: ast.NumberNode{Value: 4}}
	assert.Equal(t, 5.0, compileAndRun(t, n))

	u := ast.UnaryFuncNode{Fn: ast.FnSqrt, Child: ast.NumberNode{Value: 16}}
	assert.Equal(t, 4.0, compileAndRun(t, u))
}

func TestRun_MatchesEval(t *testing.T) {
	var x ast.Real = 1.5
	ref := ast.RefNode{Addr: &x}
	expr := ast.NewMultinary(ast.OpAdd,
		ast.BinaryFuncNode{Fn: ast.FnAtan2, Left: ref, Right: ast.NumberNode{Value: 2}},
		ast.UnaryFuncNode{Fn: ast.FnSin, Child: ref},
		ast.IntPowerNode{Child: ref, Exponent: 3},
	)

	want, err := eval.Eval(expr)
	require.NoError(t, err)

	got := compileAndRun(t, expr)
	assert.InDelta(t, want, got, 1e-9)
}

func TestCompile_UnboundSymbolFails(t *testing.T) {
	_, err := bytecode.Compile(ast.NewFunction(ast.SymbolNode{Name: "x"}))
	require.Error(t, err)
}

func TestCompile_UnimplementedFunctionFails(t *testing.T) {
	_, err := bytecode.Compile(ast.NewFunction(ast.UnaryFuncNode{Fn: ast.FnConj, Child: ast.NumberNode{Value: 1}}))
	require.Error(t, err)
}

func TestDisassemble(t *testing.T) {
	prog, err := bytecode.Compile(ast.NewFunction(ast.BinaryOpNode{Op: ast.OpSub, Left: ast.NumberNode{Value: 5}, Right: ast.NumberNode{Value: 3}}))
	require.NoError(t, err)
	out := prog.Disassemble()
	assert.Contains(t, out, "load_imm")
	assert.Contains(t, out, "bo")
}

func TestMarshalUnmarshalBinary(t *testing.T) {
	prog, err := bytecode.Compile(ast.NewFunction(ast.BinaryOpNode{Op: ast.OpSub, Left: ast.NumberNode{Value: 5}, Right: ast.NumberNode{Value: 3}}))
	require.NoError(t, err)

	data, err := prog.MarshalBinary()
	require.NoError(t, err)

	var decoded bytecode.Program
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Contains(t, decoded.Disassemble(), "load_imm")
}
