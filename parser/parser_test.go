package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/mathexpr/ast"
	"github.com/dekarrin/mathexpr/parser"
)

func TestParse_NumberLiteral(t *testing.T) {
	fn, err := parser.Parse("3.5")
	require.NoError(t, err)
	require.Equal(t, ast.KindNumber, fn.Root.Kind())
	assert.Equal(t, 3.5, fn.Root.(ast.NumberNode).Value)
}

func TestParse_UnaryMinusAtStart(t *testing.T) {
	fn, err := parser.Parse("-3")
	require.NoError(t, err)
	require.Equal(t, ast.KindUnaryOp, fn.Root.Kind())
	op := fn.Root.(ast.UnaryOpNode)
	assert.Equal(t, ast.UnaryMinus, op.Op)
}

func TestParse_BinaryMinusAfterOperand(t *testing.T) {
	fn, err := parser.Parse("5-3")
	require.NoError(t, err)
	require.Equal(t, ast.KindBinaryOp, fn.Root.Kind())
	op := fn.Root.(ast.BinaryOpNode)
	assert.Equal(t, ast.OpSub, op.Op)
}

func TestParse_PlusIsMultinary(t *testing.T) {
	fn, err := parser.Parse("1+2+3")
	require.NoError(t, err)
	require.Equal(t, ast.KindMultinary, fn.Root.Kind())
	m := fn.Root.(ast.MultinaryNode)
	assert.Equal(t, ast.OpAdd, m.Op)
}

func TestParse_PrecedenceMulBeforeAdd(t *testing.T) {
	fn, err := parser.Parse("1+2*3")
	require.NoError(t, err)
	m := fn.Root.(ast.MultinaryNode)
	require.Equal(t, ast.OpAdd, m.Op)
	require.Len(t, m.Items, 2)
	assert.Equal(t, ast.KindNumber, m.Items[0].Kind())
	assert.Equal(t, ast.KindMultinary, m.Items[1].Kind())
}

func TestParse_FunctionCall(t *testing.T) {
	fn, err := parser.Parse("sin(x)", parser.WithConstant("x", 1.5))
	require.NoError(t, err)
	require.Equal(t, ast.KindUnaryFunc, fn.Root.Kind())
	uf := fn.Root.(ast.UnaryFuncNode)
	assert.Equal(t, ast.FnSin, uf.Fn)
}

func TestParse_BinaryFunctionArity(t *testing.T) {
	_, err := parser.Parse("atan2(1)")
	require.Error(t, err)
}

func TestParse_IfTernary(t *testing.T) {
	fn, err := parser.Parse("if(x, 1, 2)", parser.WithConstant("x", 1))
	require.NoError(t, err)
	require.Equal(t, ast.KindConditional, fn.Root.Kind())
}

func TestParse_UnknownFunction(t *testing.T) {
	_, err := parser.Parse("bogus(1)")
	require.Error(t, err)
}

func TestParse_ImplicitMultiplicationRejected(t *testing.T) {
	_, err := parser.Parse("2 3")
	require.Error(t, err)
}

func TestParse_UnmatchedOpenBracket(t *testing.T) {
	_, err := parser.Parse("(1+2")
	require.Error(t, err)
}

func TestParse_UnmatchedCloseBracket(t *testing.T) {
	_, err := parser.Parse("1+2)")
	require.Error(t, err)
}

func TestParse_EmptyParensIsError(t *testing.T) {
	_, err := parser.Parse("()")
	require.Error(t, err)
}

func TestParse_ProviderResolution(t *testing.T) {
	var x ast.Real = 2
	fn, err := parser.Parse("x*2", parser.WithProvider("x", &x))
	require.NoError(t, err)
	m := fn.Root.(ast.MultinaryNode)
	assert.Equal(t, ast.KindRef, m.Items[0].Kind())
}

func TestParse_UndeclaredSymbolBecomesLocal(t *testing.T) {
	fn, err := parser.Parse("y+1")
	require.NoError(t, err)
	m := fn.Root.(ast.MultinaryNode)
	require.Equal(t, ast.KindLocalVar, m.Items[0].Kind())
	assert.Equal(t, 1, len(fn.Locals))
}

func TestParse_ComparisonAndLogical(t *testing.T) {
	fn, err := parser.Parse("1<2 & 3>=4")
	require.NoError(t, err)
	require.Equal(t, ast.KindBinaryOp, fn.Root.Kind())
	assert.Equal(t, ast.OpAnd, fn.Root.(ast.BinaryOpNode).Op)
}

func TestSyntaxError_FullMessage(t *testing.T) {
	_, err := parser.Parse("1 + * 2")
	require.Error(t, err)
	se, ok := err.(parser.SyntaxError)
	require.True(t, ok)
	assert.NotEmpty(t, se.FullMessage())
}
