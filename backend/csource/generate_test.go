package csource

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/mathexpr/ast"
)

func TestGenerate_ConstantArithmetic(t *testing.T) {
	n := ast.BinaryOpNode{Op: ast.OpSub, Left: ast.NumberNode{Value: 5}, Right: ast.NumberNode{Value: 3}}
	src, err := generate(n)
	require.NoError(t, err)
	assert.Contains(t, src, "#include <math.h>")
	assert.Contains(t, src, "double "+EntrySymbol+"(void)")
	assert.Contains(t, src, "(5) - (3)")
}

func TestGenerate_Ref(t *testing.T) {
	var x ast.Real = 7
	src, err := generate(ast.RefNode{Addr: &x})
	require.NoError(t, err)
	assert.Contains(t, src, "(double *)")
}

func TestGenerate_MultinaryAdd(t *testing.T) {
	n := ast.NewMultinary(ast.OpAdd, ast.NumberNode{Value: 1}, ast.NumberNode{Value: 2}, ast.NumberNode{Value: 3})
	src, err := generate(n)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(src, "+"))
}

func TestGenerate_UnaryAndBinaryFunc(t *testing.T) {
	u := ast.UnaryFuncNode{Fn: ast.FnSqrt, Child: ast.NumberNode{Value: 16}}
	src, err := generate(u)
	require.NoError(t, err)
	assert.Contains(t, src, "sqrt(")

	b := ast.BinaryFuncNode{Fn: ast.FnHypot, Left: ast.NumberNode{Value: 3}, Right: ast.NumberNode{Value: 4}}
	src, err = generate(b)
	require.NoError(t, err)
	assert.Contains(t, src, "hypot(")
}

func TestGenerate_Conditional(t *testing.T) {
	n := ast.ConditionalNode{Cond: ast.NumberNode{Value: 1}, Then: ast.NumberNode{Value: 10}, Else: ast.NumberNode{Value: 20}}
	src, err := generate(n)
	require.NoError(t, err)
	assert.Contains(t, src, "!= 0.0) ?")
}

func TestGenerate_IntPower(t *testing.T) {
	n := ast.IntPowerNode{Child: ast.NumberNode{Value: 2}, Exponent: 10}
	src, err := generate(n)
	require.NoError(t, err)
	assert.Contains(t, src, "pow(")
}

func TestGenerate_UnboundSymbolFails(t *testing.T) {
	_, err := generate(ast.SymbolNode{Name: "x"})
	require.Error(t, err)
}

func TestGenerate_FacultyUnsupported(t *testing.T) {
	_, err := generate(ast.UnaryOpNode{Op: ast.UnaryFaculty, Child: ast.NumberNode{Value: 5}})
	require.Error(t, err)
}

func TestGenerate_PlogUnsupported(t *testing.T) {
	_, err := generate(ast.BinaryFuncNode{Fn: ast.FnPlog, Left: ast.NumberNode{Value: 1}, Right: ast.NumberNode{Value: 2}})
	require.Error(t, err)
}
