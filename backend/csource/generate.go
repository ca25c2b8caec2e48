package csource

import (
	"fmt"
	"strings"

	"github.com/dekarrin/mathexpr/ast"
	"github.com/dekarrin/mathexpr/internal/merr"
)

// generate emits a complete C translation unit exporting EntrySymbol as a
// nullary double-returning function, following the same recursive
// node-by-node dispatch shape as eval.Eval and backend/bytecode's compiler,
// but lowering to C expression text instead of bytecode/register
// instructions.
func generate(root ast.Node) (string, error) {
	var g generator
	expr, err := g.expr(root)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("#include <math.h>\n\n")
	fmt.Fprintf(&b, "double %s(void) {\n", EntrySymbol)
	fmt.Fprintf(&b, "    return %s;\n", expr)
	b.WriteString("}\n")
	return b.String(), nil
}

type generator struct{}

// expr renders n as a single C expression, parenthesizing each subterm so
// operator precedence in the emitted source never has to match ast's own
// precedence table.
func (g *generator) expr(n ast.Node) (string, error) {
	if !n.IsValid() {
		return "", merr.Lowering("cannot lower an empty node to C source")
	}

	switch v := n.(type) {
	case ast.NumberNode:
		return fmt.Sprintf("(%s)", formatLiteral(v.Value)), nil

	case ast.RefNode:
		if v.Addr == nil {
			return "", merr.Runtime("csource: nil reference provider", nil)
		}
		return fmt.Sprintf("(*(double *)%dULL)", ptrBits(v.Addr)), nil

	case ast.ArrayRefNode:
		base := fmt.Sprintf("(*(double *)%dULL)", ptrBitsIndex(v.Base, v.Index))
		return base, nil

	case ast.SymbolNode:
		return "", merr.Lowering("cannot lower unbound symbol " + v.Name + " to C source")

	case ast.LocalVarNode:
		return "", merr.Unsupported("csource lowering of local variables is not implemented")

	case ast.UnaryOpNode:
		return g.unaryOp(v)

	case ast.BinaryOpNode:
		return g.binaryOp(v)

	case ast.MultinaryNode:
		return g.multinary(v)

	case ast.UnaryFuncNode:
		return g.unaryFunc(v)

	case ast.BinaryFuncNode:
		return g.binaryFunc(v)

	case ast.ConditionalNode:
		return g.conditional(v)

	case ast.IntPowerNode:
		return g.intPower(v)

	default:
		return "", merr.Unsupported("csource: unhandled node kind")
	}
}

func formatLiteral(v ast.Real) string {
	return fmt.Sprintf("%.17g", v)
}

func (g *generator) unaryOp(v ast.UnaryOpNode) (string, error) {
	child, err := g.expr(v.Child)
	if err != nil {
		return "", err
	}
	switch v.Op {
	case ast.UnaryPlus:
		return fmt.Sprintf("(+%s)", child), nil
	case ast.UnaryMinus:
		return fmt.Sprintf("(-%s)", child), nil
	case ast.UnaryFaculty:
		return "", merr.Unsupported("csource lowering of the faculty operator is not implemented (requires a runtime helper)")
	case ast.UnaryNot:
		return fmt.Sprintf("((%s) != 0.0 ? 0.0 : 1.0)", child), nil
	default:
		return "", merr.Unsupported("csource: unhandled unary operator")
	}
}

func (g *generator) binaryOp(v ast.BinaryOpNode) (string, error) {
	if v.Op == ast.OpAssign || v.Op == ast.OpListSep {
		return "", merr.Unsupported("csource lowering of " + v.Op.Symbol() + " is not implemented")
	}
	left, err := g.expr(v.Left)
	if err != nil {
		return "", err
	}
	right, err := g.expr(v.Right)
	if err != nil {
		return "", err
	}
	switch v.Op {
	case ast.OpSub:
		return fmt.Sprintf("(%s - %s)", left, right), nil
	case ast.OpDiv:
		return fmt.Sprintf("(%s / %s)", left, right), nil
	case ast.OpMod:
		return fmt.Sprintf("fmod(%s, %s)", left, right), nil
	case ast.OpPow:
		return fmt.Sprintf("pow(%s, %s)", left, right), nil
	case ast.OpOr:
		return fmt.Sprintf("((%s != 0.0 || %s != 0.0) ? 1.0 : 0.0)", left, right), nil
	case ast.OpAnd:
		return fmt.Sprintf("((%s != 0.0 && %s != 0.0) ? 1.0 : 0.0)", left, right), nil
	case ast.OpLt:
		return fmt.Sprintf("((%s < %s) ? 1.0 : 0.0)", left, right), nil
	case ast.OpGt:
		return fmt.Sprintf("((%s > %s) ? 1.0 : 0.0)", left, right), nil
	case ast.OpLe:
		return fmt.Sprintf("((%s <= %s) ? 1.0 : 0.0)", left, right), nil
	case ast.OpGe:
		return fmt.Sprintf("((%s >= %s) ? 1.0 : 0.0)", left, right), nil
	case ast.OpEq:
		return fmt.Sprintf("((%s == %s) ? 1.0 : 0.0)", left, right), nil
	case ast.OpNe:
		return fmt.Sprintf("((%s != %s) ? 1.0 : 0.0)", left, right), nil
	default:
		return "", merr.Unsupported("csource: unhandled binary operator")
	}
}

func (g *generator) multinary(v ast.MultinaryNode) (string, error) {
	if v.Op != ast.OpAdd && v.Op != ast.OpMul {
		return "", merr.Unsupported("csource lowering of " + v.Op.Symbol() + " multinary is not implemented")
	}
	parts := make([]string, len(v.Items))
	for i, item := range v.Items {
		s, err := g.expr(item)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	sep := " + "
	if v.Op == ast.OpMul {
		sep = " * "
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, sep)), nil
}

func (g *generator) unaryFunc(v ast.UnaryFuncNode) (string, error) {
	if !v.Fn.Implemented() {
		return "", merr.Unsupported("csource lowering of " + v.Fn.Symbol() + " is not implemented")
	}
	child, err := g.expr(v.Child)
	if err != nil {
		return "", err
	}
	switch v.Fn {
	case ast.FnAbs:
		return fmt.Sprintf("fabs(%s)", child), nil
	case ast.FnAcos:
		return fmt.Sprintf("acos(%s)", child), nil
	case ast.FnAcosh:
		return fmt.Sprintf("acosh(%s)", child), nil
	case ast.FnAsin:
		return fmt.Sprintf("asin(%s)", child), nil
	case ast.FnAsinh:
		return fmt.Sprintf("asinh(%s)", child), nil
	case ast.FnAtan:
		return fmt.Sprintf("atan(%s)", child), nil
	case ast.FnAtanh:
		return fmt.Sprintf("atanh(%s)", child), nil
	case ast.FnCbrt:
		return fmt.Sprintf("cbrt(%s)", child), nil
	case ast.FnCeil:
		return fmt.Sprintf("ceil(%s)", child), nil
	case ast.FnCos:
		return fmt.Sprintf("cos(%s)", child), nil
	case ast.FnCosh:
		return fmt.Sprintf("cosh(%s)", child), nil
	case ast.FnCot:
		return fmt.Sprintf("(1.0 / tan(%s))", child), nil
	case ast.FnCsc:
		return fmt.Sprintf("(1.0 / sin(%s))", child), nil
	case ast.FnErf:
		return fmt.Sprintf("erf(%s)", child), nil
	case ast.FnErfc:
		return fmt.Sprintf("erfc(%s)", child), nil
	case ast.FnExp:
		return fmt.Sprintf("exp(%s)", child), nil
	case ast.FnExp2:
		return fmt.Sprintf("exp2(%s)", child), nil
	case ast.FnFloor:
		return fmt.Sprintf("floor(%s)", child), nil
	case ast.FnInt:
		return fmt.Sprintf("trunc(%s)", child), nil
	case ast.FnLog:
		return fmt.Sprintf("log(%s)", child), nil
	case ast.FnLog10:
		return fmt.Sprintf("log10(%s)", child), nil
	case ast.FnLog2:
		return fmt.Sprintf("log2(%s)", child), nil
	case ast.FnSec:
		return fmt.Sprintf("(1.0 / cos(%s))", child), nil
	case ast.FnSin:
		return fmt.Sprintf("sin(%s)", child), nil
	case ast.FnSinh:
		return fmt.Sprintf("sinh(%s)", child), nil
	case ast.FnSqrt:
		return fmt.Sprintf("sqrt(%s)", child), nil
	case ast.FnTan:
		return fmt.Sprintf("tan(%s)", child), nil
	case ast.FnTanh:
		return fmt.Sprintf("tanh(%s)", child), nil
	case ast.FnTrunc:
		return fmt.Sprintf("trunc(%s)", child), nil
	default:
		return "", merr.Unsupported("csource lowering of " + v.Fn.Symbol() + " is not implemented")
	}
}

func (g *generator) binaryFunc(v ast.BinaryFuncNode) (string, error) {
	if !v.Fn.Implemented() {
		return "", merr.Unsupported("csource lowering of " + v.Fn.Symbol() + " is not implemented")
	}
	left, err := g.expr(v.Left)
	if err != nil {
		return "", err
	}
	right, err := g.expr(v.Right)
	if err != nil {
		return "", err
	}
	switch v.Fn {
	case ast.FnAtan2:
		return fmt.Sprintf("atan2(%s, %s)", left, right), nil
	case ast.FnHypot:
		return fmt.Sprintf("hypot(%s, %s)", left, right), nil
	case ast.FnMin:
		return fmt.Sprintf("fmin(%s, %s)", left, right), nil
	case ast.FnMax:
		return fmt.Sprintf("fmax(%s, %s)", left, right), nil
	case ast.FnPow:
		return fmt.Sprintf("pow(%s, %s)", left, right), nil
	case ast.FnPlog:
		return "", merr.Unsupported("csource lowering of plog is not implemented (requires a runtime helper)")
	default:
		return "", merr.Unsupported("csource lowering of " + v.Fn.Symbol() + " is not implemented")
	}
}

func (g *generator) conditional(v ast.ConditionalNode) (string, error) {
	cond, err := g.expr(v.Cond)
	if err != nil {
		return "", err
	}
	then, err := g.expr(v.Then)
	if err != nil {
		return "", err
	}
	els, err := g.expr(v.Else)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("((%s != 0.0) ? %s : %s)", cond, then, els), nil
}

func (g *generator) intPower(v ast.IntPowerNode) (string, error) {
	child, err := g.expr(v.Child)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("pow(%s, %s)", child, formatLiteral(ast.Real(v.Exponent))), nil
}
