package transform

import (
	"math"

	"github.com/dekarrin/mathexpr/ast"
	"github.com/dekarrin/mathexpr/internal/merr"
)

// Differentiate returns the AST of d(n)/d(wrt), where wrt identifies a
// value provider (an ast.RefNode/ast.ArrayRefNode, compared by storage
// identity via ast.SameProvider) or an ast.SymbolNode (compared by name),
// per §4.5.
//
// Unlike Simplify, this is not expressed as a Visitor: the product rule
// for multinary multiplication and several binary-function rules need the
// *original* sibling subtrees alongside the differentiated one, which
// falls outside Apply's post-order, single-node contract. It is instead a
// direct recursive descent, mirroring the shape of the rules in §4.5 one
// for one. Callers typically follow this with Simplify to compact the
// result.
func Differentiate(n ast.Node, wrt ast.Node) (ast.Node, error) {
	if !n.IsValid() {
		return nil, merr.Semantics("cannot differentiate an empty node")
	}

	d := func(x ast.Node) (ast.Node, error) { return Differentiate(x, wrt) }

	switch n.Kind() {
	case ast.KindNumber:
		return numNode(0), nil

	case ast.KindRef, ast.KindArrayRef:
		if ast.SameProvider(n, wrt) {
			return numNode(1), nil
		}
		return numNode(0), nil

	case ast.KindSymbol:
		sym := n.(ast.SymbolNode)
		if ws, ok := wrt.(ast.SymbolNode); ok && ws.Name == sym.Name {
			return numNode(1), nil
		}
		return numNode(0), nil

	case ast.KindLocalVar:
		return nil, merr.Unsupported("differentiation of local-variable slots is not yet implemented")

	case ast.KindUnaryOp:
		return differentiateUnaryOp(n.(ast.UnaryOpNode), d)

	case ast.KindBinaryOp:
		return differentiateBinaryOp(n.(ast.BinaryOpNode), d)

	case ast.KindMultinary:
		return differentiateMultinary(n.(ast.MultinaryNode), d)

	case ast.KindUnaryFunc:
		return differentiateUnaryFunc(n.(ast.UnaryFuncNode), d)

	case ast.KindBinaryFunc:
		return differentiateBinaryFunc(n.(ast.BinaryFuncNode), d)

	case ast.KindConditional:
		c := n.(ast.ConditionalNode)
		dt, err := d(c.Then)
		if err != nil {
			return nil, err
		}
		de, err := d(c.Else)
		if err != nil {
			return nil, err
		}
		// the condition itself is never differentiated.
		return ast.ConditionalNode{Cond: c.Cond, Then: dt, Else: de}, nil

	case ast.KindIntPower:
		p := n.(ast.IntPowerNode)
		dx, err := d(p.Child)
		if err != nil {
			return nil, err
		}
		return mul(numNode(ast.Real(p.Exponent)), dx, ipow(p.Child, p.Exponent-1)), nil

	default:
		return nil, merr.Unsupported("differentiation: unhandled node kind")
	}
}

type dFunc func(ast.Node) (ast.Node, error)

func numNode(v ast.Real) ast.Node { return ast.NumberNode{Value: v} }

func mul(items ...ast.Node) ast.Node {
	if len(items) == 1 {
		return items[0]
	}
	return ast.NewMultinary(ast.OpMul, items...)
}

func add(items ...ast.Node) ast.Node {
	if len(items) == 1 {
		return items[0]
	}
	return ast.NewMultinary(ast.OpAdd, items...)
}

func sub(a, b ast.Node) ast.Node { return ast.BinaryOpNode{Op: ast.OpSub, Left: a, Right: b} }
func div(a, b ast.Node) ast.Node { return ast.BinaryOpNode{Op: ast.OpDiv, Left: a, Right: b} }
func neg(a ast.Node) ast.Node    { return ast.UnaryOpNode{Op: ast.UnaryMinus, Child: a} }
func ipow(a ast.Node, n int) ast.Node {
	return ast.IntPowerNode{Child: a, Exponent: n}
}
func uf(fn ast.UnaryFunction, a ast.Node) ast.Node { return ast.UnaryFuncNode{Fn: fn, Child: a} }
func bf(fn ast.BinaryFunction, a, b ast.Node) ast.Node {
	return ast.BinaryFuncNode{Fn: fn, Left: a, Right: b}
}
func lt(a, b ast.Node) ast.Node {
	return ast.BinaryOpNode{Op: ast.OpLt, Left: a, Right: b}
}
func cond(c, t, e ast.Node) ast.Node { return ast.ConditionalNode{Cond: c, Then: t, Else: e} }

func differentiateUnaryOp(n ast.UnaryOpNode, d dFunc) (ast.Node, error) {
	switch n.Op {
	case ast.UnaryPlus:
		da, err := d(n.Child)
		if err != nil {
			return nil, err
		}
		return ast.UnaryOpNode{Op: ast.UnaryPlus, Child: da}, nil
	case ast.UnaryMinus:
		da, err := d(n.Child)
		if err != nil {
			return nil, err
		}
		return neg(da), nil
	default:
		return nil, merr.Unsupported("derivative not implemented for unary operator " + n.Op.Symbol())
	}
}

func differentiateBinaryOp(n ast.BinaryOpNode, d dFunc) (ast.Node, error) {
	switch n.Op {
	case ast.OpSub:
		da, err := d(n.Left)
		if err != nil {
			return nil, err
		}
		db, err := d(n.Right)
		if err != nil {
			return nil, err
		}
		return sub(da, db), nil

	case ast.OpDiv:
		da, err := d(n.Left)
		if err != nil {
			return nil, err
		}
		db, err := d(n.Right)
		if err != nil {
			return nil, err
		}
		return sub(div(da, n.Right), div(mul(db, n.Left), ipow(n.Right, 2))), nil

	case ast.OpMod:
		return d(n.Left)

	case ast.OpPow:
		return differentiateBinaryFunc(ast.BinaryFuncNode{Fn: ast.FnPow, Left: n.Left, Right: n.Right}, d)

	case ast.OpOr, ast.OpAnd, ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe, ast.OpEq, ast.OpNe:
		return numNode(0), nil

	default:
		return nil, merr.Unsupported("derivative not implemented for operator " + n.Op.Symbol())
	}
}

func differentiateMultinary(n ast.MultinaryNode, d dFunc) (ast.Node, error) {
	switch n.Op {
	case ast.OpAdd:
		terms := make([]ast.Node, len(n.Items))
		for i, item := range n.Items {
			dt, err := d(item)
			if err != nil {
				return nil, err
			}
			terms[i] = dt
		}
		return add(terms...), nil

	case ast.OpMul:
		terms := make([]ast.Node, len(n.Items))
		for j := range n.Items {
			dj, err := d(n.Items[j])
			if err != nil {
				return nil, err
			}
			others := make([]ast.Node, 0, len(n.Items)-1)
			for i, item := range n.Items {
				if i != j {
					others = append(others, item)
				}
			}
			if len(others) == 0 {
				terms[j] = dj
			} else {
				terms[j] = mul(append([]ast.Node{dj}, others...)...)
			}
		}
		return add(terms...), nil

	default:
		return nil, merr.Unsupported("derivative not implemented for " + n.Op.Symbol())
	}
}

// nonDifferentiableUnary lists the unary functions whose exact derivative is
// zero almost everywhere and undefined at their breakpoints; §4.5 names
// ceil/floor/int/imag/arg/conj explicitly, and trunc is included here too
// since it and int are the same step function in this catalog (see
// DESIGN.md).
var nonDifferentiableUnary = map[ast.UnaryFunction]bool{
	ast.FnCeil: true, ast.FnFloor: true, ast.FnInt: true, ast.FnTrunc: true,
}

func differentiateUnaryFunc(n ast.UnaryFuncNode, d dFunc) (ast.Node, error) {
	if !n.Fn.Implemented() || nonDifferentiableUnary[n.Fn] {
		return nil, merr.Unsupported("derivative not implemented for " + n.Fn.Symbol())
	}

	da, err := d(n.Child)
	if err != nil {
		return nil, err
	}
	a := n.Child

	switch n.Fn {
	case ast.FnAbs:
		return mul(da, div(a, uf(ast.FnAbs, a))), nil
	case ast.FnAcos:
		return mul(da, neg(div(numNode(1), uf(ast.FnSqrt, sub(numNode(1), ipow(a, 2)))))), nil
	case ast.FnAcosh:
		return mul(da, div(numNode(1), uf(ast.FnSqrt, sub(ipow(a, 2), numNode(1))))), nil
	case ast.FnAsin:
		return mul(da, div(numNode(1), uf(ast.FnSqrt, sub(numNode(1), ipow(a, 2))))), nil
	case ast.FnAsinh:
		return mul(da, div(numNode(1), uf(ast.FnSqrt, add(ipow(a, 2), numNode(1))))), nil
	case ast.FnAtan:
		return mul(da, div(numNode(1), add(numNode(1), ipow(a, 2)))), nil
	case ast.FnAtanh:
		return mul(da, div(numNode(1), sub(numNode(1), ipow(a, 2)))), nil
	case ast.FnCbrt:
		return mul(da, div(numNode(1), mul(numNode(3), ipow(uf(ast.FnCbrt, a), 2)))), nil
	case ast.FnCos:
		return mul(da, neg(uf(ast.FnSin, a))), nil
	case ast.FnCosh:
		return mul(da, uf(ast.FnSinh, a)), nil
	case ast.FnCot:
		return mul(da, neg(ipow(uf(ast.FnCsc, a), 2))), nil
	case ast.FnCsc:
		return mul(da, neg(mul(uf(ast.FnCsc, a), uf(ast.FnCot, a)))), nil
	case ast.FnErf:
		return mul(da, numNode(2/math.Sqrt(math.Pi)), uf(ast.FnExp, neg(ipow(a, 2)))), nil
	case ast.FnErfc:
		return mul(da, numNode(-2/math.Sqrt(math.Pi)), uf(ast.FnExp, neg(ipow(a, 2)))), nil
	case ast.FnExp:
		return mul(da, uf(ast.FnExp, a)), nil
	case ast.FnExp2:
		return mul(da, uf(ast.FnExp2, a), numNode(math.Ln2)), nil
	case ast.FnLog:
		return div(da, a), nil
	case ast.FnLog10:
		return div(da, mul(a, numNode(math.Ln10))), nil
	case ast.FnLog2:
		return div(da, mul(a, numNode(math.Ln2))), nil
	case ast.FnSec:
		return mul(da, uf(ast.FnSec, a), uf(ast.FnTan, a)), nil
	case ast.FnSin:
		return mul(da, uf(ast.FnCos, a)), nil
	case ast.FnSinh:
		return mul(da, uf(ast.FnCosh, a)), nil
	case ast.FnSqrt:
		return div(da, mul(numNode(2), uf(ast.FnSqrt, a))), nil
	case ast.FnTan:
		return div(da, ipow(uf(ast.FnCos, a), 2)), nil
	case ast.FnTanh:
		return mul(da, sub(numNode(1), ipow(uf(ast.FnTanh, a), 2))), nil
	default:
		return nil, merr.Unsupported("derivative not implemented for " + n.Fn.Symbol())
	}
}

func differentiateBinaryFunc(n ast.BinaryFuncNode, d dFunc) (ast.Node, error) {
	if !n.Fn.Implemented() {
		return nil, merr.Unsupported("derivative not implemented for " + n.Fn.Symbol())
	}

	a, b := n.Left, n.Right

	switch n.Fn {
	case ast.FnAtan2:
		da, err := d(a)
		if err != nil {
			return nil, err
		}
		db, err := d(b)
		if err != nil {
			return nil, err
		}
		return div(sub(mul(b, da), mul(a, db)), add(ipow(a, 2), ipow(b, 2))), nil

	case ast.FnHypot:
		// supplemented: not in §4.5's explicit table, but the standard
		// quotient-rule-free derivative is unambiguous and keeps hypot
		// consistent with the rest of the differentiable catalog.
		da, err := d(a)
		if err != nil {
			return nil, err
		}
		db, err := d(b)
		if err != nil {
			return nil, err
		}
		h := bf(ast.FnHypot, a, b)
		return div(add(mul(a, da), mul(b, db)), h), nil

	case ast.FnMin:
		da, err := d(a)
		if err != nil {
			return nil, err
		}
		db, err := d(b)
		if err != nil {
			return nil, err
		}
		return cond(lt(a, b), da, db), nil

	case ast.FnMax:
		da, err := d(a)
		if err != nil {
			return nil, err
		}
		db, err := d(b)
		if err != nil {
			return nil, err
		}
		return cond(lt(a, b), db, da), nil

	case ast.FnPlog:
		da, err := d(a)
		if err != nil {
			return nil, err
		}
		belowBranch := add(
			div(numNode(1), b),
			neg(div(sub(a, b), ipow(b, 2))),
			div(ipow(sub(a, b), 2), ipow(b, 3)),
		)
		return mul(da, cond(lt(a, b), belowBranch, div(numNode(1), a))), nil

	case ast.FnPow:
		da, err := d(a)
		if err != nil {
			return nil, err
		}
		if bn, ok := b.(ast.NumberNode); ok {
			if bn.Value == 0 {
				return numNode(0), nil
			}
			db, err := d(b)
			if err != nil {
				return nil, err
			}
			if bn.Value == 1 {
				return db, nil
			}
			return mul(bf(ast.FnPow, a, numNode(bn.Value-1)), b, da), nil
		}
		db, err := d(b)
		if err != nil {
			return nil, err
		}
		return mul(bf(ast.FnPow, a, b), add(mul(db, uf(ast.FnLog, a)), div(mul(b, da), a))), nil

	default:
		return nil, merr.Unsupported("derivative not implemented for " + n.Fn.Symbol())
	}
}
