package transform

import (
	"math"

	"github.com/dekarrin/mathexpr/ast"
	"github.com/dekarrin/mathexpr/eval"
)

// maxSimplifyPasses bounds the whole-tree fixpoint loop in Simplify. Each
// pass is itself a single post-order sweep that already applies every
// local rule to fixpoint at each node it rewrites (see simplifyBinaryOp's
// "re-simplify" calls); the outer loop exists only to let a rewrite near
// the root unlock a further rewrite nearer the leaves of the *new* tree
// shape, which a single post-order sweep cannot see.
const maxSimplifyPasses = 64

// Simplify normalises n by constant folding and the algebraic identities
// of §4.4, applied post-order to a whole-tree fixpoint.
func Simplify(n ast.Node) ast.Node {
	cur := n
	for i := 0; i < maxSimplifyPasses; i++ {
		next := Apply(simplifyVisitor{}, cur)
		if next.Equal(cur) {
			return next
		}
		cur = next
	}
	return cur
}

type simplifyVisitor struct{}

func (simplifyVisitor) VisitEmpty(n ast.EmptyNode) ast.Node       { return n }
func (simplifyVisitor) VisitNumber(n ast.NumberNode) ast.Node     { return n }
func (simplifyVisitor) VisitRef(n ast.RefNode) ast.Node           { return n }
func (simplifyVisitor) VisitArrayRef(n ast.ArrayRefNode) ast.Node { return n }
func (simplifyVisitor) VisitSymbol(n ast.SymbolNode) ast.Node     { return n }
func (simplifyVisitor) VisitLocalVar(n ast.LocalVarNode) ast.Node { return n }

func (simplifyVisitor) VisitUnaryOp(n ast.UnaryOpNode) ast.Node { return simplifyUnaryOp(n) }

func simplifyUnaryOp(n ast.UnaryOpNode) ast.Node {
	if nm, ok := n.Child.(ast.NumberNode); ok {
		if v, err := eval.Eval(ast.UnaryOpNode{Op: n.Op, Child: nm}); err == nil {
			return ast.NumberNode{Value: v}
		}
	}
	return n
}

func (simplifyVisitor) VisitBinaryOp(n ast.BinaryOpNode) ast.Node { return simplifyBinaryOp(n) }

func simplifyBinaryOp(n ast.BinaryOpNode) ast.Node {
	left, lok := n.Left.(ast.NumberNode)
	right, rok := n.Right.(ast.NumberNode)

	if lok && rok {
		if v, err := eval.Eval(n); err == nil {
			return ast.NumberNode{Value: v}
		}
	}

	switch n.Op {
	case ast.OpSub:
		if rok && right.Value == 0 {
			return n.Left
		}
		if lok && left.Value == 0 {
			return simplifyUnaryOp(ast.UnaryOpNode{Op: ast.UnaryMinus, Child: n.Right})
		}
	case ast.OpDiv:
		if rok && right.Value == 1 {
			return n.Left
		}
		if lok && left.Value == 0 {
			return ast.NumberNode{Value: 0}
		}
	case ast.OpMod:
		if rok && right.Value == 1 {
			return ast.NumberNode{Value: 0}
		}
	case ast.OpPow:
		if rok {
			if right.IsInteger() {
				return simplifyIntPower(ast.IntPowerNode{Child: n.Left, Exponent: int(right.Value)})
			}
			return simplifyBinaryFunc(ast.BinaryFuncNode{Fn: ast.FnPow, Left: n.Left, Right: n.Right})
		}
	case ast.OpOr:
		if (lok && left.Value != 0) || (rok && right.Value != 0) {
			return ast.NumberNode{Value: 1}
		}
	case ast.OpAnd:
		if (lok && left.Value == 0) || (rok && right.Value == 0) {
			return ast.NumberNode{Value: 0}
		}
	}
	return n
}

func (simplifyVisitor) VisitMultinary(n ast.MultinaryNode) ast.Node { return simplifyMultinary(n) }

func simplifyMultinary(n ast.MultinaryNode) ast.Node {
	if n.Op != ast.OpAdd && n.Op != ast.OpMul {
		// component/list are reserved forms the parser never produces
		// (§3.2); nothing to hoist or fold.
		return n
	}

	var flat []ast.Node
	var flatten func([]ast.Node)
	flatten = func(items []ast.Node) {
		for _, c := range items {
			if m2, ok := c.(ast.MultinaryNode); ok && m2.Op == n.Op {
				flatten(m2.Items)
			} else {
				flat = append(flat, c)
			}
		}
	}
	flatten(n.Items)

	var constants, rest []ast.Node
	for _, c := range flat {
		if _, ok := c.(ast.NumberNode); ok {
			constants = append(constants, c)
		} else {
			rest = append(rest, c)
		}
	}

	folded := n.Op.Identity()
	for _, c := range constants {
		v := c.(ast.NumberNode).Value
		if n.Op == ast.OpAdd {
			folded += v
		} else {
			folded *= v
		}
	}

	if n.Op == ast.OpMul && folded == 0 {
		return ast.NumberNode{Value: 0}
	}
	if len(rest) == 0 {
		return ast.NumberNode{Value: folded}
	}
	if folded != n.Op.Identity() {
		rest = append([]ast.Node{ast.NumberNode{Value: folded}}, rest...)
	}
	if len(rest) == 1 {
		return rest[0]
	}
	return ast.NewMultinary(n.Op, rest...)
}

func (simplifyVisitor) VisitUnaryFunc(n ast.UnaryFuncNode) ast.Node { return simplifyUnaryFunc(n) }

func simplifyUnaryFunc(n ast.UnaryFuncNode) ast.Node {
	if nm, ok := n.Child.(ast.NumberNode); ok && n.Fn.Implemented() {
		if v, err := eval.Eval(ast.UnaryFuncNode{Fn: n.Fn, Child: nm}); err == nil {
			return ast.NumberNode{Value: v}
		}
	}
	return n
}

func (simplifyVisitor) VisitBinaryFunc(n ast.BinaryFuncNode) ast.Node { return simplifyBinaryFunc(n) }

func simplifyBinaryFunc(n ast.BinaryFuncNode) ast.Node {
	left, lok := n.Left.(ast.NumberNode)
	right, rok := n.Right.(ast.NumberNode)
	if lok && rok && n.Fn.Implemented() {
		if v, err := eval.Eval(n); err == nil {
			return ast.NumberNode{Value: v}
		}
	}
	return n
}

func (simplifyVisitor) VisitConditional(n ast.ConditionalNode) ast.Node { return simplifyConditional(n) }

func simplifyConditional(n ast.ConditionalNode) ast.Node {
	if nm, ok := n.Cond.(ast.NumberNode); ok {
		if nm.Value != 0 {
			return n.Then
		}
		return n.Else
	}
	return n
}

func (simplifyVisitor) VisitIntPower(n ast.IntPowerNode) ast.Node { return simplifyIntPower(n) }

func simplifyIntPower(n ast.IntPowerNode) ast.Node {
	if inner, ok := n.Child.(ast.IntPowerNode); ok {
		return simplifyIntPower(ast.IntPowerNode{Child: inner.Child, Exponent: inner.Exponent * n.Exponent})
	}
	if nm, ok := n.Child.(ast.NumberNode); ok {
		return ast.NumberNode{Value: math.Pow(nm.Value, float64(n.Exponent))}
	}
	if n.Exponent == 1 {
		return n.Child
	}
	if n.Exponent == 0 {
		return ast.NumberNode{Value: 1}
	}
	return n
}
