// Package transform implements the visitor framework (§4.3), the Simplify
// rewrite built on it (§4.4), and Differentiate (§4.5), which is a direct
// recursive function rather than a Visitor; the framework is grounded on
// the write-back, one-method-per-variant dispatch style the teacher uses
// throughout ast.Node's own Equal/String/Hash methods.
package transform

import "github.com/dekarrin/mathexpr/ast"

// Visitor has one method per ast.NodeKind. Apply drives a post-order
// traversal: a composite node's children are transformed first, then the
// node's own Visit method is called with those already-transformed
// children, returning the node (or its replacement) to write back into the
// parent.
type Visitor interface {
	VisitEmpty(n ast.EmptyNode) ast.Node
	VisitNumber(n ast.NumberNode) ast.Node
	VisitRef(n ast.RefNode) ast.Node
	VisitArrayRef(n ast.ArrayRefNode) ast.Node
	VisitSymbol(n ast.SymbolNode) ast.Node
	VisitLocalVar(n ast.LocalVarNode) ast.Node
	VisitUnaryOp(n ast.UnaryOpNode) ast.Node
	VisitBinaryOp(n ast.BinaryOpNode) ast.Node
	VisitMultinary(n ast.MultinaryNode) ast.Node
	VisitUnaryFunc(n ast.UnaryFuncNode) ast.Node
	VisitBinaryFunc(n ast.BinaryFuncNode) ast.Node
	VisitConditional(n ast.ConditionalNode) ast.Node
	VisitIntPower(n ast.IntPowerNode) ast.Node
}

// Apply recurses into n's children (if any), replacing each with the
// result of Apply, then calls the Visitor method matching n's variant on
// the rebuilt node.
func Apply(v Visitor, n ast.Node) ast.Node {
	switch n.Kind() {
	case ast.KindEmpty:
		return v.VisitEmpty(n.(ast.EmptyNode))
	case ast.KindNumber:
		return v.VisitNumber(n.(ast.NumberNode))
	case ast.KindRef:
		return v.VisitRef(n.(ast.RefNode))
	case ast.KindArrayRef:
		return v.VisitArrayRef(n.(ast.ArrayRefNode))
	case ast.KindSymbol:
		return v.VisitSymbol(n.(ast.SymbolNode))
	case ast.KindLocalVar:
		return v.VisitLocalVar(n.(ast.LocalVarNode))

	case ast.KindUnaryOp:
		u := n.(ast.UnaryOpNode)
		u.Child = Apply(v, u.Child)
		return v.VisitUnaryOp(u)

	case ast.KindBinaryOp:
		b := n.(ast.BinaryOpNode)
		b.Left = Apply(v, b.Left)
		b.Right = Apply(v, b.Right)
		return v.VisitBinaryOp(b)

	case ast.KindMultinary:
		m := n.(ast.MultinaryNode)
		items := make([]ast.Node, len(m.Items))
		for i, c := range m.Items {
			items[i] = Apply(v, c)
		}
		m.Items = items
		return v.VisitMultinary(m)

	case ast.KindUnaryFunc:
		f := n.(ast.UnaryFuncNode)
		f.Child = Apply(v, f.Child)
		return v.VisitUnaryFunc(f)

	case ast.KindBinaryFunc:
		f := n.(ast.BinaryFuncNode)
		f.Left = Apply(v, f.Left)
		f.Right = Apply(v, f.Right)
		return v.VisitBinaryFunc(f)

	case ast.KindConditional:
		c := n.(ast.ConditionalNode)
		c.Cond = Apply(v, c.Cond)
		c.Then = Apply(v, c.Then)
		c.Else = Apply(v, c.Else)
		return v.VisitConditional(c)

	case ast.KindIntPower:
		p := n.(ast.IntPowerNode)
		p.Child = Apply(v, p.Child)
		return v.VisitIntPower(p)

	default:
		return n
	}
}
