package ast

import (
	"fmt"
	"math"
)

// NodeKind discriminates the Node sum type's variants (§3.3).
type NodeKind int

const (
	KindEmpty NodeKind = iota
	KindNumber
	KindRef
	KindArrayRef
	KindSymbol
	KindLocalVar
	KindUnaryOp
	KindBinaryOp
	KindMultinary
	KindUnaryFunc
	KindBinaryFunc
	KindConditional
	KindIntPower
)

func (k NodeKind) String() string {
	switch k {
	case KindEmpty:
		return "EMPTY"
	case KindNumber:
		return "NUMBER"
	case KindRef:
		return "REF"
	case KindArrayRef:
		return "ARRAY_REF"
	case KindSymbol:
		return "SYMBOL"
	case KindLocalVar:
		return "LOCAL_VAR"
	case KindUnaryOp:
		return "UNARY_OP"
	case KindBinaryOp:
		return "BINARY_OP"
	case KindMultinary:
		return "MULTINARY"
	case KindUnaryFunc:
		return "UNARY_FUNC"
	case KindBinaryFunc:
		return "BINARY_FUNC"
	case KindConditional:
		return "CONDITIONAL"
	case KindIntPower:
		return "INT_POWER"
	default:
		return "UNKNOWN_KIND"
	}
}

// Node is the shared-ownership handle to one AST variant (§3.3). Nodes are
// immutable after construction: a Node value is never mutated in a way
// observable through another holder, and rewrites always produce a new
// Node rather than editing one in place. Because every concrete
// implementation below is an ordinary immutable Go value (or a value
// wrapping only immutable fields), normal Go value/pointer copying already
// gives the "shared, read-only, GC-collected when the last holder drops it"
// semantics that the source expressed with explicit reference counting.
type Node interface {
	// Kind reports which variant this Node is.
	Kind() NodeKind

	// Children returns this node's ordered child slots. Every returned
	// child is itself a valid (non-Empty) Node, per the invariant in §3.3.
	Children() []Node

	// Is reports whether this node matches the given catalog tag, or the
	// catalog's wildcard value (e.g. Node.Is(KindBinaryOp, AnyBinaryOperator)
	// matches any binary operator node).
	Is(kind NodeKind, tag any) bool

	// IsValid reports whether the node may be evaluated or transformed.
	// Only the Empty variant returns false.
	IsValid() bool

	// Hash returns a structural digest: two nodes with identical structure
	// produce equal hashes regardless of identity. Used by Simplify's
	// idempotence test; the back-ends deduplicate immediates by bit pattern
	// and variables by SameProvider, not by Hash.
	Hash() NodeHash

	// Equal reports structural equality with another Node.
	Equal(other Node) bool

	// String renders a compact debug form of this node alone (not its
	// subtree); used by internal/render to build the full tree dump.
	String() string
}

// NodeHash is a structural digest of a Node; see Node.Hash.
type NodeHash [32]byte

// EmptyNode is the placeholder for an uninitialised node. Any evaluation or
// transform applied to it is an error.
type EmptyNode struct{}

func (EmptyNode) Kind() NodeKind { return KindEmpty }
func (EmptyNode) Children() []Node { return nil }
func (EmptyNode) Is(k NodeKind, tag any) bool { return k == KindEmpty }
func (EmptyNode) IsValid() bool { return false }
func (EmptyNode) Hash() NodeHash { return hashLeaf(KindEmpty, "empty") }
func (n EmptyNode) Equal(other Node) bool { _, ok := other.(EmptyNode); return ok }
func (EmptyNode) String() string { return "<empty>" }

// NumberNode is a constant real value.
type NumberNode struct {
	Value Real
}

func (NumberNode) Kind() NodeKind { return KindNumber }
func (NumberNode) Children() []Node { return nil }
func (NumberNode) Is(k NodeKind, tag any) bool { return k == KindNumber }
func (NumberNode) IsValid() bool { return true }
func (n NumberNode) Hash() NodeHash { return hashLeaf(KindNumber, fmt.Sprintf("%x", math.Float64bits(n.Value))) }
func (n NumberNode) Equal(other Node) bool {
	o, ok := other.(NumberNode)
	return ok && o.Value == n.Value
}
func (n NumberNode) String() string { return fmt.Sprintf("%g", n.Value) }

// IsInteger reports whether the node's value has no fractional part and
// fits in an int, used by Simplify's pow-to-integer-power canonicalisation.
func (n NumberNode) IsInteger() bool {
	return n.Value == math.Trunc(n.Value) && !math.IsInf(n.Value, 0) &&
		n.Value >= math.MinInt && n.Value < -math.MinInt
}

// RefNode borrows an external Real by stable address. Two RefNodes are "the
// same provider" iff Addr points to the same location.
type RefNode struct {
	Addr *Real
	Name string
}

func (RefNode) Kind() NodeKind { return KindRef }
func (RefNode) Children() []Node { return nil }
func (RefNode) Is(k NodeKind, tag any) bool { return k == KindRef }
func (RefNode) IsValid() bool { return true }
func (n RefNode) Hash() NodeHash { return hashLeaf(KindRef, fmt.Sprintf("%p", n.Addr)) }
func (n RefNode) Equal(other Node) bool {
	o, ok := other.(RefNode)
	return ok && o.Addr == n.Addr
}
func (n RefNode) String() string {
	if n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("ref(%p)", n.Addr)
}

// SameProvider reports whether two reference-type nodes (Ref or ArrayRef)
// read from the same external storage.
func SameProvider(a, b Node) bool {
	switch av := a.(type) {
	case RefNode:
		bv, ok := b.(RefNode)
		return ok && av.Addr == bv.Addr
	case ArrayRefNode:
		bv, ok := b.(ArrayRefNode)
		return ok && arrayBase(av.Base) == arrayBase(bv.Base) && av.Index == bv.Index
	default:
		return false
	}
}

// ArrayRefNode borrows an external Real array (its base address, expressed
// in the natural Go form of a slice over caller-owned storage) and an
// external integer index; its value is Base[*Index] read on demand. Two
// ArrayRefNodes are "the same provider" iff both the array's backing
// storage and the index address match.
type ArrayRefNode struct {
	Base  []Real
	Index *int
	Name  string
}

func (ArrayRefNode) Kind() NodeKind { return KindArrayRef }
func (ArrayRefNode) Children() []Node { return nil }
func (ArrayRefNode) Is(k NodeKind, tag any) bool { return k == KindArrayRef }
func (ArrayRefNode) IsValid() bool { return true }
func (n ArrayRefNode) Hash() NodeHash {
	return hashLeaf(KindArrayRef, fmt.Sprintf("%p:%p", arrayBase(n.Base), n.Index))
}
func (n ArrayRefNode) Equal(other Node) bool {
	o, ok := other.(ArrayRefNode)
	return ok && arrayBase(o.Base) == arrayBase(n.Base) && o.Index == n.Index
}
func (n ArrayRefNode) String() string {
	if n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("arrayref(%p[%p])", arrayBase(n.Base), n.Index)
}

// Value reads the referent at the time of the call.
func (n ArrayRefNode) Value() Real {
	return n.Base[*n.Index]
}

// arrayBase returns the address of a slice's first element, used as the
// stable identity of its backing storage. Returns nil for an empty slice.
func arrayBase(s []Real) *Real {
	if len(s) == 0 {
		return nil
	}
	return &s[0]
}

// SymbolNode is a pure named placeholder used during parsing and
// differentiation; it cannot be evaluated or lowered.
type SymbolNode struct {
	Name string
}

func (SymbolNode) Kind() NodeKind { return KindSymbol }
func (SymbolNode) Children() []Node { return nil }
func (SymbolNode) Is(k NodeKind, tag any) bool { return k == KindSymbol }
func (SymbolNode) IsValid() bool { return true }
func (n SymbolNode) Hash() NodeHash { return hashLeaf(KindSymbol, n.Name) }
func (n SymbolNode) Equal(other Node) bool {
	o, ok := other.(SymbolNode)
	return ok && o.Name == n.Name
}
func (n SymbolNode) String() string { return n.Name }

// LocalVarNode is an id into a function-scoped slot, reserved for the `:=`
// operator. Evaluation and lowering of LocalVarNode are unimplemented (§9).
type LocalVarNode struct {
	Slot int
	Name string
}

func (LocalVarNode) Kind() NodeKind { return KindLocalVar }
func (LocalVarNode) Children() []Node { return nil }
func (LocalVarNode) Is(k NodeKind, tag any) bool { return k == KindLocalVar }
func (LocalVarNode) IsValid() bool { return true }
func (n LocalVarNode) Hash() NodeHash { return hashLeaf(KindLocalVar, fmt.Sprintf("%d", n.Slot)) }
func (n LocalVarNode) Equal(other Node) bool {
	o, ok := other.(LocalVarNode)
	return ok && o.Slot == n.Slot
}
func (n LocalVarNode) String() string { return n.Name }

// UnaryOpNode is a unary operator applied to one child.
type UnaryOpNode struct {
	Op    UnaryOperator
	Child Node
}

func (UnaryOpNode) Kind() NodeKind { return KindUnaryOp }
func (n UnaryOpNode) Children() []Node { return []Node{n.Child} }
func (n UnaryOpNode) Is(k NodeKind, tag any) bool {
	if k != KindUnaryOp {
		return false
	}
	t, ok := tag.(UnaryOperator)
	return ok && (t == AnyUnaryOperator || t == n.Op)
}
func (UnaryOpNode) IsValid() bool { return true }
func (n UnaryOpNode) Hash() NodeHash {
	return hashNode(KindUnaryOp, fmt.Sprintf("%d", n.Op), n.Child.Hash())
}
func (n UnaryOpNode) Equal(other Node) bool {
	o, ok := other.(UnaryOpNode)
	return ok && o.Op == n.Op && o.Child.Equal(n.Child)
}
func (n UnaryOpNode) String() string { return n.Op.Symbol() }

// BinaryOpNode is a binary operator applied to two children.
type BinaryOpNode struct {
	Op          BinaryOperator
	Left, Right Node
}

func (BinaryOpNode) Kind() NodeKind { return KindBinaryOp }
func (n BinaryOpNode) Children() []Node { return []Node{n.Left, n.Right} }
func (n BinaryOpNode) Is(k NodeKind, tag any) bool {
	if k != KindBinaryOp {
		return false
	}
	t, ok := tag.(BinaryOperator)
	return ok && (t == AnyBinaryOperator || t == n.Op)
}
func (BinaryOpNode) IsValid() bool { return true }
func (n BinaryOpNode) Hash() NodeHash {
	return hashNode(KindBinaryOp, fmt.Sprintf("%d", n.Op), n.Left.Hash(), n.Right.Hash())
}
func (n BinaryOpNode) Equal(other Node) bool {
	o, ok := other.(BinaryOpNode)
	return ok && o.Op == n.Op && o.Left.Equal(n.Left) && o.Right.Equal(n.Right)
}
func (n BinaryOpNode) String() string { return n.Op.Symbol() }

// MultinaryNode holds an ordered sequence of >= 1 children reduced by Op.
type MultinaryNode struct {
	Op       MultinaryOperator
	Items []Node
}

func (MultinaryNode) Kind() NodeKind { return KindMultinary }
func (n MultinaryNode) Children() []Node { return n.Items }
func (n MultinaryNode) Is(k NodeKind, tag any) bool {
	if k != KindMultinary {
		return false
	}
	t, ok := tag.(MultinaryOperator)
	return ok && (t == AnyMultinaryOperator || t == n.Op)
}
func (MultinaryNode) IsValid() bool { return true }
func (n MultinaryNode) Hash() NodeHash {
	h := fmt.Sprintf("%d", n.Op)
	children := make([]NodeHash, len(n.Items))
	for i, c := range n.Items {
		children[i] = c.Hash()
	}
	return hashNode(KindMultinary, h, children...)
}
func (n MultinaryNode) Equal(other Node) bool {
	o, ok := other.(MultinaryNode)
	if !ok || o.Op != n.Op || len(o.Items) != len(n.Items) {
		return false
	}
	for i := range n.Items {
		if !o.Items[i].Equal(n.Items[i]) {
			return false
		}
	}
	return true
}
func (n MultinaryNode) String() string { return n.Op.Symbol() }

// NewMultinary constructs a MultinaryNode, panicking if given zero children
// (the §3.3 invariant requires size >= 1).
func NewMultinary(op MultinaryOperator, children ...Node) MultinaryNode {
	if len(children) == 0 {
		panic("multinary node must have at least one child")
	}
	return MultinaryNode{Op: op, Items: children}
}

// UnaryFuncNode applies a named single-argument function to one child.
type UnaryFuncNode struct {
	Fn    UnaryFunction
	Child Node
}

func (UnaryFuncNode) Kind() NodeKind { return KindUnaryFunc }
func (n UnaryFuncNode) Children() []Node { return []Node{n.Child} }
func (n UnaryFuncNode) Is(k NodeKind, tag any) bool {
	if k != KindUnaryFunc {
		return false
	}
	t, ok := tag.(UnaryFunction)
	return ok && (t == AnyUnaryFunction || t == n.Fn)
}
func (UnaryFuncNode) IsValid() bool { return true }
func (n UnaryFuncNode) Hash() NodeHash {
	return hashNode(KindUnaryFunc, fmt.Sprintf("%d", n.Fn), n.Child.Hash())
}
func (n UnaryFuncNode) Equal(other Node) bool {
	o, ok := other.(UnaryFuncNode)
	return ok && o.Fn == n.Fn && o.Child.Equal(n.Child)
}
func (n UnaryFuncNode) String() string { return n.Fn.Symbol() }

// BinaryFuncNode applies a named two-argument function to two children.
type BinaryFuncNode struct {
	Fn          BinaryFunction
	Left, Right Node
}

func (BinaryFuncNode) Kind() NodeKind { return KindBinaryFunc }
func (n BinaryFuncNode) Children() []Node { return []Node{n.Left, n.Right} }
func (n BinaryFuncNode) Is(k NodeKind, tag any) bool {
	if k != KindBinaryFunc {
		return false
	}
	t, ok := tag.(BinaryFunction)
	return ok && (t == AnyBinaryFunction || t == n.Fn)
}
func (BinaryFuncNode) IsValid() bool { return true }
func (n BinaryFuncNode) Hash() NodeHash {
	return hashNode(KindBinaryFunc, fmt.Sprintf("%d", n.Fn), n.Left.Hash(), n.Right.Hash())
}
func (n BinaryFuncNode) Equal(other Node) bool {
	o, ok := other.(BinaryFuncNode)
	return ok && o.Fn == n.Fn && o.Left.Equal(n.Left) && o.Right.Equal(n.Right)
}
func (n BinaryFuncNode) String() string { return n.Fn.Symbol() }

// ConditionalNode is the ternary if(cond, then, else).
type ConditionalNode struct {
	Cond, Then, Else Node
}

func (ConditionalNode) Kind() NodeKind { return KindConditional }
func (n ConditionalNode) Children() []Node { return []Node{n.Cond, n.Then, n.Else} }
func (n ConditionalNode) Is(k NodeKind, tag any) bool {
	if k != KindConditional {
		return false
	}
	t, ok := tag.(Conditional)
	return ok && (t == AnyConditional || t == CondIf)
}
func (ConditionalNode) IsValid() bool { return true }
func (n ConditionalNode) Hash() NodeHash {
	return hashNode(KindConditional, "if", n.Cond.Hash(), n.Then.Hash(), n.Else.Hash())
}
func (n ConditionalNode) Equal(other Node) bool {
	o, ok := other.(ConditionalNode)
	return ok && o.Cond.Equal(n.Cond) && o.Then.Equal(n.Then) && o.Else.Equal(n.Else)
}
func (n ConditionalNode) String() string { return "if" }

// IntPowerNode is the canonical post-simplification form of x^n for signed
// integer n, distinct from the general pow(x, b) binary-function form.
type IntPowerNode struct {
	Child    Node
	Exponent int
}

func (IntPowerNode) Kind() NodeKind { return KindIntPower }
func (n IntPowerNode) Children() []Node { return []Node{n.Child} }
func (n IntPowerNode) Is(k NodeKind, tag any) bool { return k == KindIntPower }
func (IntPowerNode) IsValid() bool { return true }
func (n IntPowerNode) Hash() NodeHash {
	return hashNode(KindIntPower, fmt.Sprintf("%d", n.Exponent), n.Child.Hash())
}
func (n IntPowerNode) Equal(other Node) bool {
	o, ok := other.(IntPowerNode)
	return ok && o.Exponent == n.Exponent && o.Child.Equal(n.Child)
}
func (n IntPowerNode) String() string { return fmt.Sprintf("^%d", n.Exponent) }
