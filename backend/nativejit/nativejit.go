// Package nativejit implements the abstract register-allocating lowering
// contract of §4.8. §1 places the choice of a concrete native-code
// generator (SLJIT, libjit, GNU Lightning) out of scope as an external
// collaborator unavailable in the retrieved pack, so this package
// satisfies the lowering rules one-to-one as a pure-Go interpreter over
// the same abstract machine (two logical registers, a spill stack) rather
// than emitting host machine code — see DESIGN.md's Open Question
// resolution.
package nativejit

import (
	"fmt"

	"github.com/dekarrin/mathexpr/ast"
	"github.com/dekarrin/mathexpr/eval"
	"github.com/dekarrin/mathexpr/internal/merr"
)

// instrKind enumerates the abstract machine's operations, one per §4.8
// lowering rule.
type instrKind int

const (
	iLeafImm instrKind = iota
	iLeafVar
	iUnaryOp
	iBinaryOp
	iMultinaryStep // fold FR1 into FR0 with the given multinary operator
	iUnaryFunc
	iBinaryFunc
	iIntPower
	iBranchIfZero // branch to target if FR0 == 0
	iJump
	iSpillPush     // push FR0, increment logical SP (leaf load's pre-step)
	iSpillPop      // pop spill into FR1, decrement logical SP
	iSpillPopToFR0 // pop spill into FR0 (discarding FR0), decrement logical SP
)

type instr struct {
	kind    instrKind
	operand int // immediate index / variable index / operator-or-fn tag / exponent / jump target
}

// Code is a compiled, callable function: the host-facing analogue of the
// "callable () -> Real" the native back-end must produce per §4.8. It
// owns a []instr buffer (standing in for a native code buffer) and a
// captured slice of bound providers (standing in for baked-in absolute
// addresses); both are released by Close.
type Code struct {
	instrs    []instr
	immediate []ast.Real
	providers []ast.Node // captured once at Compile time, per §4.8's "addresses baked into the code"
	frameSize int
	closed    bool
}

// Compile lowers fn's root per §4.8's two-register + spill-stack model.
func Compile(fn *ast.Function) (*Code, error) {
	peak, err := ast.StackDepth(fn.Root)
	if err != nil {
		return nil, err
	}

	c := &compiler{}
	if err := c.lower(fn.Root); err != nil {
		return nil, err
	}

	return &Code{
		instrs:    c.instrs,
		immediate: c.immediate,
		providers: c.providers,
		frameSize: peak,
	}, nil
}

type compiler struct {
	instrs    []instr
	immediate []ast.Real
	providers []ast.Node
}

func (c *compiler) emit(k instrKind, operand int) {
	c.instrs = append(c.instrs, instr{kind: k, operand: operand})
}

// lower implements §4.8's rules one for one: a leaf spills the current
// FR0 then loads; a binary form lowers left then right (right ends up in
// FR0, left stays spilled), pops the spilled left value into FR1, and
// applies FR0 := op(FR1, FR0); a multinary repeats the pop/apply step once
// per additional child.
func (c *compiler) lower(n ast.Node) error {
	if !n.IsValid() {
		return merr.Lowering("cannot lower an empty node")
	}

	switch v := n.(type) {
	case ast.NumberNode:
		c.emit(iSpillPush, 0)
		c.emit(iLeafImm, c.internImmediate(v.Value))

	case ast.RefNode, ast.ArrayRefNode:
		c.emit(iSpillPush, 0)
		c.emit(iLeafVar, c.internProvider(n))

	case ast.SymbolNode:
		return merr.Lowering("cannot lower unbound symbol " + v.Name)

	case ast.LocalVarNode:
		return merr.Unsupported("native JIT lowering of local variables is not implemented")

	case ast.UnaryOpNode:
		if err := c.lower(v.Child); err != nil {
			return err
		}
		c.emit(iUnaryOp, int(v.Op))

	case ast.BinaryOpNode:
		if v.Op == ast.OpAssign || v.Op == ast.OpListSep {
			return merr.Unsupported("native JIT lowering of " + v.Op.Symbol() + " is not implemented")
		}
		if err := c.lowerBinaryShape(v.Left, v.Right); err != nil {
			return err
		}
		c.emit(iBinaryOp, int(v.Op))

	case ast.MultinaryNode:
		if v.Op != ast.OpAdd && v.Op != ast.OpMul {
			return merr.Unsupported("native JIT lowering of " + v.Op.Symbol() + " multinary is not implemented")
		}
		if err := c.lower(v.Items[0]); err != nil {
			return err
		}
		for _, child := range v.Items[1:] {
			if err := c.lower(child); err != nil {
				return err
			}
			c.emit(iSpillPop, 0)
			c.emit(iMultinaryStep, int(v.Op))
		}

	case ast.UnaryFuncNode:
		if !v.Fn.Implemented() {
			return merr.Unsupported("native JIT lowering of " + v.Fn.Symbol() + " is not implemented")
		}
		if err := c.lower(v.Child); err != nil {
			return err
		}
		c.emit(iUnaryFunc, int(v.Fn))

	case ast.BinaryFuncNode:
		if !v.Fn.Implemented() {
			return merr.Unsupported("native JIT lowering of " + v.Fn.Symbol() + " is not implemented")
		}
		if err := c.lowerBinaryShape(v.Left, v.Right); err != nil {
			return err
		}
		c.emit(iBinaryFunc, int(v.Fn))

	case ast.ConditionalNode:
		if err := c.lowerConditional(v); err != nil {
			return err
		}

	case ast.IntPowerNode:
		if err := c.lower(v.Child); err != nil {
			return err
		}
		c.emit(iIntPower, v.Exponent)

	default:
		return merr.Unsupported("native JIT lowering: unhandled node kind")
	}
	return nil
}

// lowerBinaryShape lowers left then right, then pops the spilled left
// value back into position so the caller's op instruction sees
// (left, right) as (popped-spill, FR0).
func (c *compiler) lowerBinaryShape(left, right ast.Node) error {
	if err := c.lower(left); err != nil {
		return err
	}
	if err := c.lower(right); err != nil {
		return err
	}
	c.emit(iSpillPop, 0)
	return nil
}

func (c *compiler) lowerConditional(v ast.ConditionalNode) error {
	if err := c.lower(v.Cond); err != nil {
		return err
	}
	branchIdx := len(c.instrs)
	c.emit(iBranchIfZero, -1)

	// The condition has been tested; consume it by restoring the spill
	// slot its own leading leaf push saved, mirroring bytecode's sp--
	// after OpConditional pops the condition (backend/bytecode/bytecode.go).
	// Both arms below run this restore exactly once, so the conditional
	// as a whole nets +1 on the spill stack like any other subtree,
	// instead of +2.
	c.emit(iSpillPopToFR0, 0)

	if err := c.lower(v.Then); err != nil {
		return err
	}
	jumpIdx := len(c.instrs)
	c.emit(iJump, -1)

	elseStart := len(c.instrs)
	c.instrs[branchIdx].operand = elseStart

	c.emit(iSpillPopToFR0, 0)
	if err := c.lower(v.Else); err != nil {
		return err
	}
	c.instrs[jumpIdx].operand = len(c.instrs)
	return nil
}

func (c *compiler) internImmediate(v ast.Real) int {
	c.immediate = append(c.immediate, v)
	return len(c.immediate) - 1
}

func (c *compiler) internProvider(n ast.Node) int {
	for i, existing := range c.providers {
		if ast.SameProvider(existing, n) {
			return i
		}
	}
	c.providers = append(c.providers, n)
	return len(c.providers) - 1
}

// Eval executes the compiled code: FR0/FR1 are Go locals, the spill stack
// is a pre-sized slice, exactly per §4.8's abstract model.
func (c *Code) Eval() ast.Real {
	var fr0, fr1 ast.Real
	spill := make([]ast.Real, c.frameSize)
	sp := -1
	ip := 0

	for ip < len(c.instrs) {
		in := c.instrs[ip]
		switch in.kind {
		case iSpillPush:
			sp++
			spill[sp] = fr0

		case iSpillPop:
			fr1 = spill[sp]
			sp--

		case iSpillPopToFR0:
			fr0 = spill[sp]
			sp--

		case iLeafImm:
			fr0 = c.immediate[in.operand]

		case iLeafVar:
			v, err := eval.Eval(c.providers[in.operand])
			if err != nil {
				panic(evalPanic{err})
			}
			fr0 = v

		case iUnaryOp:
			v, err := eval.ApplyUnaryOp(ast.UnaryOperator(in.operand), fr0)
			if err != nil {
				panic(evalPanic{err})
			}
			fr0 = v

		case iBinaryOp:
			v, err := eval.ApplyBinaryOp(ast.BinaryOperator(in.operand), fr1, fr0)
			if err != nil {
				panic(evalPanic{err})
			}
			fr0 = v

		case iMultinaryStep:
			switch ast.MultinaryOperator(in.operand) {
			case ast.OpAdd:
				fr0 = fr1 + fr0
			case ast.OpMul:
				fr0 = fr1 * fr0
			}

		case iUnaryFunc:
			v, err := eval.ApplyUnaryFunc(ast.UnaryFunction(in.operand), fr0)
			if err != nil {
				panic(evalPanic{err})
			}
			fr0 = v

		case iBinaryFunc:
			v, err := eval.ApplyBinaryFunc(ast.BinaryFunction(in.operand), fr1, fr0)
			if err != nil {
				panic(evalPanic{err})
			}
			fr0 = v

		case iIntPower:
			fr0 = eval.IntPow(fr0, in.operand)

		case iBranchIfZero:
			if fr0 == 0 {
				ip = in.operand
				continue
			}

		case iJump:
			ip = in.operand
			continue

		default:
			panic(evalPanic{merr.Lowering("native JIT: unknown instruction")})
		}
		ip++
	}

	return fr0
}

// evalPanic carries an evaluation-time error across Eval's frame, since
// the Evaluator interface's Eval() has no error return (§4.8 specifies a
// callable "() -> Real" with no error channel); Close still returns any
// resource-release error normally.
type evalPanic struct{ err error }

func (p evalPanic) String() string { return fmt.Sprintf("nativejit: %v", p.err) }

// Close releases the code buffer. A Code must not be used after Close.
func (c *Code) Close() error {
	c.closed = true
	c.instrs = nil
	c.immediate = nil
	c.providers = nil
	return nil
}
