// Package bytecode compiles an AST into a linear instruction stream for a
// software stack machine and executes it, per §4.7. It is the toolkit's
// baseline back-end: always registered, always correct, never requiring an
// external compiler.
package bytecode

import (
	"math"
	"strconv"

	"github.com/dekarrin/mathexpr/ast"
	"github.com/dekarrin/mathexpr/eval"
	"github.com/dekarrin/mathexpr/internal/merr"
	"github.com/dekarrin/mathexpr/internal/render"
)

// Opcode identifies one bytecode instruction. Unary- and binary-function
// dispatch is merged into two generic opcodes (OpUnaryFunc/OpBinaryFunc)
// carrying the catalog tag as their Operand, rather than one opcode
// constant per named function (34 unary + 7 binary entries) — execution is
// identical either way, since both forms dispatch through
// eval.ApplyUnaryFunc/ApplyBinaryFunc; see DESIGN.md.
type Opcode int

const (
	OpLoadImm Opcode = iota
	OpLoadVar
	OpUnaryOp
	OpBinaryOp
	OpAdd2
	OpAdd3
	OpAddN
	OpMul2
	OpMul3
	OpMulN
	OpUnaryFunc
	OpBinaryFunc
	OpPow2
	OpPow3
	OpPow4
	OpPow5
	OpIntegerPower
	OpConditional
	OpJump
	OpFetch
)

func (op Opcode) String() string {
	switch op {
	case OpLoadImm:
		return "load_imm"
	case OpLoadVar:
		return "load_var"
	case OpUnaryOp:
		return "uo"
	case OpBinaryOp:
		return "bo"
	case OpAdd2:
		return "add2"
	case OpAdd3:
		return "add3"
	case OpAddN:
		return "mo_add"
	case OpMul2:
		return "mul2"
	case OpMul3:
		return "mul3"
	case OpMulN:
		return "mo_mul"
	case OpUnaryFunc:
		return "uf"
	case OpBinaryFunc:
		return "bf"
	case OpPow2:
		return "pow2"
	case OpPow3:
		return "pow3"
	case OpPow4:
		return "pow4"
	case OpPow5:
		return "pow5"
	case OpIntegerPower:
		return "integer_power"
	case OpConditional:
		return "conditional"
	case OpJump:
		return "jump"
	case OpFetch:
		return "fetch"
	default:
		return "???"
	}
}

// Instr is one instruction: an opcode plus its single integer operand
// (immediate/variable table index, function/operator tag, jump target,
// exponent, or fetch depth — meaning depends on Op).
type Instr struct {
	Op      Opcode
	Operand int
}

// Program is a compiled, linear instruction stream ready to Run.
type Program struct {
	instructions []Instr
	immediates   []ast.Real
	variables    []ast.Node // RefNode/ArrayRefNode, snapshotted at Run
	peakDepth    int
}

// Compile lowers fn's root per §4.7's instruction set and deduplication
// rules.
func Compile(fn *ast.Function) (*Program, error) {
	peak, err := ast.StackDepth(fn.Root)
	if err != nil {
		return nil, err
	}

	c := &compiler{}
	if err := c.emit(fn.Root); err != nil {
		return nil, err
	}

	return &Program{
		instructions: c.instructions,
		immediates:   c.immediates,
		variables:    c.variables,
		peakDepth:    peak,
	}, nil
}

type compiler struct {
	instructions []Instr
	immediates   []ast.Real
	variables    []ast.Node
}

func (c *compiler) push(i Instr) { c.instructions = append(c.instructions, i) }

// internImmediate deduplicates by bit pattern, scanning existing
// immediates and reusing the slot on a match, per §4.7's lowering rule.
func (c *compiler) internImmediate(v ast.Real) int {
	for i, existing := range c.immediates {
		if math.Float64bits(existing) == math.Float64bits(v) {
			return i
		}
	}
	c.immediates = append(c.immediates, v)
	return len(c.immediates) - 1
}

// internVariable deduplicates by provider identity (pointer/index
// equality via ast.SameProvider), per §4.7's lowering rule.
func (c *compiler) internVariable(n ast.Node) int {
	for i, existing := range c.variables {
		if ast.SameProvider(existing, n) {
			return i
		}
	}
	c.variables = append(c.variables, n)
	return len(c.variables) - 1
}

func (c *compiler) emit(n ast.Node) error {
	if !n.IsValid() {
		return merr.Lowering("cannot lower an empty node")
	}

	switch v := n.(type) {
	case ast.NumberNode:
		c.push(Instr{Op: OpLoadImm, Operand: c.internImmediate(v.Value)})

	case ast.RefNode:
		c.push(Instr{Op: OpLoadVar, Operand: c.internVariable(n)})

	case ast.ArrayRefNode:
		c.push(Instr{Op: OpLoadVar, Operand: c.internVariable(n)})

	case ast.SymbolNode:
		return merr.Lowering("cannot lower unbound symbol " + v.Name)

	case ast.LocalVarNode:
		return merr.Unsupported("bytecode lowering of local variables is not implemented")

	case ast.UnaryOpNode:
		if err := c.emit(v.Child); err != nil {
			return err
		}
		c.push(Instr{Op: OpUnaryOp, Operand: int(v.Op)})

	case ast.BinaryOpNode:
		if v.Op == ast.OpAssign || v.Op == ast.OpListSep {
			return merr.Unsupported("bytecode lowering of " + v.Op.Symbol() + " is not implemented")
		}
		if err := c.emit(v.Left); err != nil {
			return err
		}
		if err := c.emit(v.Right); err != nil {
			return err
		}
		c.push(Instr{Op: OpBinaryOp, Operand: int(v.Op)})

	case ast.MultinaryNode:
		if err := c.emitMultinary(v); err != nil {
			return err
		}

	case ast.UnaryFuncNode:
		if !v.Fn.Implemented() {
			return merr.Unsupported("bytecode lowering of " + v.Fn.Symbol() + " is not implemented")
		}
		if err := c.emit(v.Child); err != nil {
			return err
		}
		c.push(Instr{Op: OpUnaryFunc, Operand: int(v.Fn)})

	case ast.BinaryFuncNode:
		if !v.Fn.Implemented() {
			return merr.Unsupported("bytecode lowering of " + v.Fn.Symbol() + " is not implemented")
		}
		if err := c.emit(v.Left); err != nil {
			return err
		}
		if err := c.emit(v.Right); err != nil {
			return err
		}
		c.push(Instr{Op: OpBinaryFunc, Operand: int(v.Fn)})

	case ast.ConditionalNode:
		if err := c.emitConditional(v); err != nil {
			return err
		}

	case ast.IntPowerNode:
		if err := c.emit(v.Child); err != nil {
			return err
		}
		c.emitIntPower(v.Exponent)

	default:
		return merr.Unsupported("bytecode lowering: unhandled node kind")
	}
	return nil
}

func (c *compiler) emitMultinary(v ast.MultinaryNode) error {
	if v.Op != ast.OpAdd && v.Op != ast.OpMul {
		return merr.Unsupported("bytecode lowering of " + v.Op.Symbol() + " multinary is not implemented")
	}
	for _, child := range v.Items {
		if err := c.emit(child); err != nil {
			return err
		}
	}

	n := len(v.Items)
	switch {
	case v.Op == ast.OpAdd && n == 2:
		c.push(Instr{Op: OpAdd2})
	case v.Op == ast.OpAdd && n == 3:
		c.push(Instr{Op: OpAdd3})
	case v.Op == ast.OpAdd:
		c.push(Instr{Op: OpAddN, Operand: n})
	case v.Op == ast.OpMul && n == 2:
		c.push(Instr{Op: OpMul2})
	case v.Op == ast.OpMul && n == 3:
		c.push(Instr{Op: OpMul3})
	default: // OpMul, n != 2,3
		c.push(Instr{Op: OpMulN, Operand: n})
	}
	return nil
}

// emitConditional emits child-0, a conditional backpatch slot, child-1, a
// jump backpatch slot, child-2, then patches both targets — per §4.7's
// lowering rule.
func (c *compiler) emitConditional(v ast.ConditionalNode) error {
	if err := c.emit(v.Cond); err != nil {
		return err
	}
	condIdx := len(c.instructions)
	c.push(Instr{Op: OpConditional, Operand: -1})

	if err := c.emit(v.Then); err != nil {
		return err
	}
	jumpIdx := len(c.instructions)
	c.push(Instr{Op: OpJump, Operand: -1})

	elseStart := len(c.instructions)
	c.instructions[condIdx].Operand = elseStart

	if err := c.emit(v.Else); err != nil {
		return err
	}
	end := len(c.instructions)
	c.instructions[jumpIdx].Operand = end
	return nil
}

func (c *compiler) emitIntPower(exponent int) {
	switch exponent {
	case 2:
		c.push(Instr{Op: OpPow2})
	case 3:
		c.push(Instr{Op: OpPow3})
	case 4:
		c.push(Instr{Op: OpPow4})
	case 5:
		c.push(Instr{Op: OpPow5})
	default:
		c.push(Instr{Op: OpIntegerPower, Operand: exponent})
	}
}

// Run executes the program against a freshly pre-allocated stack, per
// §4.7's execution model: bound references are snapshotted into a local
// cache once at the start of the call, and the hot loop reads only that
// cache and the immediate/instruction tables — never external memory
// directly — which is also why a Program is not safe for concurrent Run
// calls that race writes to the same referents (§5).
func (p *Program) Run() (ast.Real, error) {
	cache := make([]ast.Real, len(p.variables))
	for i, v := range p.variables {
		val, err := eval.Eval(v)
		if err != nil {
			return 0, err
		}
		cache[i] = val
	}

	stack := make([]ast.Real, p.peakDepth)
	sp := -1
	ip := 0

	for ip < len(p.instructions) {
		instr := p.instructions[ip]
		switch instr.Op {
		case OpLoadImm:
			sp++
			stack[sp] = p.immediates[instr.Operand]

		case OpLoadVar:
			sp++
			stack[sp] = cache[instr.Operand]

		case OpUnaryOp:
			v, err := eval.ApplyUnaryOp(ast.UnaryOperator(instr.Operand), stack[sp])
			if err != nil {
				return 0, err
			}
			stack[sp] = v

		case OpBinaryOp:
			b := stack[sp]
			sp--
			a := stack[sp]
			v, err := eval.ApplyBinaryOp(ast.BinaryOperator(instr.Operand), a, b)
			if err != nil {
				return 0, err
			}
			stack[sp] = v

		case OpAdd2:
			b := stack[sp]
			sp--
			stack[sp] += b

		case OpAdd3:
			c := stack[sp]
			b := stack[sp-1]
			sp -= 2
			stack[sp] += b + c

		case OpAddN:
			n := instr.Operand
			sum := ast.Real(0)
			for i := 0; i < n; i++ {
				sum += stack[sp]
				sp--
			}
			sp++
			stack[sp] = sum

		case OpMul2:
			b := stack[sp]
			sp--
			stack[sp] *= b

		case OpMul3:
			c := stack[sp]
			b := stack[sp-1]
			sp -= 2
			stack[sp] *= b * c

		case OpMulN:
			n := instr.Operand
			prod := ast.Real(1)
			for i := 0; i < n; i++ {
				prod *= stack[sp]
				sp--
			}
			sp++
			stack[sp] = prod

		case OpUnaryFunc:
			v, err := eval.ApplyUnaryFunc(ast.UnaryFunction(instr.Operand), stack[sp])
			if err != nil {
				return 0, err
			}
			stack[sp] = v

		case OpBinaryFunc:
			b := stack[sp]
			sp--
			a := stack[sp]
			v, err := eval.ApplyBinaryFunc(ast.BinaryFunction(instr.Operand), a, b)
			if err != nil {
				return 0, err
			}
			stack[sp] = v

		case OpPow2:
			stack[sp] = eval.IntPow(stack[sp], 2)
		case OpPow3:
			stack[sp] = eval.IntPow(stack[sp], 3)
		case OpPow4:
			stack[sp] = eval.IntPow(stack[sp], 4)
		case OpPow5:
			stack[sp] = eval.IntPow(stack[sp], 5)

		case OpIntegerPower:
			stack[sp] = eval.IntPow(stack[sp], instr.Operand)

		case OpConditional:
			c := stack[sp]
			sp--
			if c == 0 {
				ip = instr.Operand
				continue
			}

		case OpJump:
			ip = instr.Operand
			continue

		case OpFetch:
			v := stack[sp-instr.Operand]
			sp++
			stack[sp] = v

		default:
			return 0, merr.Lowering("bytecode: unknown opcode")
		}
		ip++
	}

	if sp != 0 {
		return 0, merr.Lowering("bytecode: program did not leave exactly one value on the stack")
	}
	return stack[sp], nil
}

// Eval adapts Run to the backend.Evaluator contract (§4.8's "callable ()
// -> Real" has no error channel); a runtime-only failure (e.g. faculty of
// a negative number) panics rather than being silently swallowed.
func (p *Program) Eval() ast.Real {
	v, err := p.Run()
	if err != nil {
		panic(err)
	}
	return v
}

// Close releases the program's resources. A Program holds no externally
// owned resources (unlike backend/csource's dynamic library handle), so
// this is a no-op present only to satisfy backend.Evaluator.
func (p *Program) Close() error { return nil }

// Disassemble renders the program's instruction stream as a table of
// address/opcode/operand, grounded on
// internal/tunascript/grammar.go:1153's rosed.InsertTableOpts idiom — see
// internal/render.DisassemblyTable.
func (p *Program) Disassemble() string {
	rows := make([][]string, len(p.instructions))
	for i, instr := range p.instructions {
		rows[i] = []string{strconv.Itoa(i), instr.Op.String(), formatOperand(instr)}
	}
	return render.DisassemblyTable(rows)
}

func formatOperand(instr Instr) string {
	switch instr.Op {
	case OpAdd2, OpAdd3, OpMul2, OpMul3:
		return ""
	default:
		return strconv.Itoa(instr.Operand)
	}
}
