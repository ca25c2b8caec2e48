// Package parser implements the shunting-yard translator from token stream
// to ast.Function (§4.2), grounded on internal/tunascript/parser.go's
// hand-rolled precedence-climbing style but operating over the three
// explicit stacks (output/operator/argument-count) the specification calls
// for rather than a recursive-descent nud/led dispatch.
package parser

import (
	"fmt"

	"github.com/dekarrin/mathexpr/ast"
	"github.com/dekarrin/mathexpr/internal/merr"
	"github.com/dekarrin/mathexpr/lexer"
)

// Option configures a Parser before it runs; used to register value
// providers and named constants that symbols resolve against.
type Option func(*Parser)

// WithProvider registers name as a scalar reference to addr: every
// occurrence of name resolves to an ast.RefNode borrowing addr.
func WithProvider(name string, addr *ast.Real) Option {
	return func(p *Parser) {
		p.providers[name] = ast.RefNode{Addr: addr, Name: name}
	}
}

// WithArrayProvider registers name as an indexed reference into base at
// *index: every occurrence of name resolves to an ast.ArrayRefNode.
func WithArrayProvider(name string, base []ast.Real, index *int) Option {
	return func(p *Parser) {
		p.providers[name] = ast.ArrayRefNode{Base: base, Index: index, Name: name}
	}
}

// WithConstant registers name as a fixed number, folded in as an
// ast.NumberNode at parse time (so it participates in Simplify's constant
// folding like any literal).
func WithConstant(name string, v ast.Real) Option {
	return func(p *Parser) {
		p.constants[name] = v
	}
}

// Parser holds the shunting-yard state for a single call to Parse: the
// provider/constant registries are configured up front via Option, the
// local-variable table is populated lazily as unrecognised symbols are
// encountered.
type Parser struct {
	providers map[string]ast.Node
	constants map[string]ast.Real

	locals     map[string]int
	localNames []string

	text string
}

// Parse translates text into a Function. Symbols are resolved, in order,
// against registered providers, then registered constants, then allocated
// as a fresh function-local slot (§4.2's symbol-resolution rule).
func Parse(text string, opts ...Option) (*ast.Function, error) {
	p := &Parser{
		providers: map[string]ast.Node{},
		constants: map[string]ast.Real{},
		locals:    map[string]int{},
		text:      text,
	}
	for _, o := range opts {
		o(p)
	}

	root, err := p.run()
	if err != nil {
		return nil, err
	}

	fn := ast.NewFunction(root)
	for name, node := range p.providers {
		fn.Providers[name] = node
	}
	fn.Locals = make([]ast.Real, len(p.localNames))
	return fn, nil
}

type itemTag int

const (
	tagUnary itemTag = iota
	tagBinary
	tagMultinary
	tagFunction
	tagBracket
)

// stackItem is one entry on the operator stack: either a resolved
// operator tag, a pending function call, or an open bracket acting as a
// barrier for the precedence-driven pop loop.
type stackItem struct {
	tag itemTag

	unary ast.UnaryOperator
	binOp ast.BinaryOperator
	multi ast.MultinaryOperator

	fnName string

	bracket lexer.BracketKind

	pos int
}

func (it stackItem) isOperator() bool {
	return it.tag == tagUnary || it.tag == tagBinary || it.tag == tagMultinary
}

func (it stackItem) precedence() int {
	switch it.tag {
	case tagUnary:
		return it.unary.Precedence()
	case tagBinary:
		return it.binOp.Precedence()
	case tagMultinary:
		return it.multi.Precedence()
	default:
		return -1
	}
}

// run drives the shunting-yard loop described in §4.2's token-action table.
func (p *Parser) run() (ast.Node, error) {
	tz := lexer.New(p.text)

	var output []ast.Node
	var ops []stackItem
	var argCounts []int

	// afterOperand is true when the previously consumed token could end an
	// expression (number, symbol, closing bracket) — i.e. the position we
	// are about to fill is a binary-operator position, not a term start.
	afterOperand := false
	// justOpened is true immediately after pushing an opening bracket, with
	// no token consumed since, used to detect the empty-argument-list case.
	justOpened := false

tokenLoop:
	for {
		tok := tz.Next()

		switch tok.Kind {
		case lexer.KindEnd:
			break tokenLoop

		case lexer.KindNumber:
			if afterOperand {
				return nil, p.errAt(tok.Pos, "unexpected number (missing operator)")
			}
			output = append(output, ast.NumberNode{Value: tok.Number})
			afterOperand = true
			justOpened = false

		case lexer.KindSymbol:
			if afterOperand {
				return nil, p.errAt(tok.Pos, "unexpected symbol %q (missing operator)", tok.Name)
			}
			output = append(output, p.resolveSymbol(tok.Name))
			afterOperand = true
			justOpened = false

		case lexer.KindFunction:
			if afterOperand {
				return nil, p.errAt(tok.Pos, "unexpected function %q (missing operator)", tok.Name)
			}
			if _, ok := ast.Arity(tok.Name); !ok {
				return nil, p.errAt(tok.Pos, "unknown function %q", tok.Name)
			}
			ops = append(ops, stackItem{tag: tagFunction, fnName: tok.Name, pos: tok.Pos})
			argCounts = append(argCounts, 1)
			afterOperand = false
			justOpened = false

		case lexer.KindBracket:
			if tok.Opening {
				if afterOperand {
					return nil, p.errAt(tok.Pos, "unexpected %q (missing operator)", "(")
				}
				ops = append(ops, stackItem{tag: tagBracket, bracket: tok.Bracket, pos: tok.Pos})
				afterOperand = false
				justOpened = true
				continue
			}

			if justOpened {
				if err := p.closeEmptyPair(tok, &ops, &argCounts, &output); err != nil {
					return nil, err
				}
			} else {
				if !afterOperand {
					return nil, p.errAt(tok.Pos, "closing bracket cannot immediately follow an operator or comma")
				}
				if err := p.closePair(tok, &ops, &argCounts, &output); err != nil {
					return nil, err
				}
			}
			afterOperand = true
			justOpened = false

		case lexer.KindComma:
			for {
				if len(ops) == 0 || ops[len(ops)-1].tag == tagBracket {
					break
				}
				if err := p.reduceTop(&ops, &output); err != nil {
					return nil, err
				}
			}
			if len(ops) == 0 {
				return nil, p.errAt(tok.Pos, "comma outside of a function call")
			}
			if len(argCounts) == 0 {
				return nil, p.errAt(tok.Pos, "comma outside of a function call")
			}
			argCounts[len(argCounts)-1]++
			afterOperand = false
			justOpened = false

		case lexer.KindOperator:
			cur, err := p.resolveOperator(tok, afterOperand)
			if err != nil {
				return nil, err
			}
			for len(ops) > 0 && ops[len(ops)-1].isOperator() && shouldPop(ops[len(ops)-1], cur) {
				if err := p.reduceTop(&ops, &output); err != nil {
					return nil, err
				}
			}
			ops = append(ops, cur)
			afterOperand = false
			justOpened = false

		case lexer.KindInvalid:
			return nil, p.errAt(tok.Pos, "invalid character %q", tok.Invalid)

		default:
			return nil, p.errAt(tok.Pos, "unexpected token %s", tok.String())
		}
	}

	for len(ops) > 0 {
		top := ops[len(ops)-1]
		if top.tag == tagBracket {
			return nil, p.errAt(top.pos, "unmatched opening bracket")
		}
		if top.tag == tagFunction {
			return nil, p.errAt(top.pos, "unmatched function call")
		}
		if err := p.reduceTop(&ops, &output); err != nil {
			return nil, err
		}
	}

	if len(output) == 0 {
		return nil, p.errAt(len(p.text), "empty expression")
	}
	if len(output) != 1 {
		return nil, p.errAt(len(p.text), "malformed expression: multiple unconsumed terms")
	}
	return output[0], nil
}

// shouldPop implements §4.2's generic pop condition, which depends only on
// the stack top's own properties (left-associative vs. unary), not on the
// incoming operator's kind.
func shouldPop(top, cur stackItem) bool {
	if top.tag == tagUnary {
		return top.precedence() < cur.precedence()
	}
	return top.precedence() <= cur.precedence()
}

// reduceTop pops one operator from ops and pushes its result node built
// from the top of output.
func (p *Parser) reduceTop(ops *[]stackItem, output *[]ast.Node) error {
	n := len(*ops)
	it := (*ops)[n-1]
	*ops = (*ops)[:n-1]

	switch it.tag {
	case tagUnary:
		child, err := popN(output, 1, it.pos, it.unary.Symbol())
		if err != nil {
			return err
		}
		*output = append(*output, ast.UnaryOpNode{Op: it.unary, Child: child[0]})

	case tagBinary:
		args, err := popN(output, 2, it.pos, it.binOp.Symbol())
		if err != nil {
			return err
		}
		*output = append(*output, ast.BinaryOpNode{Op: it.binOp, Left: args[0], Right: args[1]})

	case tagMultinary:
		args, err := popN(output, 2, it.pos, it.multi.Symbol())
		if err != nil {
			return err
		}
		*output = append(*output, ast.NewMultinary(it.multi, args[0], args[1]))

	default:
		return p.errAt(it.pos, "internal parser error: unexpected stack item")
	}
	return nil
}

// popN pops the last n nodes off output, in source order. A short stack
// here would mean the precedence/arity bookkeeping above has a bug, not a
// user-facing syntax error, so this reports it as a plain error.
func popN(output *[]ast.Node, n, pos int, sym string) ([]ast.Node, error) {
	if len(*output) < n {
		return nil, fmt.Errorf("internal parser error: missing operand(s) for %q at position %d", sym, pos)
	}
	start := len(*output) - n
	args := append([]ast.Node(nil), (*output)[start:]...)
	*output = (*output)[:start]
	return args, nil
}

// closeEmptyPair handles a closing bracket with no tokens since its
// matching opening bracket (§4.2's empty-argument-list detection). Every
// such pair is an error: after a function name it reports the function's
// required argument count, and a 0-arity call is rejected as unsupported.
func (p *Parser) closeEmptyPair(tok lexer.Token, ops *[]stackItem, argCounts *[]int, output *[]ast.Node) error {
	top := (*ops)[len(*ops)-1]
	if top.tag != tagBracket || top.bracket != tok.Bracket {
		return p.errAt(tok.Pos, "mismatched closing bracket")
	}
	*ops = (*ops)[:len(*ops)-1]

	if len(*ops) > 0 && (*ops)[len(*ops)-1].tag == tagFunction {
		fnItem := (*ops)[len(*ops)-1]
		*ops = (*ops)[:len(*ops)-1]
		*argCounts = (*argCounts)[:len(*argCounts)-1]

		n, _ := ast.Arity(fnItem.fnName)
		if n != 0 {
			return p.errAt(fnItem.pos, "function %q requires %d argument(s), got 0", fnItem.fnName, n)
		}
		return p.errAt(fnItem.pos, "zero-arity functions are not supported")
	}

	return p.errAt(tok.Pos, "empty parentheses are not a valid expression")
}

// closePair pops to output until the matching opening bracket, then emits
// a function call node if a function was waiting behind that bracket.
func (p *Parser) closePair(tok lexer.Token, ops *[]stackItem, argCounts *[]int, output *[]ast.Node) error {
	for {
		if len(*ops) == 0 {
			return p.errAt(tok.Pos, "unmatched closing bracket")
		}
		top := (*ops)[len(*ops)-1]
		if top.tag == tagBracket {
			if top.bracket != tok.Bracket {
				return p.errAt(tok.Pos, "mismatched bracket kind")
			}
			*ops = (*ops)[:len(*ops)-1]
			break
		}
		if err := p.reduceTop(ops, output); err != nil {
			return err
		}
	}

	if len(*ops) > 0 && (*ops)[len(*ops)-1].tag == tagFunction {
		fnItem := (*ops)[len(*ops)-1]
		*ops = (*ops)[:len(*ops)-1]
		argc := (*argCounts)[len(*argCounts)-1]
		*argCounts = (*argCounts)[:len(*argCounts)-1]

		node, err := p.buildCall(fnItem, argc, output)
		if err != nil {
			return err
		}
		*output = append(*output, node)
	}
	return nil
}

func (p *Parser) buildCall(item stackItem, argc int, output *[]ast.Node) (ast.Node, error) {
	n, ok := ast.Arity(item.fnName)
	if !ok {
		return nil, p.errAt(item.pos, "internal parser error: unknown function %q", item.fnName)
	}
	if argc != n {
		return nil, p.errAt(item.pos, "function %q expects %d argument(s), got %d", item.fnName, n, argc)
	}

	args, err := popN(output, n, item.pos, item.fnName)
	if err != nil {
		return nil, err
	}

	if item.fnName == "if" {
		return ast.ConditionalNode{Cond: args[0], Then: args[1], Else: args[2]}, nil
	}
	if fn, ok := ast.UnaryFunctionByName(item.fnName); ok {
		return ast.UnaryFuncNode{Fn: fn, Child: args[0]}, nil
	}
	if fn, ok := ast.BinaryFunctionByName(item.fnName); ok {
		return ast.BinaryFuncNode{Fn: fn, Left: args[0], Right: args[1]}, nil
	}
	return nil, p.errAt(item.pos, "internal parser error: unresolvable function %q", item.fnName)
}

// resolveOperator implements §4.2's operator preprocessing: in a term-start
// position only '+'/'-'/'!'/'~' are legal, rewritten to their unary forms;
// in a binary position every catalog spelling resolves to its binary or
// multinary tag ('+', '*', ';' are multinary per §3.2).
func (p *Parser) resolveOperator(tok lexer.Token, afterOperand bool) (stackItem, error) {
	sym := tok.Operator

	if !afterOperand {
		switch sym {
		case "+":
			return stackItem{tag: tagUnary, unary: ast.UnaryPlus, pos: tok.Pos}, nil
		case "-":
			return stackItem{tag: tagUnary, unary: ast.UnaryMinus, pos: tok.Pos}, nil
		case "!":
			return stackItem{tag: tagUnary, unary: ast.UnaryFaculty, pos: tok.Pos}, nil
		case "~":
			return stackItem{tag: tagUnary, unary: ast.UnaryNot, pos: tok.Pos}, nil
		default:
			return stackItem{}, p.errAt(tok.Pos, "operator %q cannot begin an expression", sym)
		}
	}

	switch sym {
	case "+":
		return stackItem{tag: tagMultinary, multi: ast.OpAdd, pos: tok.Pos}, nil
	case "*":
		return stackItem{tag: tagMultinary, multi: ast.OpMul, pos: tok.Pos}, nil
	case ";":
		return stackItem{tag: tagMultinary, multi: ast.OpList, pos: tok.Pos}, nil
	case "-":
		return stackItem{tag: tagBinary, binOp: ast.OpSub, pos: tok.Pos}, nil
	case "/":
		return stackItem{tag: tagBinary, binOp: ast.OpDiv, pos: tok.Pos}, nil
	case "%":
		return stackItem{tag: tagBinary, binOp: ast.OpMod, pos: tok.Pos}, nil
	case "^":
		return stackItem{tag: tagBinary, binOp: ast.OpPow, pos: tok.Pos}, nil
	case "<":
		return stackItem{tag: tagBinary, binOp: ast.OpLt, pos: tok.Pos}, nil
	case ">":
		return stackItem{tag: tagBinary, binOp: ast.OpGt, pos: tok.Pos}, nil
	case "<=":
		return stackItem{tag: tagBinary, binOp: ast.OpLe, pos: tok.Pos}, nil
	case ">=":
		return stackItem{tag: tagBinary, binOp: ast.OpGe, pos: tok.Pos}, nil
	case "==":
		return stackItem{tag: tagBinary, binOp: ast.OpEq, pos: tok.Pos}, nil
	case "!=":
		return stackItem{tag: tagBinary, binOp: ast.OpNe, pos: tok.Pos}, nil
	case ":=":
		return stackItem{tag: tagBinary, binOp: ast.OpAssign, pos: tok.Pos}, nil
	case "&":
		return stackItem{tag: tagBinary, binOp: ast.OpAnd, pos: tok.Pos}, nil
	case "|":
		return stackItem{tag: tagBinary, binOp: ast.OpOr, pos: tok.Pos}, nil
	default:
		return stackItem{}, p.errAt(tok.Pos, "operator %q cannot follow an expression", sym)
	}
}

// resolveSymbol implements §4.2's symbol-resolution rule: provider, then
// constant, then a freshly (or previously) allocated local-variable slot.
func (p *Parser) resolveSymbol(name string) ast.Node {
	if n, ok := p.providers[name]; ok {
		return n
	}
	if v, ok := p.constants[name]; ok {
		return ast.NumberNode{Value: v}
	}
	slot, ok := p.locals[name]
	if !ok {
		slot = len(p.localNames)
		p.locals[name] = slot
		p.localNames = append(p.localNames, name)
	}
	return ast.LocalVarNode{Slot: slot, Name: name}
}

func (p *Parser) errAt(pos int, format string, args ...any) error {
	return syntaxErrorAt(p.text, pos, fmt.Sprintf(format, args...))
}

// Unwrap lets SyntaxError participate in errors.Is(err, merr.ErrSyntax)
// without losing its caret-diagram fields.
func (se SyntaxError) Unwrap() error { return merr.ErrSyntax }
