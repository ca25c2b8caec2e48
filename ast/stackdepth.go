package ast

import "github.com/dekarrin/mathexpr/internal/merr"

// StackDepth computes the peak evaluation-stack depth of n (§4.6),
// required before any stack-based lowering (bytecode, native JIT). It walks
// the tree maintaining a (current, maximum) pair of signed integers:
//
//   - leaves: current += 1
//   - unary op/func and integer-power: current unchanged
//   - binary op/func: current -= 1
//   - multinary with k children: current -= k - 1
//   - conditional(c, t, e): the two branches must agree on their net stack
//     effect, or this returns an ErrLowering-wrapped "malformed conditional"
//     error.
//
// The returned peak is the maximum of current observed at any point during
// the walk.
func StackDepth(n Node) (peak int, err error) {
	_, peak, err = stackDepth(n, 0, 0)
	return peak, err
}

func stackDepth(n Node, current, maximum int) (newCurrent, newMax int, err error) {
	if !n.IsValid() {
		return 0, 0, merr.Lowering("cannot compute stack depth of an empty node")
	}

	switch n.Kind() {
	case KindNumber, KindRef, KindArrayRef, KindSymbol, KindLocalVar:
		current++
		if current > maximum {
			maximum = current
		}
		return current, maximum, nil

	case KindUnaryOp, KindUnaryFunc, KindIntPower:
		current, maximum, err = stackDepth(n.Children()[0], current, maximum)
		return current, maximum, err

	case KindBinaryOp, KindBinaryFunc:
		children := n.Children()
		current, maximum, err = stackDepth(children[0], current, maximum)
		if err != nil {
			return 0, 0, err
		}
		current, maximum, err = stackDepth(children[1], current, maximum)
		if err != nil {
			return 0, 0, err
		}
		current--
		if current > maximum {
			maximum = current
		}
		return current, maximum, nil

	case KindMultinary:
		children := n.Children()
		for _, c := range children {
			current, maximum, err = stackDepth(c, current, maximum)
			if err != nil {
				return 0, 0, err
			}
		}
		current -= len(children) - 1
		if current > maximum {
			maximum = current
		}
		return current, maximum, nil

	case KindConditional:
		cond := n.(ConditionalNode)
		current, maximum, err = stackDepth(cond.Cond, current, maximum)
		if err != nil {
			return 0, 0, err
		}
		current--
		if current > maximum {
			maximum = current
		}

		thenCur, thenMax, err := stackDepth(cond.Then, current, maximum)
		if err != nil {
			return 0, 0, err
		}
		elseCur, elseMax, err := stackDepth(cond.Else, current, maximum)
		if err != nil {
			return 0, 0, err
		}
		if thenCur != elseCur {
			return 0, 0, merr.Lowering("malformed conditional: then/else branches leave different net stack depth")
		}

		maximum = thenMax
		if elseMax > maximum {
			maximum = elseMax
		}
		return thenCur, maximum, nil

	default:
		return 0, 0, merr.Unsupported("stack depth analysis: unhandled node kind")
	}
}
