// Package merr holds the error categories used across the mathexpr toolkit.
// It contains the Error type, which can be created with one or more 'cause'
// errors. Calling errors.Is() on this Error type with an argument consisting
// of any of the errors it has as a cause will return true.
//
// This package also holds the category sentinels from the error-handling
// design: Syntax, Semantics, Unsupported, Lowering and Runtime errors are
// each distinguished by one of the global error values below.
package merr

import "errors"

var (
	// ErrSyntax covers tokenizer/parser failures: unknown operator, unknown
	// function, unexpected token, unmatched bracket, comma outside brackets,
	// wrong argument count, empty non-functional bracket pair, consecutive
	// operands.
	ErrSyntax = errors.New("syntax error")

	// ErrSemantics covers an identifier that is neither a registered
	// provider nor a constant nor a legal local binding.
	ErrSemantics = errors.New("semantic error")

	// ErrUnsupported covers a transform that does not implement a
	// derivative or lowering rule for some node variant.
	ErrUnsupported = errors.New("not implemented")

	// ErrLowering covers stack-depth accounting failures: a malformed
	// conditional, or a final stack depth that isn't exactly one value.
	ErrLowering = errors.New("lowering error")

	// ErrRuntime covers back-end resource failures: JIT buffer allocation,
	// C compiler invocation, or dynamic library load/symbol resolution.
	ErrRuntime = errors.New("runtime error")
)

// Error is a typed error returned by functions throughout the toolkit. It
// contains both a message explaining what happened and one or more error
// values it considers to be its causes, normally one of the category
// sentinels above. Error is compatible with the use of errors.Is(): calling
// errors.Is on an Error value with any of its causes as the target will
// return true.
//
// If Error has at least one cause defined, the result of calling Error()
// will be its primary message with the result of calling Error() on its
// first cause appended to it.
//
// Error should not be used directly; call New to create one.
type Error struct {
	msg   string
	cause []error
}

func (e Error) Error() string {
	if e.msg == "" && e.cause != nil {
		return e.cause[0].Error()
	}

	if e.cause != nil {
		return e.msg + ": " + e.cause[0].Error()
	}

	return e.msg
}

// Unwrap returns the causes of Error. The return value will be nil if no
// causes were defined for it.
func (e Error) Unwrap() []error {
	if len(e.cause) > 0 {
		return e.cause
	}
	return nil
}

// Is returns whether Error either is itself the given target error, or one
// of its causes is.
func (e Error) Is(target error) bool {
	if errTarget, ok := target.(Error); ok {
		if e.msg == errTarget.msg && len(e.cause) == len(errTarget.cause) {
			allCausesEqual := true
			for i := range e.cause {
				if e.cause[i] != errTarget.cause[i] {
					allCausesEqual = false
					break
				}
			}
			if allCausesEqual {
				return true
			}
		}
	}

	for i := range e.cause {
		if e.cause[i] == target {
			return true
		}
	}
	return false
}

// New creates a new Error with the given message, along with any errors it
// should wrap as its causes. Providing cause errors is not required, but
// will cause it to return true when checked against that error via
// errors.Is.
func New(msg string, causes ...error) Error {
	err := Error{msg: msg}
	if len(causes) > 0 {
		err.cause = make([]error, len(causes))
		copy(err.cause, causes)
	}
	return err
}

// Syntax wraps msg as a syntax error.
func Syntax(msg string) Error { return New(msg, ErrSyntax) }

// Semantics wraps msg as a semantic error.
func Semantics(msg string) Error { return New(msg, ErrSemantics) }

// Unsupported wraps msg as an unsupported-feature error.
func Unsupported(msg string) Error { return New(msg, ErrUnsupported) }

// Lowering wraps msg as a lowering error.
func Lowering(msg string) Error { return New(msg, ErrLowering) }

// Runtime wraps msg as a runtime error, optionally chaining an underlying
// cause such as an I/O or dynamic-loading failure.
func Runtime(msg string, cause error) Error {
	if cause == nil {
		return New(msg, ErrRuntime)
	}
	return New(msg, cause, ErrRuntime)
}
