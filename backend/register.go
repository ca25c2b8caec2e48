package backend

import (
	"github.com/dekarrin/mathexpr/ast"
	"github.com/dekarrin/mathexpr/backend/bytecode"
	"github.com/dekarrin/mathexpr/backend/csource"
	"github.com/dekarrin/mathexpr/backend/nativejit"
)

// Reference priorities, carried forward from the original's compiler
// factory priority table (see DESIGN.md): higher wins Best(). nativejit
// stands in for the native-code-generator slot the retrieved pack has no
// SLJIT/libjit equivalent for.
const (
	PriorityBytecode  = 1
	PriorityCSource   = 10
	PriorityNativeJIT = 20
)

// NewDefaultRegistry returns a Registry with all three back-ends
// registered at their reference priorities: nativejit is preferred
// (highest priority), then csource, then bytecode as the universally
// available fallback.
func NewDefaultRegistry(csourceOpts csource.Options) *Registry {
	r := NewRegistry()

	r.Register("bytecode", PriorityBytecode, func(fn *ast.Function) (Evaluator, error) {
		return bytecode.Compile(fn)
	})

	r.Register("nativejit", PriorityNativeJIT, func(fn *ast.Function) (Evaluator, error) {
		return nativejit.Compile(fn)
	})

	r.Register("csource", PriorityCSource, func(fn *ast.Function) (Evaluator, error) {
		return csource.Compile(fn, csourceOpts)
	})

	return r
}
