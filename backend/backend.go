// Package backend defines the shared evaluator contract and the back-end
// factory of §4.10: a name-to-constructor registry ordered by priority so a
// caller can ask for "the best available back-end" without hard-coding one.
package backend

import (
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/dekarrin/mathexpr/ast"
)

// Evaluator is a compiled, callable form of a Function (§5). An Evaluator
// is not re-entrant: it owns a scratch stack and a per-call snapshot of
// variable values, so distinct goroutines must use distinct Evaluator
// instances built from the same Function.
type Evaluator interface {
	// Eval executes the compiled function and returns its result, reading
	// the current values of every bound provider.
	Eval() ast.Real

	// Close releases the evaluator's owned resources (code buffer,
	// bytecode, dynamic library handle). An Evaluator must not be used
	// after Close.
	Close() error
}

// Builder compiles fn into a fresh Evaluator.
type Builder func(fn *ast.Function) (Evaluator, error)

// Registry maps a back-end name to its Builder and priority. Builds are
// tagged with a google/uuid handle for leak-tracking log lines, grounded
// on the teacher's habit of tagging request/session objects with
// uuid.UUID (server/endpoints.go, server/dao/sqlite).
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
}

type registryEntry struct {
	build    Builder
	priority int
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[string]registryEntry{}}
}

// Register adds or replaces the back-end under name. Higher priority wins
// in Best(); the reference priorities from §4.10 are bytecode=1,
// nativejit takes SLJIT's slot at 20, csource takes CCode's slot at 10.
func (r *Registry) Register(name string, priority int, build Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = registryEntry{build: build, priority: priority}
}

// Best returns the name of the highest-priority registered back-end, or ""
// if none are registered. Ties break on name for determinism.
func (r *Registry) Best() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	best := ""
	bestPriority := 0
	first := true
	for name, e := range r.entries {
		if first || e.priority > bestPriority || (e.priority == bestPriority && name < best) {
			best = name
			bestPriority = e.priority
			first = false
		}
	}
	return best
}

// Build compiles fn with the named back-end's Builder and wraps the result
// with uuid-tagged Close logging.
func (r *Registry) Build(name string, fn *ast.Function) (Evaluator, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("backend: no back-end registered under name %q", name)
	}

	ev, err := e.build(fn)
	if err != nil {
		return nil, fmt.Errorf("backend: build %q: %w", name, err)
	}

	return &taggedEvaluator{Evaluator: ev, id: uuid.New()}, nil
}

// taggedEvaluator wraps an Evaluator with a uuid handle logged on Close, so
// a caller that forgets to close a compiled evaluator leaves a traceable
// line in the log.
type taggedEvaluator struct {
	Evaluator
	id uuid.UUID
}

func (t *taggedEvaluator) Close() error {
	err := t.Evaluator.Close()
	log.Printf("closing evaluator %s", t.id)
	return err
}
