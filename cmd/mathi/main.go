/*
Mathi is an interactive symbolic-math read-eval-print loop.

It reads expressions from stdin (via GNU-readline-style editing when
available), parses, optionally simplifies and/or differentiates, compiles
with a selected back-end, and prints the result.

Usage:

	mathi [flags]

The flags are:

	-b, --backend NAME
		Back-end to evaluate with: bytecode, nativejit, or csource.
		Defaults to the config file's backend, or bytecode if none is set.

	-f, --file FILE
		Read startup commands (same syntax as interactive input) from FILE
		before handing control to the interactive prompt.

	-c, --config FILE
		Load a TOML configuration file (see internal/config).

Once running, a line is either a meta-command (prefixed with ":") or an
expression to evaluate against the current set of bound variables. Type
":help" for the list of meta-commands, ":quit" to exit.
*/
package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/dekarrin/mathexpr/ast"
	"github.com/dekarrin/mathexpr/backend"
	"github.com/dekarrin/mathexpr/backend/csource"
	"github.com/dekarrin/mathexpr/internal/config"
	"github.com/dekarrin/mathexpr/internal/input"
	"github.com/dekarrin/mathexpr/internal/render"
	"github.com/dekarrin/mathexpr/parser"
	"github.com/dekarrin/mathexpr/transform"
)

const (
	ExitSuccess = iota
	ExitSessionError
	ExitInitError
)

var (
	returnCode  int
	flagBackend = pflag.StringP("backend", "b", "", "Back-end to evaluate with: bytecode, nativejit, or csource")
	flagFile    = pflag.StringP("file", "f", "", "Read startup commands from FILE before the interactive prompt")
	flagConfig  = pflag.StringP("config", "c", "", "Load a TOML configuration file")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", panicErr))
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	cfg := config.Config{}.FillDefaults()
	if *flagConfig != "" {
		loaded, err := config.Load(*flagConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = ExitInitError
			return
		}
		cfg = loaded
	}

	backendName := cfg.Backend
	if *flagBackend != "" {
		backendName = *flagBackend
	}

	sess := newSession(cfg, backendName)

	if *flagFile != "" {
		f, err := os.Open(*flagFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = ExitInitError
			return
		}
		direct := input.NewDirectReader(f)
		direct.AllowBlank(false)
		runLoop(sess, direct, os.Stdout)
		f.Close()
	}

	interactive, err := input.NewInteractiveReader()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitInitError
		return
	}
	defer interactive.Close()

	if err := runLoop(sess, interactive, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitSessionError
	}
}

// session holds everything that persists across lines of input: the bound
// variables (kept as stable pointers so successive parses can share
// providers), the registry, and the currently selected back-end name.
type session struct {
	registry *backend.Registry
	backend  string
	vars     map[string]*ast.Real
	varOrder []string
}

func newSession(cfg config.Config, backendName string) *session {
	reg := backend.NewDefaultRegistry(csource.Options{
		Compiler:   cfg.CCompiler,
		ExtraFlags: cfg.CFlags,
		TempDir:    cfg.TempDir,
	})
	if backendName == "" {
		backendName = reg.Best()
	}
	return &session{
		registry: reg,
		backend:  backendName,
		vars:     map[string]*ast.Real{},
	}
}

func (s *session) setVar(name string, v ast.Real) {
	if addr, ok := s.vars[name]; ok {
		*addr = v
		return
	}
	val := v
	s.vars[name] = &val
	s.varOrder = append(s.varOrder, name)
}

func (s *session) parserOptions() []parser.Option {
	opts := make([]parser.Option, 0, len(s.vars))
	for name, addr := range s.vars {
		opts = append(opts, parser.WithProvider(name, addr))
	}
	return opts
}

// lineReader is the subset of input.DirectExprReader/
// InteractiveExprReader this loop depends on.
type lineReader interface {
	ReadLine() (string, error)
}

func runLoop(sess *session, r lineReader, out *os.File) error {
	w := bufio.NewWriter(out)
	defer w.Flush()

	for {
		line, err := r.ReadLine()
		if err != nil {
			if line == "" {
				return nil
			}
			return err
		}

		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ":") {
			if handleMeta(sess, line, w) {
				return nil
			}
			w.Flush()
			continue
		}

		evalLine(sess, line, w)
		w.Flush()
	}
}

func handleMeta(sess *session, line string, w *bufio.Writer) (quit bool) {
	fields := strings.Fields(line)
	cmd := fields[0]

	switch cmd {
	case ":quit", ":exit":
		return true

	case ":help":
		fmt.Fprintln(w, "enter an expression to evaluate it; meta-commands:")
		fmt.Fprintln(w, "  :set NAME VALUE     bind a variable")
		fmt.Fprintln(w, "  :vars               list bound variables")
		fmt.Fprintln(w, "  :backend [NAME]     show or switch the active back-end")
		fmt.Fprintln(w, "  :simplify EXPR      print the simplified form of EXPR")
		fmt.Fprintln(w, "  :diff NAME EXPR     print d/dNAME of EXPR")
		fmt.Fprintln(w, "  :tree EXPR          print EXPR's AST")
		fmt.Fprintln(w, "  :quit               exit")

	case ":set":
		if len(fields) != 3 {
			fmt.Fprintln(w, "usage: :set NAME VALUE")
			return false
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			fmt.Fprintf(w, "ERROR: %s\n", err.Error())
			return false
		}
		sess.setVar(fields[1], v)

	case ":vars":
		names := append([]string(nil), sess.varOrder...)
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "%s = %s\n", name, render.FormatNumber(*sess.vars[name]))
		}

	case ":backend":
		if len(fields) == 1 {
			fmt.Fprintln(w, sess.backend)
			return false
		}
		sess.backend = fields[1]

	case ":simplify":
		expr := strings.TrimSpace(strings.TrimPrefix(line, cmd))
		fn, err := parser.Parse(expr, sess.parserOptions()...)
		if err != nil {
			fmt.Fprintf(w, "ERROR: %s\n", err.Error())
			return false
		}
		fmt.Fprintln(w, render.FormatInfix(transform.Simplify(fn.Root)))

	case ":tree":
		expr := strings.TrimSpace(strings.TrimPrefix(line, cmd))
		fn, err := parser.Parse(expr, sess.parserOptions()...)
		if err != nil {
			fmt.Fprintf(w, "ERROR: %s\n", err.Error())
			return false
		}
		fmt.Fprint(w, render.FormatTree(fn.Root))

	case ":diff":
		if len(fields) < 3 {
			fmt.Fprintln(w, "usage: :diff NAME EXPR")
			return false
		}
		wrtName := fields[1]
		expr := strings.TrimSpace(strings.TrimPrefix(line, cmd+" "+wrtName))
		fn, err := parser.Parse(expr, sess.parserOptions()...)
		if err != nil {
			fmt.Fprintf(w, "ERROR: %s\n", err.Error())
			return false
		}
		wrt, ok := fn.Provider(wrtName)
		if !ok {
			fmt.Fprintf(w, "ERROR: %s is not a bound variable\n", wrtName)
			return false
		}
		deriv, err := transform.Differentiate(fn.Root, wrt)
		if err != nil {
			fmt.Fprintf(w, "ERROR: %s\n", err.Error())
			return false
		}
		fmt.Fprintln(w, render.FormatInfix(transform.Simplify(deriv)))

	default:
		fmt.Fprintf(w, "unknown meta-command %q; try :help\n", cmd)
	}
	return false
}

func evalLine(sess *session, line string, w *bufio.Writer) {
	fn, err := parser.Parse(line, sess.parserOptions()...)
	if err != nil {
		fmt.Fprintf(w, "ERROR: %s\n", err.Error())
		return
	}

	ev, err := sess.registry.Build(sess.backend, fn)
	if err != nil {
		fmt.Fprintf(w, "ERROR: %s\n", err.Error())
		return
	}
	defer ev.Close()

	result, err := safeEval(ev)
	if err != nil {
		fmt.Fprintf(w, "ERROR: %s\n", err.Error())
		return
	}

	fmt.Fprintln(w, render.FormatNumber(result))
}

// safeEval recovers the evalPanic contract of §4.8: a runtime-only
// evaluation failure (e.g. faculty of a negative operand) surfaces as a
// panic from Evaluator.Eval rather than an error return, since the
// interface itself carries no error channel.
func safeEval(ev backend.Evaluator) (result ast.Real, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluation failed: %v", r)
		}
	}()
	return ev.Eval(), nil
}
