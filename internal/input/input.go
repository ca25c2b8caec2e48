// Package input reads expression-REPL input lines for cmd/mathi, either
// directly from a generic reader (used for startup command files passed
// via --file) or through GNU-readline-style editing for a TTY-connected
// stdin, so the same meta-command/expression loop can drive either source.
package input

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// DirectExprReader reads lines from any io.Reader without readline
// editing; used for piped/file input such as cmd/mathi's --file startup
// script, where there is no terminal to edit against.
//
// DirectExprReader should not be used directly; instead, create one with
// [NewDirectReader].
type DirectExprReader struct {
	r             *bufio.Reader
	blanksAllowed bool
}

// InteractiveExprReader reads lines from stdin via a Go implementation of
// GNU Readline, giving line editing and history for a TTY-connected
// session of cmd/mathi.
//
// InteractiveExprReader should not be used directly; instead, create one
// with [NewInteractiveReader].
type InteractiveExprReader struct {
	rl            *readline.Instance
	blanksAllowed bool
	prompt        string
}

// defaultPrompt is shown before each line read by an InteractiveExprReader
// until overridden with SetPrompt.
const defaultPrompt = "mathi> "

// NewDirectReader creates a DirectExprReader buffered over r. Close must
// be called on the result before disposal.
func NewDirectReader(r io.Reader) *DirectExprReader {
	return &DirectExprReader{
		r: bufio.NewReader(r),
	}
}

// NewInteractiveReader creates an InteractiveExprReader and initializes
// readline. Close must be called on the result before disposal to tear
// down readline resources.
func NewInteractiveReader() (*InteractiveExprReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: defaultPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("create readline config: %w", err)
	}

	return &InteractiveExprReader{
		rl:     rl,
		prompt: defaultPrompt,
	}, nil
}

// Close is a no-op present so DirectExprReader has the same lifecycle as
// InteractiveExprReader; a caller should still call it.
func (der *DirectExprReader) Close() error {
	return nil
}

// Close tears down readline's terminal state.
func (ier *InteractiveExprReader) Close() error {
	return ier.rl.Close()
}

// ReadLine reads the next non-blank line (unless AllowBlank is set).
//
// At end of input, the returned string is empty and error is io.EOF. Any
// other error likewise returns an empty string alongside it.
func (der *DirectExprReader) ReadLine() (string, error) {
	var line string
	var err error

	for line == "" {
		line, err = der.r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}

		line = strings.TrimSpace(line)

		if line == "" && der.blanksAllowed {
			return line, nil
		}
	}

	return line, nil
}

// ReadLine reads the next non-blank line (unless AllowBlank is set).
//
// At end of input, the returned string is empty and error is io.EOF. Any
// other error likewise returns an empty string alongside it.
func (ier *InteractiveExprReader) ReadLine() (string, error) {
	var line string
	var err error

	for line == "" {
		line, err = ier.rl.Readline()
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}

		line = strings.TrimSpace(line)

		if line == "" && ier.blanksAllowed {
			return line, nil
		}
	}

	return line, nil
}

// AllowBlank sets whether a blank line is returned as-is instead of being
// skipped. By default it is not.
func (der *DirectExprReader) AllowBlank(allow bool) {
	der.blanksAllowed = allow
}

// AllowBlank sets whether a blank line is returned as-is instead of being
// skipped. By default it is not.
func (ier *InteractiveExprReader) AllowBlank(allow bool) {
	ier.blanksAllowed = allow
}

// SetPrompt updates the prompt text shown before the next ReadLine.
func (ier *InteractiveExprReader) SetPrompt(p string) {
	ier.prompt = p
	ier.rl.SetPrompt(p)
}

// GetPrompt returns the current prompt text.
func (ier *InteractiveExprReader) GetPrompt() string {
	return ier.prompt
}
