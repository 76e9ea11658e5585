// Package sandbox executes generated Go snippets in a disposable yaegi
// interpreter. Every execution gets a fresh interpreter so no state leaks
// between self-correction attempts or between work items, and a crash in
// generated code can never take down the driver.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"mcqagent/internal/logging"
)

// Result is the outcome of one snippet execution.
type Result struct {
	// Output is the captured stdout/stderr text, or the error trace when
	// execution failed.
	Output string
	// Failed reports whether the execution is judged unsuccessful: an
	// interpreter error, a panic, or a failure indicator in the output.
	Failed bool
}

// failureIndicators are runtime-error substrings scanned for in the
// captured output. Generated code sometimes prints an error message
// instead of panicking, so "no error returned" alone does not mean
// success.
var failureIndicators = []string{
	"panic:",
	"runtime error",
	"divide by zero",
	"index out of range",
	"nil pointer dereference",
	"undefined:",
	"undeclared name",
	"invalid operation",
	"cannot use",
	"cannot convert",
	"mismatched types",
	"stack overflow",
	"all goroutines are asleep",
}

// Sandbox runs snippets with a per-execution timeout.
type Sandbox struct {
	timeout time.Duration
}

// New creates a sandbox. A non-positive timeout falls back to 10s.
func New(timeout time.Duration) *Sandbox {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Sandbox{timeout: timeout}
}

// Run executes one Go snippet in a fresh, empty interpreter scope and
// captures its standard output. It never returns an error: failure is
// part of the Result so the caller can feed it back into repair prompts.
func (s *Sandbox) Run(ctx context.Context, code string) Result {
	log := logging.Get(logging.CategoryMath)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var buf bytes.Buffer
	res := s.eval(ctx, wrapCode(code), &buf)

	if res.Output == "" {
		res.Output = "No output"
	}
	if !res.Failed && containsFailureIndicator(res.Output) {
		res.Failed = true
	}

	log.Debugw("sandbox execution", "failed", res.Failed, "output_chars", len(res.Output))
	return res
}

// eval isolates the interpreter call so a host-level panic inside yaegi
// degrades to a failed Result instead of crashing the batch.
func (s *Sandbox) eval(ctx context.Context, code string, buf *bytes.Buffer) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Output: strings.TrimSpace(fmt.Sprintf("%s\npanic: %v", buf.String(), r)),
				Failed: true,
			}
		}
	}()

	// Fresh interpreter per attempt: no namespace reuse, ever.
	i := interp.New(interp.Options{Stdout: buf, Stderr: buf})
	if err := i.Use(stdlib.Symbols); err != nil {
		return Result{Output: fmt.Sprintf("failed to load stdlib: %v", err), Failed: true}
	}

	if _, err := i.EvalWithContext(ctx, code); err != nil {
		return Result{
			Output: strings.TrimSpace(fmt.Sprintf("%s\n%v", buf.String(), err)),
			Failed: true,
		}
	}

	return Result{Output: strings.TrimSpace(buf.String())}
}

// wrapCode wraps the snippet in a main package if needed.
func wrapCode(code string) string {
	if strings.Contains(code, "package main") {
		return code
	}
	return "package main\n\n" + code
}

func containsFailureIndicator(output string) bool {
	lower := strings.ToLower(output)
	for _, indicator := range failureIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}
