// Package solver implements the four per-category solving strategies:
// math (code generation with sandboxed execution and self-correction),
// rag (retrieval fusion), reading, and toxic (refusal detection).
package solver

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"mcqagent/internal/agent"
	"mcqagent/internal/answer"
	"mcqagent/internal/config"
	"mcqagent/internal/llm"
	"mcqagent/internal/logging"
	"mcqagent/internal/sandbox"
)

// codeBlockPattern extracts the first fenced code block from a model
// response.
var codeBlockPattern = regexp.MustCompile("(?is)```(?:go)?\\s*([\\s\\S]*?)```")

// MathSolver answers computational questions by generating a Go snippet,
// executing it in the sandbox, self-correcting on failure, and letting a
// second generation call pick the letter from the execution evidence.
type MathSolver struct {
	client        llm.Client
	sandbox       *sandbox.Sandbox
	retries       int
	defaultLetter string
}

// NewMathSolver creates the math strategy.
func NewMathSolver(client llm.Client, sb *sandbox.Sandbox, cfg config.SolverConfig) *MathSolver {
	return &MathSolver{
		client:        client,
		sandbox:       sb,
		retries:       cfg.MathRetries,
		defaultLetter: cfg.MathDefaultLetter,
	}
}

// Solve runs the generate-execute-repair loop and selects the answer.
func (m *MathSolver) Solve(ctx context.Context, s *agent.State) error {
	log := logging.Get(logging.CategoryMath)

	response, err := m.client.GenerateMathCode(ctx, codeGenPrompt(s.Question, s.Choices))
	if err != nil {
		return fmt.Errorf("math code generation failed: %w", err)
	}
	code := ExtractCodeBlock(response)

	result := m.sandbox.Run(ctx, code)
	log.Debugw("initial execution", "qid", s.QID, "failed", result.Failed)

	// Bounded self-correction: feed the error back and retry. After the
	// budget is spent the last error stands as the execution result.
	for attempt := 0; result.Failed && attempt < m.retries; attempt++ {
		repaired, err := m.client.GenerateMathCode(ctx, repairPrompt(s.Question, s.Choices, code, result.Output))
		if err != nil {
			if llm.IsRateLimit(err) {
				return err
			}
			// Repair call failed; keep the prior code for the retry.
			log.Warnw("repair call failed", "qid", s.QID, "attempt", attempt+1, "error", err)
		} else if extracted := ExtractCodeBlock(repaired); strings.TrimSpace(extracted) != "" {
			code = extracted
		}

		result = m.sandbox.Run(ctx, code)
		log.Debugw("retry execution", "qid", s.QID, "attempt", attempt+1, "failed", result.Failed)
	}

	selection, err := m.client.SelectMathAnswer(ctx, selectionPrompt(s.Question, s.Choices, result.Output))
	if err != nil {
		return fmt.Errorf("math answer selection failed: %w", err)
	}

	s.Answer = answer.ExtractLetter(selection, m.defaultLetter)
	s.Reasoning = fmt.Sprintf("Code executed. Result: %s", clip(result.Output, 100))
	log.Infow("math solved", "qid", s.QID, "answer", s.Answer, "exec_failed", result.Failed)
	return nil
}

// ExtractCodeBlock returns the first fenced code block of a response, or
// the raw response when no fence is present.
func ExtractCodeBlock(text string) string {
	if m := codeBlockPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// clip cuts s to at most n bytes on a rune boundary.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
