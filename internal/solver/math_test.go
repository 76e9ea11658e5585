package solver

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"mcqagent/internal/agent"
	"mcqagent/internal/config"
	"mcqagent/internal/llm"
	"mcqagent/internal/sandbox"
)

// fakeClient lets each test script the model calls it cares about.
type fakeClient struct {
	classify func(ctx context.Context, prompt string) (string, error)
	mathCode func(ctx context.Context, prompt string) (string, error)
	mathPick func(ctx context.Context, prompt string) (string, error)
	grounded func(ctx context.Context, prompt string) (string, error)
	reading  func(ctx context.Context, prompt string) (string, error)
}

func (f *fakeClient) ClassifyQuestion(ctx context.Context, prompt string) (string, error) {
	return f.classify(ctx, prompt)
}
func (f *fakeClient) GenerateMathCode(ctx context.Context, prompt string) (string, error) {
	return f.mathCode(ctx, prompt)
}
func (f *fakeClient) SelectMathAnswer(ctx context.Context, prompt string) (string, error) {
	return f.mathPick(ctx, prompt)
}
func (f *fakeClient) GenerateGroundedAnswer(ctx context.Context, prompt string) (string, error) {
	return f.grounded(ctx, prompt)
}
func (f *fakeClient) GenerateReadingAnswer(ctx context.Context, prompt string) (string, error) {
	return f.reading(ctx, prompt)
}

func mathConfig() config.SolverConfig {
	cfg := config.DefaultConfig().Solver
	return cfg
}

func TestMathSolverHappyPath(t *testing.T) {
	client := &fakeClient{
		mathCode: func(ctx context.Context, prompt string) (string, error) {
			return "```go\npackage main\n\nimport \"fmt\"\n\nfunc main() { fmt.Println(6 * 7) }\n```", nil
		},
		mathPick: func(ctx context.Context, prompt string) (string, error) {
			require.Contains(t, prompt, "42")
			return "B", nil
		},
	}

	s := agent.NewState("q1", "6 x 7 = ?", []string{"A. 41", "B. 42"})
	solver := NewMathSolver(client, sandbox.New(5*time.Second), mathConfig())
	require.NoError(t, solver.Solve(context.Background(), s))
	require.Equal(t, "B", s.Answer)
	require.Contains(t, s.Reasoning, "42")
}

func TestMathSolverSelfCorrection(t *testing.T) {
	broken := "```go\npackage main\n\nimport \"fmt\"\n\nfunc main() { fmt.Println(\"runtime error: division\") }\n```"
	fixed := "```go\npackage main\n\nimport \"fmt\"\n\nfunc main() { fmt.Println(10) }\n```"

	genCalls := 0
	client := &fakeClient{
		mathCode: func(ctx context.Context, prompt string) (string, error) {
			genCalls++
			if genCalls == 1 {
				return broken, nil
			}
			// Repair prompt must carry the failing output back.
			require.Contains(t, prompt, "runtime error")
			return fixed, nil
		},
		mathPick: func(ctx context.Context, prompt string) (string, error) {
			require.Contains(t, prompt, "10")
			return "A", nil
		},
	}

	s := agent.NewState("q2", "test", []string{"A. 10"})
	solver := NewMathSolver(client, sandbox.New(5*time.Second), mathConfig())
	require.NoError(t, solver.Solve(context.Background(), s))
	require.Equal(t, "A", s.Answer)
	require.Equal(t, 2, genCalls)
}

func TestMathSolverRetryBudget(t *testing.T) {
	// Every attempt fails; the budget allows the initial generation plus
	// two repairs, and the last error is kept as the execution result.
	broken := "```go\npackage main\n\nimport \"fmt\"\n\nfunc main() { fmt.Println(\"panic: boom\") }\n```"

	genCalls := 0
	client := &fakeClient{
		mathCode: func(ctx context.Context, prompt string) (string, error) {
			genCalls++
			return broken, nil
		},
		mathPick: func(ctx context.Context, prompt string) (string, error) {
			require.Contains(t, prompt, "panic: boom")
			return "no idea", nil
		},
	}

	s := agent.NewState("q3", "test", []string{"A. 1", "B. 2"})
	solver := NewMathSolver(client, sandbox.New(5*time.Second), mathConfig())
	require.NoError(t, solver.Solve(context.Background(), s))
	require.Equal(t, 3, genCalls)
	require.Equal(t, "B", s.Answer) // default letter when no match
	require.Contains(t, s.Reasoning, "panic: boom")
}

func TestMathSolverRateLimitPropagates(t *testing.T) {
	client := &fakeClient{
		mathCode: func(ctx context.Context, prompt string) (string, error) {
			return "", &llm.RateLimitError{Provider: "vnpt", StatusCode: 429}
		},
	}

	s := agent.NewState("q4", "test", nil)
	solver := NewMathSolver(client, sandbox.New(5*time.Second), mathConfig())
	err := solver.Solve(context.Background(), s)
	require.Error(t, err)
	require.True(t, llm.IsRateLimit(err))
	require.Empty(t, s.Answer)
}

func TestMathSolverRepairRateLimitPropagates(t *testing.T) {
	broken := "```go\npackage main\n\nimport \"fmt\"\n\nfunc main() { fmt.Println(\"panic: boom\") }\n```"
	genCalls := 0
	client := &fakeClient{
		mathCode: func(ctx context.Context, prompt string) (string, error) {
			genCalls++
			if genCalls == 1 {
				return broken, nil
			}
			return "", &llm.RateLimitError{Provider: "vnpt", StatusCode: 429}
		},
	}

	s := agent.NewState("q5", "test", nil)
	solver := NewMathSolver(client, sandbox.New(5*time.Second), mathConfig())
	err := solver.Solve(context.Background(), s)
	require.True(t, llm.IsRateLimit(err))
}

func TestExtractCodeBlock(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"```go\nfmt.Println(1)\n```", "fmt.Println(1)"},
		{"```\nx := 1\n```", "x := 1"},
		{"Here you go:\n```go\na\n```\nand ```go\nb\n```", "a"},
		{"no fences at all", "no fences at all"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ExtractCodeBlock(c.in), "input: %q", c.in)
	}
}

func TestClipKeepsRuneBoundary(t *testing.T) {
	// 50 three-byte runes; a 100-byte clip falls mid-rune.
	s := strings.Repeat("ế", 50)
	out := clip(s, 100)
	require.True(t, utf8.ValidString(out))
	require.LessOrEqual(t, len(out), 100)
	require.Equal(t, s, clip(s, 200))
}

func TestMathSolverSelectionErrorFails(t *testing.T) {
	client := &fakeClient{
		mathCode: func(ctx context.Context, prompt string) (string, error) {
			return "```go\npackage main\n\nimport \"fmt\"\n\nfunc main() { fmt.Println(1) }\n```", nil
		},
		mathPick: func(ctx context.Context, prompt string) (string, error) {
			return "", fmt.Errorf("upstream 500")
		},
	}

	s := agent.NewState("q6", "test", nil)
	solver := NewMathSolver(client, sandbox.New(5*time.Second), mathConfig())
	err := solver.Solve(context.Background(), s)
	require.Error(t, err)
	require.False(t, llm.IsRateLimit(err))
}
