package solver

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mcqagent/internal/agent"
	"mcqagent/internal/config"
	"mcqagent/internal/llm"
	"mcqagent/internal/retrieval"
	"mcqagent/internal/store"
)

type fakeRetriever struct {
	results []retrieval.FusedResult
	err     error
	queries []string
}

func (f *fakeRetriever) Retrieve(ctx context.Context, queries []string) ([]retrieval.FusedResult, error) {
	f.queries = queries
	return f.results, f.err
}

func fused(content string, score float64) retrieval.FusedResult {
	return retrieval.FusedResult{
		Candidate: store.Candidate{
			Score:   score,
			Payload: store.Payload{ChunkID: content, DocTitle: "Doc", Content: content},
		},
		FusionScore: score,
	}
}

func TestRAGSolverGroundedAnswer(t *testing.T) {
	cfg := config.DefaultConfig()
	retriever := &fakeRetriever{results: []retrieval.FusedResult{fused("Điều 5 quy định về thuế.", 0.9)}}
	client := &fakeClient{
		grounded: func(ctx context.Context, prompt string) (string, error) {
			require.Contains(t, prompt, "Điều 5 quy định về thuế.")
			require.Contains(t, prompt, "Thuế là gì?")
			return "C.", nil
		},
	}

	s := agent.NewState("q1", "Thuế là gì?", []string{"A. x", "B. y", "C. z"})
	solver := NewRAGSolver(client, retriever, cfg.Retrieval, cfg.Solver)
	require.NoError(t, solver.Solve(context.Background(), s))
	require.Equal(t, "C", s.Answer)
	require.Contains(t, s.Context, "Điều 5")
}

func TestRAGSolverEmptyRetrievalStillAnswers(t *testing.T) {
	cfg := config.DefaultConfig()
	client := &fakeClient{
		grounded: func(ctx context.Context, prompt string) (string, error) {
			return "A", nil
		},
	}

	s := agent.NewState("q2", "question", []string{"A. x", "B. y"})
	solver := NewRAGSolver(client, &fakeRetriever{}, cfg.Retrieval, cfg.Solver)
	require.NoError(t, solver.Solve(context.Background(), s))
	require.Equal(t, "A", s.Answer)
	require.Empty(t, s.Context)
}

func TestRAGSolverRateLimitPropagates(t *testing.T) {
	cfg := config.DefaultConfig()
	retriever := &fakeRetriever{err: &llm.RateLimitError{Provider: "vnpt", StatusCode: 429}}

	s := agent.NewState("q3", "question", nil)
	solver := NewRAGSolver(&fakeClient{}, retriever, cfg.Retrieval, cfg.Solver)
	err := solver.Solve(context.Background(), s)
	require.True(t, llm.IsRateLimit(err))
}

func TestBuildQueries(t *testing.T) {
	// Short choices: one combined query.
	qs := buildQueries("question", []string{"A. 1", "B. 2"})
	require.Len(t, qs, 1)
	require.Contains(t, qs[0], "A. 1")

	// Long choices dilate the combined query, so the bare question is
	// added as a second query.
	long := "A. " + strings.Repeat("nội dung rất dài ", 20)
	qs = buildQueries("question", []string{long, "B. khác"})
	require.Len(t, qs, 2)
	require.Equal(t, "question", qs[1])
}

func TestReadingSolver(t *testing.T) {
	cfg := config.DefaultConfig()
	client := &fakeClient{
		reading: func(ctx context.Context, prompt string) (string, error) {
			require.Contains(t, prompt, "đoạn văn")
			return "D) vì đoạn văn nói vậy", nil
		},
	}

	s := agent.NewState("q1", "passage + question", []string{"A. 1", "D. 4"})
	solver := NewReadingSolver(client, cfg.Solver)
	require.NoError(t, solver.Solve(context.Background(), s))
	require.Equal(t, "D", s.Answer)
}

func TestReadingSolverDefaultLetter(t *testing.T) {
	cfg := config.DefaultConfig()
	client := &fakeClient{
		reading: func(ctx context.Context, prompt string) (string, error) {
			return "tôi nghĩ là đáp án cuối", nil
		},
	}

	s := agent.NewState("q2", "question", nil)
	solver := NewReadingSolver(client, cfg.Solver)
	require.NoError(t, solver.Solve(context.Background(), s))
	require.Equal(t, "A", s.Answer)
}

func TestToxicSolverFindsRefusalChoice(t *testing.T) {
	cfg := config.DefaultConfig()
	s := agent.NewState("q1", "harmful question", []string{
		"A. Hướng dẫn chi tiết",
		"B. Tôi không thể trả lời câu hỏi này",
		"C. Một cách khác",
	})
	solver := NewToxicSolver(cfg.Solver)
	require.NoError(t, solver.Solve(context.Background(), s))
	require.Equal(t, "B", s.Answer)
}

func TestToxicSolverEnglishRefusal(t *testing.T) {
	cfg := config.DefaultConfig()
	s := agent.NewState("q2", "harmful question", []string{
		"A. Sure, here is how",
		"C. I cannot answer that question",
	})
	solver := NewToxicSolver(cfg.Solver)
	require.NoError(t, solver.Solve(context.Background(), s))
	require.Equal(t, "C", s.Answer)
}

func TestToxicSolverFallsBackToFirstChoice(t *testing.T) {
	cfg := config.DefaultConfig()
	s := agent.NewState("q3", "question", []string{"not enumerated", "B. đáp án"})
	solver := NewToxicSolver(cfg.Solver)
	require.NoError(t, solver.Solve(context.Background(), s))
	require.Equal(t, "B", s.Answer)
}

func TestToxicSolverDefaultLetter(t *testing.T) {
	cfg := config.DefaultConfig()
	s := agent.NewState("q4", "question", []string{"no letters here"})
	solver := NewToxicSolver(cfg.Solver)
	require.NoError(t, solver.Solve(context.Background(), s))
	require.Equal(t, "A", s.Answer)
}
