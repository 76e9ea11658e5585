package solver

import (
	"context"
	"fmt"
	"strings"

	"mcqagent/internal/agent"
	"mcqagent/internal/answer"
	"mcqagent/internal/config"
	"mcqagent/internal/llm"
	"mcqagent/internal/logging"
	"mcqagent/internal/retrieval"
)

// Retriever runs multi-query retrieval and returns fused candidates.
type Retriever interface {
	Retrieve(ctx context.Context, queries []string) ([]retrieval.FusedResult, error)
}

// RAGSolver answers knowledge questions by retrieving grounded context
// from the vector store and asking the large model for a letter.
type RAGSolver struct {
	client        llm.Client
	retriever     Retriever
	cfg           config.RetrievalConfig
	defaultLetter string
}

// NewRAGSolver creates the retrieval strategy.
func NewRAGSolver(client llm.Client, retriever Retriever, cfg config.RetrievalConfig, solverCfg config.SolverConfig) *RAGSolver {
	return &RAGSolver{
		client:        client,
		retriever:     retriever,
		cfg:           cfg,
		defaultLetter: solverCfg.RAGDefaultLetter,
	}
}

// buildQueries produces the retrieval queries for a question. The
// question combined with its choices is the primary query; the bare
// question is added when the choices are long enough to dilate it.
func buildQueries(question string, choices []string) []string {
	combined := question
	if len(choices) > 0 {
		combined = question + "\n" + strings.Join(choices, "\n")
	}
	queries := []string{combined}
	if len(combined)-len(question) > 200 {
		queries = append(queries, question)
	}
	return queries
}

// Solve retrieves context and generates a grounded answer. An empty
// retrieval result is not an error; the model answers from the question
// alone.
func (r *RAGSolver) Solve(ctx context.Context, s *agent.State) error {
	log := logging.Get(logging.CategoryRAG)

	results, err := r.retriever.Retrieve(ctx, buildQueries(s.Question, s.Choices))
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	contextText := retrieval.AssembleContext(results, r.cfg)
	if contextText == "" {
		log.Warnw("no grounded context", "qid", s.QID)
	}

	response, err := r.client.GenerateGroundedAnswer(ctx, groundedPrompt(s.Question, s.Choices, contextText))
	if err != nil {
		return fmt.Errorf("grounded answer generation failed: %w", err)
	}

	s.Answer = answer.ExtractLetter(response, r.defaultLetter)
	s.Context = clip(contextText, 500)
	s.Reasoning = fmt.Sprintf("RAG: %d candidates, %d context chars", len(results), len(contextText))
	log.Infow("rag solved", "qid", s.QID, "answer", s.Answer, "candidates", len(results))
	return nil
}
