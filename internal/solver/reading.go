package solver

import (
	"context"
	"fmt"

	"mcqagent/internal/agent"
	"mcqagent/internal/answer"
	"mcqagent/internal/config"
	"mcqagent/internal/llm"
	"mcqagent/internal/logging"
)

// ReadingSolver answers comprehension questions in a single generation
// call; the passage is already embedded in the question text.
type ReadingSolver struct {
	client        llm.Client
	defaultLetter string
}

// NewReadingSolver creates the reading strategy.
func NewReadingSolver(client llm.Client, cfg config.SolverConfig) *ReadingSolver {
	return &ReadingSolver{client: client, defaultLetter: cfg.ReadingDefaultLetter}
}

// Solve asks the large model directly and extracts the letter.
func (r *ReadingSolver) Solve(ctx context.Context, s *agent.State) error {
	response, err := r.client.GenerateReadingAnswer(ctx, readingPrompt(s.Question, s.Choices))
	if err != nil {
		return fmt.Errorf("reading answer generation failed: %w", err)
	}

	s.Answer = answer.ExtractLetter(response, r.defaultLetter)
	s.Reasoning = "Reading comprehension, direct answer"
	logging.Get(logging.CategoryReading).Infow("reading solved", "qid", s.QID, "answer", s.Answer)
	return nil
}
