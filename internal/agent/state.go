// Package agent holds the per-question processing state and the
// classification/dispatch machinery. One State moves Unclassified ->
// Classified -> Answered; there is no backtracking.
package agent

import "context"

// Category is the solving strategy a question is routed to.
type Category string

const (
	CategoryMath    Category = "math"
	CategoryRAG     Category = "rag"
	CategoryReading Category = "reading"
	CategoryToxic   Category = "toxic"
)

// State is the mutable record carried through one question's processing.
// All fields exist from construction; empty strings are the "unset"
// sentinels, never absent fields.
type State struct {
	QID      string
	Question string
	Choices  []string

	Category  Category
	Context   string
	Answer    string
	Reasoning string
}

// NewState creates the initial state for one work item.
func NewState(qid, question string, choices []string) *State {
	return &State{
		QID:      qid,
		Question: question,
		Choices:  choices,
	}
}

// Answered reports whether a terminal answer has been set.
func (s *State) Answered() bool { return s.Answer != "" }

// Solver produces an answer for one classified question by mutating the
// state in place.
type Solver interface {
	Solve(ctx context.Context, s *State) error
}
