package agent

import (
	"context"
	"fmt"

	"mcqagent/internal/logging"
)

// Dispatcher selects exactly one solver per classified question.
type Dispatcher struct {
	solvers map[Category]Solver
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{solvers: make(map[Category]Solver)}
}

// Register binds a solver to a category.
func (d *Dispatcher) Register(cat Category, s Solver) {
	d.solvers[cat] = s
}

// Dispatch runs the solver matching the state's category. A category
// outside the registered set falls back to rag. States answered by the
// router's short-circuit pass through untouched.
func (d *Dispatcher) Dispatch(ctx context.Context, s *State) error {
	if s.Answered() {
		return nil
	}

	solver, ok := d.solvers[s.Category]
	if !ok {
		solver, ok = d.solvers[CategoryRAG]
		if !ok {
			return fmt.Errorf("no solver registered for category %q and no rag fallback", s.Category)
		}
		logging.Get(logging.CategoryRouter).Warnw("unknown category, dispatching to rag",
			"qid", s.QID, "category", s.Category)
		s.Category = CategoryRAG
	}

	return solver.Solve(ctx, s)
}
