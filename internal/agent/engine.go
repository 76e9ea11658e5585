package agent

import "context"

// Engine chains the router and dispatcher into one processing step: an
// unanswered state goes in, an answered state comes out.
type Engine struct {
	router     *Router
	dispatcher *Dispatcher
}

// NewEngine wires a router to a dispatcher.
func NewEngine(router *Router, dispatcher *Dispatcher) *Engine {
	return &Engine{router: router, dispatcher: dispatcher}
}

// Process classifies the state and runs the matching solver.
func (e *Engine) Process(ctx context.Context, s *State) error {
	if err := e.router.Route(ctx, s); err != nil {
		return err
	}
	return e.dispatcher.Dispatch(ctx, s)
}
