// Package pipeline is the execution engine for a run: a registry of stage
// handlers contributed by modules, a dependency graph of per-query stage
// nodes, and a concurrent executor with fast-fail semantics.
package pipeline

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Handler executes one stage for one task and returns the stage's output
// value for the run summary.
type Handler func(ctx context.Context, task *Task) (cty.Value, error)

// RegisteredStage couples a stage type with its Go handler.
type RegisteredStage struct {
	// Description is a one-line summary for logs and help output.
	Description string

	// Fn is the handler invoked by the executor.
	Fn Handler
}

// Module is the interface stage modules implement to contribute their
// handlers to an application instance.
type Module interface {
	Register(r *Registry)
}

// Registry holds the stage handlers for a single application instance.
type Registry struct {
	stages map[string]*RegisteredStage
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{stages: make(map[string]*RegisteredStage)}
}

// RegisterStage adds a stage handler. Registering the same stage type twice
// is a programmer error and panics.
func (r *Registry) RegisterStage(stageType string, s *RegisteredStage) {
	if _, exists := r.stages[stageType]; exists {
		panic(fmt.Sprintf("stage type %q registered twice", stageType))
	}
	if s.Fn == nil {
		panic(fmt.Sprintf("stage type %q registered without a handler", stageType))
	}
	r.stages[stageType] = s
}

// Stage looks up a registered stage handler.
func (r *Registry) Stage(stageType string) (*RegisteredStage, error) {
	s, ok := r.stages[stageType]
	if !ok {
		return nil, fmt.Errorf("no handler registered for stage type %q", stageType)
	}
	return s, nil
}

// StageTypes returns the registered stage types, for validation and logs.
func (r *Registry) StageTypes() []string {
	types := make([]string, 0, len(r.stages))
	for t := range r.stages {
		types = append(types, t)
	}
	return types
}

// Validate checks that every stage type the graph references has a handler.
func (r *Registry) Validate(g *Graph) error {
	for _, n := range g.Nodes {
		if _, err := r.Stage(n.Stage); err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
	}
	return nil
}
