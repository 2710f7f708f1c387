package agent

import (
	"context"
	"fmt"
)

// Orchestrator runs a sequence of agents one after another, feeding each
// agent's summary into the context of the next. Individual agent failures
// are recorded in the result list and do not stop the sequence; a cancelled
// context does.
type Orchestrator struct {
	registry map[string]Agent
}

// NewOrchestrator builds an orchestrator over a named agent registry.
func NewOrchestrator(registry map[string]Agent) *Orchestrator {
	return &Orchestrator{registry: registry}
}

// Known reports whether a requested agent name exists.
func (o *Orchestrator) Known(name string) bool {
	_, ok := o.registry[name]
	return ok
}

// RunSequence executes the named agents in order.
func (o *Orchestrator) RunSequence(ctx context.Context, names []string, task string, input Context) ([]Result, error) {
	results := make([]Result, 0, len(names))
	shared := make(Context, len(input)+len(names))
	for key, value := range input {
		shared[key] = value
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		ag, ok := o.registry[name]
		if !ok {
			return results, fmt.Errorf("unknown agent %q", name)
		}

		result, err := ag.Run(ctx, task, shared)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			results = append(results, Result{Agent: name, Error: err.Error()})
			continue
		}
		results = append(results, *result)
		shared[name+"_summary"] = result.Summary
	}
	return results, nil
}
