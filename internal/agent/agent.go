// Package agent defines the strategy interface for research agents and the
// sequential orchestrator that runs them. Agents are swappable collaborators:
// they accept a task with context and return a structured result, and their
// internal reasoning is delegated to the LLM provider.
package agent

import "context"

// Context carries company facts and prior agent output into a run.
type Context map[string]any

// Result is the structured output of one agent run.
type Result struct {
	Agent   string `json:"agent"`
	Summary string `json:"summary"`
	Error   string `json:"error,omitempty"`
}

// Agent is a research strategy.
type Agent interface {
	Name() string
	Run(ctx context.Context, task string, input Context) (*Result, error)
}
