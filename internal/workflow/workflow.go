package workflow

import (
	"context"
	"sort"

	"query-evolver/internal/apperrors"
)

// Default stage names. Their slugs are registry keys.
const (
	StageQueryAnalysis       = "Query Analysis"
	StageQueryOptimization   = "Query Optimization"
	StageQueryValidation     = "Query Validation"
	StageQueryExecution      = "Query Execution"
	StagePerformanceFeedback = "Performance Feedback"
)

var defaultStages = []struct {
	name     string
	category Category
	prompt   string
}{
	{StageQueryAnalysis, CategoryQueryAnalysis, "Analyze the following Cypher query for optimization opportunities: {query}"},
	{StageQueryOptimization, CategoryOptimization, "Optimize the following Cypher query based on the analysis: {query}"},
	{StageQueryValidation, CategoryValidation, "Validate the following optimized query: {query}"},
	{StageQueryExecution, CategoryExecution, "Execute the following validated query: {query}"},
	{StagePerformanceFeedback, CategoryFeedback, "Analyze the performance of the executed query: {query}"},
}

// Workflow is an ordered set of stages. Execution order is by ascending
// order key, ties broken by position. A Workflow owns its stages; mutation
// returns a new Workflow and never touches the parent.
type Workflow struct {
	stages   []Stage
	registry *Registry
}

// Default returns the canonical five-stage workflow, one stage per
// category, order keys 1 through 5.
func Default(registry *Registry) (*Workflow, error) {
	stages := make([]Stage, 0, len(defaultStages))
	for i, d := range defaultStages {
		fn, err := registry.Resolve(d.name)
		if err != nil {
			return nil, err
		}
		s, err := NewStage(d.name, d.category, d.prompt, fn, i+1)
		if err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return &Workflow{stages: stages, registry: registry}, nil
}

// New builds a workflow from explicit stages. Names must be unique.
func New(registry *Registry, stages ...Stage) (*Workflow, error) {
	seen := make(map[string]bool, len(stages))
	for _, s := range stages {
		if seen[s.name] {
			return nil, apperrors.Configurationf("new workflow", "duplicate stage name %q", s.name)
		}
		seen[s.name] = true
	}
	return &Workflow{stages: append([]Stage(nil), stages...), registry: registry}, nil
}

// Len returns the number of stages.
func (w *Workflow) Len() int { return len(w.stages) }

// Stages returns a copy of the stages in container order.
func (w *Workflow) Stages() []Stage {
	return append([]Stage(nil), w.stages...)
}

// Ordered returns a copy of the stages in execution order.
func (w *Workflow) Ordered() []Stage {
	out := w.Stages()
	sort.SliceStable(out, func(i, j int) bool { return out[i].orderKey < out[j].orderKey })
	return out
}

// ActiveStageNames lists active stage names in execution order.
func (w *Workflow) ActiveStageNames() []string {
	var names []string
	for _, s := range w.Ordered() {
		if s.active {
			names = append(names, s.name)
		}
	}
	return names
}

func (w *Workflow) clone() *Workflow {
	return &Workflow{stages: w.Stages(), registry: w.registry}
}

func (w *Workflow) hasStage(name string) bool {
	for _, s := range w.stages {
		if s.name == name {
			return true
		}
	}
	return false
}

// StageResult is the output of one executed stage.
type StageResult struct {
	Stage  string `json:"stage"`
	Prompt string `json:"prompt"`
	Output any    `json:"output"`
}

// Execution is the ordered record of one workflow run.
type Execution struct {
	Input   string        `json:"input"`
	Query   string        `json:"query"`
	Results []StageResult `json:"results"`
}

// Output returns the recorded output of the named stage.
func (e *Execution) Output(stage string) (any, bool) {
	for _, r := range e.Results {
		if r.Stage == stage {
			return r.Output, true
		}
	}
	return nil, false
}

// Execute runs the active stages in order. Each transform sees the current
// working query, which is replaced only by string outputs. A failing
// transform stops the run with a transform execution error.
func (w *Workflow) Execute(ctx context.Context, query string) (*Execution, error) {
	exec := &Execution{Input: query, Query: query}
	for _, s := range w.Ordered() {
		if !s.active {
			continue
		}
		if err := ctx.Err(); err != nil {
			return exec, apperrors.TransformExecution("execute "+s.name, err)
		}

		prompt := s.Render(exec.Query)
		out, err := s.transform(ctx, exec.Query)
		if err != nil {
			return exec, apperrors.TransformExecution("execute "+s.name, err)
		}
		exec.Results = append(exec.Results, StageResult{Stage: s.name, Prompt: prompt, Output: out})
		if q, ok := out.(string); ok {
			exec.Query = q
		}
	}
	return exec, nil
}
