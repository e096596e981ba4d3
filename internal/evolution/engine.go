// Package evolution runs the generation loop that mutates a workflow,
// scores it against its parent and checkpoints the survivor.
package evolution

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"query-evolver/internal/apperrors"
	"query-evolver/internal/logging"
	"query-evolver/internal/repository"
	"query-evolver/internal/services"
	"query-evolver/internal/workflow"
	"query-evolver/pkg/models"
)

// State is a step of the generation loop.
type State int32

const (
	StateIdle State = iota
	StateMutate
	StateEvaluateCurrent
	StateEvaluateMutated
	StateSelect
	StatePersist
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateMutate:
		return "MUTATE"
	case StateEvaluateCurrent:
		return "EVALUATE_CURRENT"
	case StateEvaluateMutated:
		return "EVALUATE_MUTATED"
	case StateSelect:
		return "SELECT"
	case StatePersist:
		return "PERSIST"
	case StateDone:
		return "DONE"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Policy decides whether a candidate replaces the current workflow.
type Policy string

const (
	// PolicyHillClimb adopts the candidate only when it scores strictly
	// higher.
	PolicyHillClimb Policy = "hill_climb"
	// PolicyAlwaysReplace adopts every candidate.
	PolicyAlwaysReplace Policy = "always_replace"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyHillClimb, PolicyAlwaysReplace:
		return p, nil
	case "":
		return PolicyHillClimb, nil
	}
	return "", apperrors.Configurationf("parse policy", "unknown selection policy %q", s)
}

// Checkpoint is the loop state carried between generations.
type Checkpoint struct {
	// Generation is the index of the next generation to run.
	Generation      int
	BestPerformance float64
	Workflow        *workflow.Workflow
	// Queries holds the generated query that last matched each benchmark
	// question exactly.
	Queries         map[string]string
}

// Advisor diagnoses a benchmark report and proposes a stage.
type Advisor interface {
	Advise(ctx context.Context, report string, stages []string) (services.Advice, error)
}

// Options configures an Engine.
type Options struct {
	Generations int
	Policy      Policy
	Rand        workflow.Rand
	Logger      *logging.Logger
	Now         func() time.Time
	// Advisor is consulted after every selection when set.
	Advisor     Advisor
}

// Engine runs the mutate, evaluate, select and persist cycle for a fixed
// number of generations.
type Engine struct {
	fitness     Fitness
	store       repository.GenerationStore
	generations int
	policy      Policy
	rng         workflow.Rand
	logger      *logging.Logger
	now         func() time.Time
	advisor     Advisor

	state atomic.Int32
}

// NewEngine creates a new Engine.
func NewEngine(fitness Fitness, store repository.GenerationStore, opts Options) (*Engine, error) {
	if err := initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	if opts.Generations < 0 {
		return nil, apperrors.Configurationf("new engine", "generations cannot be negative")
	}
	policy, err := ParsePolicy(string(opts.Policy))
	if err != nil {
		return nil, err
	}

	e := &Engine{
		fitness:     fitness,
		store:       store,
		generations: opts.Generations,
		policy:      policy,
		rng:         opts.Rand,
		logger:      opts.Logger,
		now:         opts.Now,
		advisor:     opts.Advisor,
	}
	if e.rng == nil {
		e.rng = workflow.NewRand(0)
	}
	if e.logger == nil {
		e.logger = logging.Nop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// State returns the step the loop is currently in.
func (e *Engine) State() State { return State(e.state.Load()) }

func (e *Engine) enter(s State) {
	e.state.Store(int32(s))
	e.logger.Debug("evolution state", "state", s.String())
}

// Run executes the configured number of generations starting from start.
// Evaluation and persistence are not interrupted by ctx; cancellation is
// observed once the running generation has been persisted, and the
// checkpoint returned then describes the last persisted generation.
func (e *Engine) Run(ctx context.Context, start Checkpoint) (Checkpoint, error) {
	if start.Workflow == nil {
		return start, apperrors.Configurationf("run", "no initial workflow")
	}

	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID)
	work := context.WithoutCancel(ctx)
	cp := start

	e.enter(StateIdle)
	logger.Info("evolution started",
		"start_generation", cp.Generation,
		"generations", e.generations,
		"policy", string(e.policy),
		"best_performance", cp.BestPerformance)

	for range e.generations {
		if err := ctx.Err(); err != nil {
			e.enter(StateDone)
			return cp, err
		}
		cp = e.generation(work, logger, runID, cp)
	}

	e.enter(StateDone)
	logger.Info("evolution finished",
		"generations", e.generations,
		"best_performance", cp.BestPerformance,
		"active_stages", strings.Join(cp.Workflow.ActiveStageNames(), ", "))
	return cp, ctx.Err()
}

func (e *Engine) generation(ctx context.Context, logger *logging.Logger, runID string, cp Checkpoint) Checkpoint {
	ctx, span := tracer.Start(ctx, "Engine.generation", trace.WithAttributes(attribute.Int("generation", cp.Generation)))
	defer span.End()

	e.enter(StateMutate)
	candidate, op := cp.Workflow.Mutate(e.rng)

	e.enter(StateEvaluateCurrent)
	currentEval := e.evaluate(ctx, logger, "current", cp.Workflow)
	current := currentEval.Score

	e.enter(StateEvaluateMutated)
	mutatedEval := e.evaluate(ctx, logger, "candidate", candidate)
	mutated := mutatedEval.Score

	e.enter(StateSelect)
	accepted, score := e.selectCandidate(current, mutated)
	next := Checkpoint{
		Generation:      cp.Generation + 1,
		BestPerformance: max(cp.BestPerformance, score),
		Workflow:        cp.Workflow,
	}
	survivor := currentEval
	if accepted {
		next.Workflow = candidate
		survivor = mutatedEval
	}
	next.Queries = mergeQueries(cp.Queries, survivor.Matched())
	advice := e.advise(ctx, logger, cp.Generation, survivor, next.Workflow)

	e.enter(StatePersist)
	rec := &models.Generation{
		Generation:      cp.Generation,
		BestPerformance: next.BestPerformance,
		Workflow:        next.Workflow.Serialize(),
		RunID:           runID,
		CurrentScore:    current,
		CandidateScore:  mutated,
		Mutation:        string(op),
		Accepted:        accepted,
		CreatedAt:       e.now().UTC(),
		Queries:         next.Queries,
		Diagnosis:       advice.Diagnosis,
		Suggestion:      advice.Suggestion,
	}
	if err := e.store.Save(ctx, rec); err != nil {
		recordPersistFailure(ctx)
		logger.Error("failed to persist generation", "generation", cp.Generation, "error", err)
	}
	recordGeneration(ctx, accepted)
	span.SetAttributes(attribute.Bool("accepted", accepted), attribute.String("mutation", string(op)))

	logger.Info("generation complete",
		"generation", cp.Generation,
		"current_score", current,
		"candidate_score", mutated,
		"delta", mutated-current,
		"mutation", string(op),
		"accepted", accepted,
		"best_performance", next.BestPerformance,
		"matched_queries", len(next.Queries),
		"active_stages", strings.Join(next.Workflow.ActiveStageNames(), ", "))
	return next
}

// advise hands the surviving workflow's benchmark report to the advisor.
// Advisor failures never stop the loop.
func (e *Engine) advise(ctx context.Context, logger *logging.Logger, generation int, ev Evaluation, wf *workflow.Workflow) services.Advice {
	if e.advisor == nil || len(ev.Items) == 0 {
		return services.Advice{}
	}
	advice, err := e.advisor.Advise(ctx, ev.Report(), wf.ActiveStageNames())
	if err != nil {
		logger.Warn("workflow diagnosis failed", "generation", generation, "error", err)
	}
	if advice.Diagnosis != "" {
		logger.Info("workflow diagnosis", "generation", generation, "diagnosis", advice.Diagnosis)
	}
	if s := advice.Suggestion; s != nil {
		logger.Info("suggested stage",
			"generation", generation,
			"stage", s.Name,
			"description", s.Description,
			"prompt", s.Prompt)
	}
	return advice
}

func mergeQueries(prev, matched map[string]string) map[string]string {
	if len(prev) == 0 && len(matched) == 0 {
		return nil
	}
	out := make(map[string]string, len(prev)+len(matched))
	maps.Copy(out, prev)
	maps.Copy(out, matched)
	return out
}

// evaluate scores wf; a workflow that cannot be scored at all counts as 0.
func (e *Engine) evaluate(ctx context.Context, logger *logging.Logger, variant string, wf *workflow.Workflow) Evaluation {
	var ev Evaluation
	var err error
	if d, ok := e.fitness.(DetailedFitness); ok {
		ev, err = d.EvaluateDetailed(ctx, wf)
	} else {
		ev.Score, err = e.fitness.Evaluate(ctx, wf)
	}
	if err != nil {
		logger.Warn("evaluation failed", "variant", variant, "error", err)
		ev.Score = 0
	}
	recordFitness(ctx, variant, ev.Score)
	return ev
}

// selectCandidate reports whether the candidate is adopted and the score of
// the workflow that survives.
func (e *Engine) selectCandidate(current, mutated float64) (bool, float64) {
	if e.policy == PolicyAlwaysReplace || mutated > current {
		return true, mutated
	}
	return false, current
}
