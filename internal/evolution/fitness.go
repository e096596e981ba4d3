package evolution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"query-evolver/internal/apperrors"
	"query-evolver/internal/logging"
	"query-evolver/internal/services"
	"query-evolver/internal/similarity"
	"query-evolver/internal/workflow"
	"query-evolver/pkg/models"
)

// ErrNoScoredItems is returned when every benchmark item failed.
var ErrNoScoredItems = errors.New("no benchmark item could be scored")

// Fitness scores a workflow. Higher is better.
type Fitness interface {
	Evaluate(ctx context.Context, wf *workflow.Workflow) (float64, error)
}

// FitnessFunc adapts a function to the Fitness interface.
type FitnessFunc func(ctx context.Context, wf *workflow.Workflow) (float64, error)

// Evaluate calls f.
func (f FitnessFunc) Evaluate(ctx context.Context, wf *workflow.Workflow) (float64, error) {
	return f(ctx, wf)
}

// QueryWriter produces a candidate query for a natural-language question.
type QueryWriter interface {
	Generate(ctx context.Context, question string) (string, error)
}

// BenchmarkFitness scores a workflow as the mean result-set similarity over a
// benchmark. Each item is answered by the writer, passed through the
// workflow and executed next to its ground-truth query.
type BenchmarkFitness struct {
	items       []models.BenchmarkItem
	writer      QueryWriter
	graph       services.GraphClient
	concurrency int
	logger      *logging.Logger

	mu    sync.Mutex
	truth map[string]models.ResultSet
}

// NewBenchmarkFitness creates a BenchmarkFitness evaluating up to
// concurrency items at once.
func NewBenchmarkFitness(items []models.BenchmarkItem, writer QueryWriter, graph services.GraphClient, concurrency int, logger *logging.Logger) *BenchmarkFitness {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &BenchmarkFitness{
		items:       items,
		writer:      writer,
		graph:       graph,
		concurrency: concurrency,
		logger:      logger,
		truth:       make(map[string]models.ResultSet),
	}
}

// ItemResult is the outcome of one benchmark item.
type ItemResult struct {
	Question  string
	Expected  string
	Generated string
	Score     float64
	// Valid is the verdict of the validation stage when it ran.
	Valid     *bool
	Err       error
}

// Scored reports whether the item counts towards the mean.
func (r ItemResult) Scored() bool { return r.Err == nil }

// Evaluation is a scored benchmark run.
type Evaluation struct {
	Score float64
	Items []ItemResult
}

// Matched returns the generated query of every item that reproduced its
// ground-truth result exactly, keyed by question.
func (ev Evaluation) Matched() map[string]string {
	out := make(map[string]string)
	for _, r := range ev.Items {
		if r.Scored() && r.Score == 1 && r.Generated != "" {
			out[r.Question] = r.Generated
		}
	}
	return out
}

// Report renders the run as plain text, one block per item.
func (ev Evaluation) Report() string {
	var b strings.Builder
	for i, r := range ev.Items {
		fmt.Fprintf(&b, "Item %d: %s\n", i+1, r.Question)
		fmt.Fprintf(&b, "  expected:  %s\n", r.Expected)
		fmt.Fprintf(&b, "  generated: %s\n", r.Generated)
		if r.Valid != nil {
			fmt.Fprintf(&b, "  valid:     %t\n", *r.Valid)
		}
		if r.Err != nil {
			fmt.Fprintf(&b, "  error:     %v\n", r.Err)
			continue
		}
		fmt.Fprintf(&b, "  score:     %.2f\n", r.Score)
	}
	fmt.Fprintf(&b, "Overall score: %.2f%%\n", ev.Score*100)
	return b.String()
}

// DetailedFitness is a Fitness that can also report per-item results.
type DetailedFitness interface {
	Fitness
	EvaluateDetailed(ctx context.Context, wf *workflow.Workflow) (Evaluation, error)
}

// Evaluate returns the arithmetic mean of the item scores.
func (f *BenchmarkFitness) Evaluate(ctx context.Context, wf *workflow.Workflow) (float64, error) {
	ev, err := f.EvaluateDetailed(ctx, wf)
	return ev.Score, err
}

// EvaluateDetailed scores every item. Failed items are logged and left out
// of the mean.
func (f *BenchmarkFitness) EvaluateDetailed(ctx context.Context, wf *workflow.Workflow) (Evaluation, error) {
	results := make([]ItemResult, len(f.items))

	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, item := range f.items {
		g.Go(func() error {
			res := f.scoreItem(ctx, wf, item)
			if res.Err != nil {
				f.logger.Warn("benchmark item failed", "item", i, "question", item.Question, "error", res.Err)
			}
			results[i] = res
			return nil
		})
	}
	g.Wait()

	ev := Evaluation{Items: results}
	var sum float64
	var n int
	for _, r := range results {
		if r.Scored() {
			sum += r.Score
			n++
		}
	}
	if n == 0 {
		return ev, ErrNoScoredItems
	}
	ev.Score = sum / float64(n)
	return ev, nil
}

func (f *BenchmarkFitness) scoreItem(ctx context.Context, wf *workflow.Workflow, item models.BenchmarkItem) ItemResult {
	res := ItemResult{Question: item.Question, Expected: item.Answer}

	generated, err := f.writer.Generate(ctx, item.Question)
	if err != nil {
		res.Err = apperrors.TransformExecution("generate query", err)
		return res
	}
	if strings.TrimSpace(generated) == "" {
		return res
	}

	exec, err := wf.Execute(ctx, generated)
	if err != nil {
		res.Generated, res.Err = generated, err
		return res
	}
	res.Generated = exec.Query
	if out, ok := exec.Output(workflow.StageQueryValidation); ok {
		if valid, isBool := out.(bool); isBool {
			res.Valid = &valid
		}
	}
	if strings.TrimSpace(exec.Query) == "" {
		return res
	}

	actual := f.graph.Run(ctx, exec.Query)
	if !actual.OK() {
		f.logger.Debug("generated query failed", "query", exec.Query, "error", actual.Err)
	}
	res.Score = similarity.ComparePair(actual.ResultSet(), f.groundTruth(ctx, item.Answer))
	return res
}

// groundTruth runs an expected query once; successful results are reused
// for the rest of the run.
func (f *BenchmarkFitness) groundTruth(ctx context.Context, query string) models.ResultSet {
	f.mu.Lock()
	rs, ok := f.truth[query]
	f.mu.Unlock()
	if ok {
		return rs
	}

	res := f.graph.Run(ctx, query)
	if !res.OK() {
		f.logger.Warn("ground-truth query failed", "query", query, "error", res.Err)
		return res.ResultSet()
	}

	f.mu.Lock()
	f.truth[query] = res.ResultSet()
	f.mu.Unlock()
	return res.ResultSet()
}
