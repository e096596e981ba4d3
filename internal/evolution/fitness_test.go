package evolution

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"query-evolver/internal/services"
	"query-evolver/internal/workflow"
	"query-evolver/pkg/models"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) Generate(ctx context.Context, question string) (string, error) {
	args := m.Called(ctx, question)
	return args.String(0), args.Error(1)
}

// fakeGraph answers queries from a fixed table and counts executions.
type fakeGraph struct {
	mu      sync.Mutex
	results map[string][]models.Row
	runs    map[string]int
}

func newFakeGraph(results map[string][]models.Row) *fakeGraph {
	return &fakeGraph{results: results, runs: make(map[string]int)}
}

func (g *fakeGraph) Run(_ context.Context, query string) services.QueryResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.runs[query]++
	rows, ok := g.results[query]
	if !ok {
		return services.QueryResult{Query: query, Err: errors.New("syntax error")}
	}
	return services.QueryResult{Query: query, Rows: rows}
}

func (g *fakeGraph) Schema(context.Context) (string, error) { return "", nil }

const (
	countQuery = "MATCH (p:Patient) RETURN count(p) AS n"
	namesQuery = "MATCH (p:Provider) RETURN p.name AS name"
)

func graphFixture() *fakeGraph {
	return newFakeGraph(map[string][]models.Row{
		countQuery: {{"n": int64(3)}},
		namesQuery: {{"name": "Ada"}, {"name": "Bob"}},
		"MATCH (p:Provider) RETURN p.name AS who": {{"who": "Ada"}, {"who": "Eve"}},
	})
}

var benchmark = []models.BenchmarkItem{
	{Question: "How many patients?", Answer: countQuery},
	{Question: "Provider names?", Answer: namesQuery},
}

func defaultWorkflow(t *testing.T) *workflow.Workflow {
	t.Helper()
	wf, err := workflow.Default(workflow.NewRegistry())
	require.NoError(t, err)
	return wf
}

func TestBenchmarkFitnessMean(t *testing.T) {
	writer := new(mockWriter)
	writer.On("Generate", mock.Anything, "How many patients?").Return(countQuery, nil)
	writer.On("Generate", mock.Anything, "Provider names?").Return("MATCH (p:Provider) RETURN p.name AS who", nil)

	graph := graphFixture()
	fitness := NewBenchmarkFitness(benchmark, writer, graph, 2, nil)

	score, err := fitness.Evaluate(context.Background(), defaultWorkflow(t))
	require.NoError(t, err)
	// Exact match scores 1; {Ada, Eve} against {Ada, Bob} shares one of
	// three values.
	assert.InDelta(t, (1.0+1.0/3.0)/2, score, 1e-12)

	_, err = fitness.Evaluate(context.Background(), defaultWorkflow(t))
	require.NoError(t, err)
	assert.Equal(t, 1, graph.runs[namesQuery], "ground truth is cached")
	// Two generated runs plus one cached ground-truth run.
	assert.Equal(t, 3, graph.runs[countQuery])
}

func TestBenchmarkFitnessExcludesFailedItems(t *testing.T) {
	writer := new(mockWriter)
	writer.On("Generate", mock.Anything, "How many patients?").Return(countQuery, nil)
	writer.On("Generate", mock.Anything, "Provider names?").Return("", errors.New("llm down"))

	fitness := NewBenchmarkFitness(benchmark, writer, graphFixture(), 1, nil)
	score, err := fitness.Evaluate(context.Background(), defaultWorkflow(t))
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestBenchmarkFitnessEmptyQueryScoresZero(t *testing.T) {
	writer := new(mockWriter)
	writer.On("Generate", mock.Anything, "How many patients?").Return("  ", nil)
	writer.On("Generate", mock.Anything, "Provider names?").Return(namesQuery, nil)

	fitness := NewBenchmarkFitness(benchmark, writer, graphFixture(), 4, nil)
	score, err := fitness.Evaluate(context.Background(), defaultWorkflow(t))
	require.NoError(t, err)
	assert.Equal(t, 0.5, score)
}

func TestBenchmarkFitnessFailedGraphQueryHasNoRows(t *testing.T) {
	writer := new(mockWriter)
	writer.On("Generate", mock.Anything, mock.Anything).Return("MATCH (x) RETURN y", nil)

	fitness := NewBenchmarkFitness(benchmark[:1], writer, graphFixture(), 1, nil)
	score, err := fitness.Evaluate(context.Background(), defaultWorkflow(t))
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestBenchmarkFitnessTransformFailure(t *testing.T) {
	registry := workflow.NewRegistry()
	registry.Register(workflow.KeyQueryValidation, func(context.Context, string) (any, error) {
		return nil, errors.New("validator crashed")
	})
	wf, err := workflow.Default(registry)
	require.NoError(t, err)

	writer := new(mockWriter)
	writer.On("Generate", mock.Anything, mock.Anything).Return(countQuery, nil)

	fitness := NewBenchmarkFitness(benchmark, writer, graphFixture(), 2, nil)
	_, err = fitness.Evaluate(context.Background(), wf)
	assert.ErrorIs(t, err, ErrNoScoredItems)
}

func TestBenchmarkFitnessEvaluateDetailed(t *testing.T) {
	writer := new(mockWriter)
	writer.On("Generate", mock.Anything, "How many patients?").Return(countQuery, nil)
	writer.On("Generate", mock.Anything, "Provider names?").Return("MATCH (p:Provider) RETURN p.name AS who", nil)

	fitness := NewBenchmarkFitness(benchmark, writer, graphFixture(), 2, nil)
	ev, err := fitness.EvaluateDetailed(context.Background(), defaultWorkflow(t))
	require.NoError(t, err)

	require.Len(t, ev.Items, 2)
	assert.Equal(t, "How many patients?", ev.Items[0].Question)
	assert.Equal(t, countQuery, ev.Items[0].Generated)
	assert.Equal(t, 1.0, ev.Items[0].Score)
	require.NotNil(t, ev.Items[0].Valid)
	assert.True(t, *ev.Items[0].Valid)
	assert.InDelta(t, 1.0/3.0, ev.Items[1].Score, 1e-12)

	assert.Equal(t, map[string]string{"How many patients?": countQuery}, ev.Matched())

	report := ev.Report()
	assert.Contains(t, report, "Item 1: How many patients?")
	assert.Contains(t, report, "expected:  "+namesQuery)
	assert.Contains(t, report, "valid:     true")
	assert.Contains(t, report, "Overall score: 66.67%")
}

func TestEvaluationReportShowsErrors(t *testing.T) {
	ev := Evaluation{Items: []ItemResult{{Question: "Q?", Expected: countQuery, Err: errors.New("llm down")}}}
	assert.Contains(t, ev.Report(), "error:     llm down")
	assert.NotContains(t, ev.Report(), "score:")
	assert.Empty(t, ev.Matched())
}
