package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-evolver/internal/apperrors"
)

func appendTransform(suffix string) Transform {
	return func(_ context.Context, q string) (any, error) { return q + suffix, nil }
}

func mustStage(t *testing.T, name string, fn Transform, key int) Stage {
	t.Helper()
	s, err := NewStage(name, CategoryOptimization, name+": {query}", fn, key)
	require.NoError(t, err)
	return s
}

func TestDefaultWorkflow(t *testing.T) {
	w, err := Default(NewRegistry())
	require.NoError(t, err)
	require.Equal(t, 5, w.Len())

	for i, s := range w.Stages() {
		assert.Equal(t, Categories[i], s.Category())
		assert.Equal(t, i+1, s.OrderKey())
		assert.True(t, s.Active())
	}
	assert.Equal(t, []string{
		StageQueryAnalysis, StageQueryOptimization, StageQueryValidation,
		StageQueryExecution, StagePerformanceFeedback,
	}, w.ActiveStageNames())
}

func TestDefaultWorkflowMissingTransform(t *testing.T) {
	_, err := Default(&Registry{transforms: map[string]Transform{}})
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestNewRejectsDuplicateNames(t *testing.T) {
	a := mustStage(t, "A", appendTransform("a"), 1)
	_, err := New(NewRegistry(), a, a)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestExecuteDefaultWorkflow(t *testing.T) {
	w, err := Default(NewRegistry())
	require.NoError(t, err)

	exec, err := w.Execute(context.Background(), "MATCH (n)\n  RETURN n;")
	require.NoError(t, err)

	assert.Equal(t, "MATCH (n) RETURN n", exec.Query)
	require.Len(t, exec.Results, 5)
	assert.Equal(t, StageQueryAnalysis, exec.Results[0].Stage)
	assert.Equal(t, "Analyze the following Cypher query for optimization opportunities: MATCH (n)\n  RETURN n;", exec.Results[0].Prompt)
	assert.Equal(t, "Validate the following optimized query: MATCH (n) RETURN n", exec.Results[2].Prompt)

	valid, ok := exec.Output(StageQueryValidation)
	require.True(t, ok)
	assert.Equal(t, true, valid)

	_, ok = exec.Output("Missing")
	assert.False(t, ok)
}

func TestExecuteOrdersByKeyStably(t *testing.T) {
	w, err := New(NewRegistry(),
		mustStage(t, "A", appendTransform("a"), 2),
		mustStage(t, "B", appendTransform("b"), 1),
		mustStage(t, "C", appendTransform("c"), 1),
	)
	require.NoError(t, err)

	exec, err := w.Execute(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "qbca", exec.Query)
	assert.Equal(t, []string{"B", "C", "A"}, w.ActiveStageNames())
}

func TestExecuteSkipsInactiveAndKeepsQueryForNonStrings(t *testing.T) {
	inactive := mustStage(t, "Off", appendTransform("!"), 1)
	inactive.SetActive(false)
	counter := mustStage(t, "Count", func(_ context.Context, q string) (any, error) { return len(q), nil }, 2)
	tail := mustStage(t, "Tail", appendTransform("z"), 3)

	w, err := New(NewRegistry(), inactive, counter, tail)
	require.NoError(t, err)

	exec, err := w.Execute(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abcz", exec.Query)
	require.Len(t, exec.Results, 2)
	assert.Equal(t, 3, exec.Results[0].Output)
}

func TestExecuteTransformFailure(t *testing.T) {
	boom := errors.New("llm unavailable")
	failing := mustStage(t, "Fail", func(context.Context, string) (any, error) { return nil, boom }, 2)
	w, err := New(NewRegistry(), mustStage(t, "First", appendTransform("1"), 1), failing)
	require.NoError(t, err)

	exec, err := w.Execute(context.Background(), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTransformExecution)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "q1", exec.Query)
}

func TestExecuteCancelled(t *testing.T) {
	w, err := Default(NewRegistry())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.Execute(ctx, "MATCH (n) RETURN n")
	assert.ErrorIs(t, err, context.Canceled)
}
