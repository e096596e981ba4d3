package workflow

import (
	"fmt"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRand replays fixed draws so each branch can be forced.
type scriptedRand struct {
	ints  []int
	swaps [][2]int
}

func (r *scriptedRand) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

func (r *scriptedRand) Shuffle(_ int, swap func(i, j int)) {
	for _, s := range r.swaps {
		swap(s[0], s[1])
	}
}

func defaultWorkflow(t *testing.T) *Workflow {
	t.Helper()
	w, err := Default(NewRegistry())
	require.NoError(t, err)
	return w
}

func names(w *Workflow) []string {
	var out []string
	for _, s := range w.Stages() {
		out = append(out, s.Name())
	}
	return out
}

func TestMutateAddStage(t *testing.T) {
	parent := defaultWorkflow(t)
	child, op := parent.Mutate(&scriptedRand{ints: []int{0, 4}})

	assert.Equal(t, OpAddStage, op)
	require.Equal(t, 6, child.Len())
	added := child.Stages()[5]
	assert.Equal(t, "New Stage 5", added.Name())
	assert.Equal(t, CategoryFeedback, added.Category())
	assert.Equal(t, "New prompt template for {query}", added.PromptTemplate())
	assert.Equal(t, 6, added.OrderKey())
	assert.True(t, added.Active())
	assert.Equal(t, 5, parent.Len())
}

func TestMutateAddStageKeepsNamesUnique(t *testing.T) {
	w := defaultWorkflow(t)
	w = w.MutateWith(OpAddStage, &scriptedRand{})
	w = w.MutateWith(OpRemoveStage, &scriptedRand{ints: []int{0}})
	w = w.MutateWith(OpAddStage, &scriptedRand{})

	assert.Equal(t, []string{
		StageQueryOptimization, StageQueryValidation, StageQueryExecution,
		StagePerformanceFeedback, "New Stage 5", "New Stage 6",
	}, names(w))
}

func TestMutateRemoveStage(t *testing.T) {
	parent := defaultWorkflow(t)
	child, op := parent.Mutate(&scriptedRand{ints: []int{1, 2}})

	assert.Equal(t, OpRemoveStage, op)
	assert.Equal(t, []string{StageQueryAnalysis, StageQueryOptimization, StageQueryExecution, StagePerformanceFeedback}, names(child))
	assert.Equal(t, 5, parent.Len())
}

func TestMutateRemoveStageKeepsLastStage(t *testing.T) {
	w, err := New(NewRegistry(), mustStage(t, "Only", appendTransform("x"), 1))
	require.NoError(t, err)

	child := w.MutateWith(OpRemoveStage, &scriptedRand{})
	assert.Equal(t, 1, child.Len())
}

func TestMutateModifyPrompt(t *testing.T) {
	parent := defaultWorkflow(t)
	child, op := parent.Mutate(&scriptedRand{ints: []int{2, 1}})

	assert.Equal(t, OpModifyPrompt, op)
	assert.Equal(t, "Modified prompt for Query Optimization: {query}", child.Stages()[1].PromptTemplate())
	assert.Equal(t, "Optimize the following Cypher query based on the analysis: {query}", parent.Stages()[1].PromptTemplate())
}

func TestMutateReorderStages(t *testing.T) {
	parent := defaultWorkflow(t)
	child, op := parent.Mutate(&scriptedRand{ints: []int{3}, swaps: [][2]int{{0, 4}}})

	assert.Equal(t, OpReorderStages, op)
	assert.Equal(t, []string{StagePerformanceFeedback, StageQueryOptimization, StageQueryValidation, StageQueryExecution, StageQueryAnalysis}, names(child))
	for i, s := range child.Stages() {
		assert.Equal(t, i+1, s.OrderKey())
	}
	assert.Equal(t, StagePerformanceFeedback, child.ActiveStageNames()[0])
	assert.Equal(t, 5, parent.Stages()[4].OrderKey())
	assert.Equal(t, StageQueryAnalysis, parent.ActiveStageNames()[0])
}

func TestMutateCombineStages(t *testing.T) {
	parent := defaultWorkflow(t)
	child, op := parent.Mutate(&scriptedRand{ints: []int{4, 1}})

	assert.Equal(t, OpCombineStages, op)
	require.Equal(t, 4, child.Len())
	combined := child.Stages()[1]
	assert.Equal(t, "Combined Query Optimization and Query Validation", combined.Name())
	assert.Equal(t, CategoryOptimization, combined.Category())
	assert.Equal(t, 2, combined.OrderKey())
	assert.Equal(t, "Combined prompt: {query}", combined.PromptTemplate())
	assert.Equal(t, []string{StageQueryAnalysis, "Combined Query Optimization and Query Validation", StageQueryExecution, StagePerformanceFeedback}, names(child))
}

func TestMutateCombineNeedsTwoStages(t *testing.T) {
	w, err := New(NewRegistry(), mustStage(t, "Only", appendTransform("x"), 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"Only"}, names(w.MutateWith(OpCombineStages, &scriptedRand{})))
}

func TestMutateEmptyWorkflowDoesNotPanic(t *testing.T) {
	w, err := New(NewRegistry())
	require.NoError(t, err)
	for _, op := range Operators {
		assert.NotPanics(t, func() { w.MutateWith(op, NewRand(1)) }, string(op))
	}
}

func TestNewRandIsDeterministicForSeed(t *testing.T) {
	a, b := NewRand(42), NewRand(42)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.IntN(1000), b.IntN(1000))
	}
}

func TestPropertyMutationInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("mutation changes stage count by at most one and keeps names unique", prop.ForAll(
		func(seed uint64, steps int) bool {
			rng := NewRand(seed | 1)
			w := defaultWorkflow(t)
			for i := 0; i < steps; i++ {
				child, op := w.Mutate(rng)
				if !checkMutation(w, child, op) {
					t.Logf("invariant broken by %s at step %d", op, i)
					return false
				}
				w = child
			}
			return true
		},
		gen.UInt64(),
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t)
}

func checkMutation(parent, child *Workflow, op Operator) bool {
	diff := child.Len() - parent.Len()
	switch op {
	case OpAddStage:
		if diff != 1 {
			return false
		}
	case OpRemoveStage:
		if diff != -1 && !(parent.Len() == 1 && diff == 0) {
			return false
		}
	case OpCombineStages:
		if diff != -1 && !(parent.Len() < 2 && diff == 0) {
			return false
		}
	case OpModifyPrompt:
		if diff != 0 {
			return false
		}
	case OpReorderStages:
		if diff != 0 {
			return false
		}
		p, c := names(parent), names(child)
		slices.Sort(p)
		slices.Sort(c)
		if !slices.Equal(p, c) {
			return false
		}
		for i, s := range child.Stages() {
			if s.OrderKey() != i+1 {
				return false
			}
		}
	default:
		return false
	}

	seen := map[string]bool{}
	for _, s := range child.Stages() {
		if seen[s.Name()] {
			return false
		}
		seen[s.Name()] = true
		if err := checkTemplate(s.PromptTemplate()); err != nil {
			return false
		}
	}
	return child.Len() >= 1
}

func ExampleWorkflow_MutateWith() {
	w, _ := Default(NewRegistry())
	child := w.MutateWith(OpCombineStages, NewRand(7))
	fmt.Println(w.Len(), child.Len())
	// Output: 5 4
}
