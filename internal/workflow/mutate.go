package workflow

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Operator names a structural mutation.
type Operator string

const (
	OpAddStage      Operator = "add_stage"
	OpRemoveStage   Operator = "remove_stage"
	OpModifyPrompt  Operator = "modify_prompt"
	OpReorderStages Operator = "reorder_stages"
	OpCombineStages Operator = "combine_stages"
)

// Operators lists the mutation operators; Mutate picks one uniformly.
var Operators = []Operator{
	OpAddStage,
	OpRemoveStage,
	OpModifyPrompt,
	OpReorderStages,
	OpCombineStages,
}

// Rand is the randomness Mutate draws from. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewRand returns a seeded source. Seed 0 draws a random seed.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Mutate returns a copy of w with exactly one uniformly chosen operator
// applied, and the operator used.
func (w *Workflow) Mutate(rng Rand) (*Workflow, Operator) {
	op := Operators[rng.IntN(len(Operators))]
	return w.MutateWith(op, rng), op
}

// MutateWith returns a copy of w with op applied.
func (w *Workflow) MutateWith(op Operator, rng Rand) *Workflow {
	child := w.clone()
	switch op {
	case OpAddStage:
		child.addStage(rng)
	case OpRemoveStage:
		child.removeStage(rng)
	case OpModifyPrompt:
		child.modifyPrompt(rng)
	case OpReorderStages:
		child.reorderStages(rng)
	case OpCombineStages:
		child.combineStages(rng)
	}
	return child
}

func (w *Workflow) addStage(rng Rand) {
	n := len(w.stages)
	name := fmt.Sprintf("New Stage %d", n)
	for i := n + 1; w.hasStage(name); i++ {
		name = fmt.Sprintf("New Stage %d", i)
	}

	w.stages = append(w.stages, Stage{
		name:      name,
		category:  Categories[rng.IntN(len(Categories))],
		prompt:    "New prompt template for " + Placeholder,
		transform: w.placeholderTransform(),
		active:    true,
		orderKey:  n + 1,
	})
}

func (w *Workflow) removeStage(rng Rand) {
	if len(w.stages) <= 1 {
		return
	}
	i := rng.IntN(len(w.stages))
	w.stages = append(w.stages[:i], w.stages[i+1:]...)
}

func (w *Workflow) modifyPrompt(rng Rand) {
	if len(w.stages) == 0 {
		return
	}
	s := &w.stages[rng.IntN(len(w.stages))]
	tag := strings.ReplaceAll(s.name, Placeholder, "query")
	s.prompt = fmt.Sprintf("Modified prompt for %s: %s", tag, Placeholder)
}

func (w *Workflow) reorderStages(rng Rand) {
	rng.Shuffle(len(w.stages), func(i, j int) {
		w.stages[i], w.stages[j] = w.stages[j], w.stages[i]
	})
	for i := range w.stages {
		w.stages[i].orderKey = i + 1
	}
}

func (w *Workflow) combineStages(rng Rand) {
	if len(w.stages) < 2 {
		return
	}
	i := rng.IntN(len(w.stages) - 1)
	first, second := w.stages[i], w.stages[i+1]

	name := fmt.Sprintf("Combined %s and %s", first.name, second.name)
	for n := 2; w.hasStage(name); n++ {
		name = fmt.Sprintf("Combined %s and %s (%d)", first.name, second.name, n)
	}

	w.stages[i] = Stage{
		name:      name,
		category:  first.category,
		prompt:    "Combined prompt: " + Placeholder,
		transform: first.transform,
		active:    first.active || second.active,
		orderKey:  first.orderKey,
	}
	w.stages = append(w.stages[:i+1], w.stages[i+2:]...)
}

func (w *Workflow) placeholderTransform() Transform {
	if w.registry != nil {
		if fn, ok := w.registry.transforms[KeyNewStage]; ok {
			return fn
		}
	}
	return AnalyzeQuery
}
