package evolution

import (
	"context"
	"errors"
	"fmt"

	"query-evolver/internal/repository"
	"query-evolver/internal/workflow"
)

// Resume builds the starting checkpoint from the latest stored generation,
// or from the default workflow when the store is empty.
func Resume(ctx context.Context, store repository.GenerationStore, registry *workflow.Registry) (Checkpoint, error) {
	latest, err := store.Latest(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		wf, err := workflow.Default(registry)
		if err != nil {
			return Checkpoint{}, err
		}
		return Checkpoint{Workflow: wf}, nil
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("failed to load latest generation: %w", err)
	}

	wf, err := workflow.Deserialize(latest.Workflow, registry)
	if err != nil {
		return Checkpoint{}, err
	}
	return Checkpoint{
		Generation:      latest.Generation + 1,
		BestPerformance: latest.BestPerformance,
		Workflow:        wf,
		Queries:         latest.Queries,
	}, nil
}
