package evolution

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"query-evolver/internal/repository"
	"query-evolver/internal/workflow"
	"query-evolver/pkg/models"
)

// SeedDefault writes the default workflow as generation 0 when the store is
// empty. It reports whether a record was written.
func SeedDefault(ctx context.Context, store repository.GenerationStore, registry *workflow.Registry) (*models.Generation, bool, error) {
	latest, err := store.Latest(ctx)
	if err == nil {
		return latest, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	wf, err := workflow.Default(registry)
	if err != nil {
		return nil, false, err
	}
	rec := &models.Generation{
		Generation: 0,
		Workflow:   wf.Serialize(),
		RunID:      uuid.NewString(),
		Mutation:   "seed",
		Accepted:   true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := store.Save(ctx, rec); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// Import stores wf as the generation after the latest one, so the next run
// resumes from it. Best performance and matched queries carry over from the
// latest record.
func Import(ctx context.Context, store repository.GenerationStore, wf *workflow.Workflow) (*models.Generation, error) {
	rec := &models.Generation{
		Workflow:  wf.Serialize(),
		RunID:     uuid.NewString(),
		Mutation:  "import",
		Accepted:  true,
		CreatedAt: time.Now().UTC(),
	}

	latest, err := store.Latest(ctx)
	switch {
	case err == nil:
		rec.Generation = latest.Generation + 1
		rec.BestPerformance = latest.BestPerformance
		rec.Queries = latest.Queries
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	if err := store.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
