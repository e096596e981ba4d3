package repository

import (
	"context"
	"errors"

	"query-evolver/pkg/models"
)

// ErrNotFound is returned when a requested generation does not exist.
var ErrNotFound = errors.New("generation not found")

// GenerationStore persists one snapshot per generation.
type GenerationStore interface {
	// Save writes the snapshot for rec.Generation, replacing any earlier one.
	Save(ctx context.Context, rec *models.Generation) error
	// Get retrieves a generation by number.
	Get(ctx context.Context, generation int) (*models.Generation, error)
	// Latest retrieves the highest-numbered generation.
	Latest(ctx context.Context) (*models.Generation, error)
	// List returns every generation in ascending order.
	List(ctx context.Context) ([]*models.Generation, error)
	// Reset removes every generation. Resetting an empty or missing store
	// is not an error.
	Reset(ctx context.Context) error
}
