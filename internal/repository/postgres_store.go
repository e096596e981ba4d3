package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"query-evolver/internal/apperrors"
	"query-evolver/pkg/models"
)

const generationsSchema = `CREATE TABLE IF NOT EXISTS generations (
	generation       INT PRIMARY KEY,
	run_id           TEXT NOT NULL DEFAULT '',
	best_performance DOUBLE PRECISION NOT NULL,
	current_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
	candidate_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
	mutation         TEXT NOT NULL DEFAULT '',
	accepted         BOOLEAN NOT NULL DEFAULT FALSE,
	workflow         JSONB NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	queries          JSONB NOT NULL DEFAULT 'null',
	diagnosis        TEXT NOT NULL DEFAULT '',
	suggestion       JSONB NOT NULL DEFAULT 'null'
)`

// generationsMigrations bring tables created before the diagnosis columns
// existed up to date.
var generationsMigrations = []string{
	`ALTER TABLE generations ADD COLUMN IF NOT EXISTS queries JSONB NOT NULL DEFAULT 'null'`,
	`ALTER TABLE generations ADD COLUMN IF NOT EXISTS diagnosis TEXT NOT NULL DEFAULT ''`,
	`ALTER TABLE generations ADD COLUMN IF NOT EXISTS suggestion JSONB NOT NULL DEFAULT 'null'`,
}

const generationColumns = "generation, run_id, best_performance, current_score, candidate_score, mutation, accepted, workflow, created_at, queries, diagnosis, suggestion"

// PostgresGenerationStore is a PostgreSQL implementation of GenerationStore.
type PostgresGenerationStore struct {
	db *pgxpool.Pool
}

// NewPostgresGenerationStore creates a new PostgresGenerationStore.
func NewPostgresGenerationStore(db *pgxpool.Pool) *PostgresGenerationStore {
	return &PostgresGenerationStore{db: db}
}

// EnsureSchema creates the generations table if it does not exist.
func (s *PostgresGenerationStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, generationsSchema); err != nil {
		return fmt.Errorf("failed to create generations table: %w", err)
	}
	for _, stmt := range generationsMigrations {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate generations table: %w", err)
		}
	}
	return nil
}

// Save upserts the snapshot for rec.Generation in a single statement.
func (s *PostgresGenerationStore) Save(ctx context.Context, rec *models.Generation) error {
	wf, err := json.Marshal(rec.Workflow)
	if err != nil {
		return apperrors.Persistence("save generation", err)
	}
	queries, err := json.Marshal(rec.Queries)
	if err != nil {
		return apperrors.Persistence("save generation", err)
	}
	suggestion, err := json.Marshal(rec.Suggestion)
	if err != nil {
		return apperrors.Persistence("save generation", err)
	}

	_, err = s.db.Exec(ctx, `INSERT INTO generations (`+generationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (generation) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			best_performance = EXCLUDED.best_performance,
			current_score = EXCLUDED.current_score,
			candidate_score = EXCLUDED.candidate_score,
			mutation = EXCLUDED.mutation,
			accepted = EXCLUDED.accepted,
			workflow = EXCLUDED.workflow,
			created_at = EXCLUDED.created_at,
			queries = EXCLUDED.queries,
			diagnosis = EXCLUDED.diagnosis,
			suggestion = EXCLUDED.suggestion`,
		rec.Generation, rec.RunID, rec.BestPerformance, rec.CurrentScore, rec.CandidateScore,
		rec.Mutation, rec.Accepted, wf, rec.CreatedAt, queries, rec.Diagnosis, suggestion)
	if err != nil {
		return apperrors.Persistence("save generation", err)
	}
	return nil
}

// Get retrieves a generation by number.
func (s *PostgresGenerationStore) Get(ctx context.Context, generation int) (*models.Generation, error) {
	row := s.db.QueryRow(ctx, "SELECT "+generationColumns+" FROM generations WHERE generation = $1", generation)
	return scanGeneration(row)
}

// Latest retrieves the highest-numbered generation.
func (s *PostgresGenerationStore) Latest(ctx context.Context) (*models.Generation, error) {
	row := s.db.QueryRow(ctx, "SELECT "+generationColumns+" FROM generations ORDER BY generation DESC LIMIT 1")
	return scanGeneration(row)
}

// List returns every generation in ascending order.
func (s *PostgresGenerationStore) List(ctx context.Context) ([]*models.Generation, error) {
	rows, err := s.db.Query(ctx, "SELECT "+generationColumns+" FROM generations ORDER BY generation")
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	defer rows.Close()

	var generations []*models.Generation
	for rows.Next() {
		rec, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		generations = append(generations, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	return generations, nil
}

// Reset removes every generation.
func (s *PostgresGenerationStore) Reset(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, "DELETE FROM generations"); err != nil {
		return apperrors.Persistence("reset generations", err)
	}
	return nil
}

func scanGeneration(row pgx.Row) (*models.Generation, error) {
	var rec models.Generation
	var wf, queries, suggestion []byte
	err := row.Scan(&rec.Generation, &rec.RunID, &rec.BestPerformance, &rec.CurrentScore,
		&rec.CandidateScore, &rec.Mutation, &rec.Accepted, &wf, &rec.CreatedAt,
		&queries, &rec.Diagnosis, &suggestion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan generation: %w", err)
	}
	if err := json.Unmarshal(wf, &rec.Workflow); err != nil {
		return nil, fmt.Errorf("failed to decode workflow of generation %d: %w", rec.Generation, err)
	}
	if err := json.Unmarshal(queries, &rec.Queries); err != nil {
		return nil, fmt.Errorf("failed to decode queries of generation %d: %w", rec.Generation, err)
	}
	if err := json.Unmarshal(suggestion, &rec.Suggestion); err != nil {
		return nil, fmt.Errorf("failed to decode suggestion of generation %d: %w", rec.Generation, err)
	}
	return &rec, nil
}
