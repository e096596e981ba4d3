package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"query-evolver/internal/apperrors"
	"query-evolver/pkg/models"
)

var generationFile = regexp.MustCompile(`^generation_(\d+)\.json$`)

// FileGenerationStore keeps each generation as a JSON file in one directory.
type FileGenerationStore struct {
	dir string
}

// NewFileGenerationStore creates a store rooted at dir. The directory is
// created on first write.
func NewFileGenerationStore(dir string) *FileGenerationStore {
	return &FileGenerationStore{dir: dir}
}

// Dir returns the storage directory.
func (s *FileGenerationStore) Dir() string { return s.dir }

func (s *FileGenerationStore) path(generation int) string {
	return filepath.Join(s.dir, fmt.Sprintf("generation_%d.json", generation))
}

// Save writes the snapshot through a temporary file and a rename, so a
// reader never sees a partially written generation.
func (s *FileGenerationStore) Save(ctx context.Context, rec *models.Generation) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return apperrors.Persistence("save generation", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return apperrors.Persistence("save generation", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".generation-*.tmp")
	if err != nil {
		return apperrors.Persistence("save generation", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperrors.Persistence("save generation", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperrors.Persistence("save generation", err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Persistence("save generation", err)
	}
	if err := os.Rename(tmp.Name(), s.path(rec.Generation)); err != nil {
		return apperrors.Persistence("save generation", err)
	}
	return nil
}

// Get retrieves a generation by number.
func (s *FileGenerationStore) Get(ctx context.Context, generation int) (*models.Generation, error) {
	data, err := os.ReadFile(s.path(generation))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read generation %d: %w", generation, err)
	}

	var rec models.Generation
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode generation %d: %w", generation, err)
	}
	return &rec, nil
}

// Latest retrieves the highest-numbered generation.
func (s *FileGenerationStore) Latest(ctx context.Context) (*models.Generation, error) {
	numbers, err := s.numbers()
	if err != nil {
		return nil, err
	}
	if len(numbers) == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, numbers[len(numbers)-1])
}

// List returns every generation in ascending order.
func (s *FileGenerationStore) List(ctx context.Context) ([]*models.Generation, error) {
	numbers, err := s.numbers()
	if err != nil {
		return nil, err
	}

	out := make([]*models.Generation, 0, len(numbers))
	for _, n := range numbers {
		rec, err := s.Get(ctx, n)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *FileGenerationStore) numbers() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}

	var numbers []int
	for _, e := range entries {
		m := generationFile.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers, nil
}

// Reset empties the storage directory, leaving the directory itself.
func (s *FileGenerationStore) Reset(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", s.dir, err)
	}

	var errs []error
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
