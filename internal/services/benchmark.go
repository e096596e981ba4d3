package services

import (
	"encoding/json"
	"fmt"
	"os"

	"query-evolver/internal/apperrors"
	"query-evolver/pkg/models"
)

// LoadBenchmark reads a JSON array of question/answer pairs. A positive
// maxItems keeps only the first maxItems entries.
func LoadBenchmark(path string, maxItems int) ([]models.BenchmarkItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Configuration("load benchmark", err)
	}

	var items []models.BenchmarkItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, apperrors.Configuration("load benchmark", fmt.Errorf("failed to decode %s: %w", path, err))
	}

	for i, item := range items {
		if item.Question == "" || item.Answer == "" {
			return nil, apperrors.Configurationf("load benchmark", "%s: item %d needs both question and answer", path, i)
		}
	}
	if len(items) == 0 {
		return nil, apperrors.Configurationf("load benchmark", "%s contains no items", path)
	}
	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}
	return items, nil
}
