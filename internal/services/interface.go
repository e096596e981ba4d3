package services

import (
	"context"

	"query-evolver/pkg/models"
)

// LLMClient is an interface for communicating with a language model.
type LLMClient interface {
	// Generate returns the model's completion for a rendered prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}

// GraphClient executes queries against the graph database.
type GraphClient interface {
	// Run executes query. Failures are reported in the result, never
	// raised, and callers treat a failed result as having no rows.
	Run(ctx context.Context, query string) QueryResult
	// Schema describes the labels, relationship types and property keys of
	// the database.
	Schema(ctx context.Context) (string, error)
}

// QueryResult is the outcome of one graph query.
type QueryResult struct {
	Query string
	Rows  []models.Row
	Err   error
}

// OK reports whether the query executed successfully.
func (r QueryResult) OK() bool { return r.Err == nil }

// ResultSet returns the rows paired with the query. A failed result has no
// rows.
func (r QueryResult) ResultSet() models.ResultSet {
	if r.Err != nil {
		return models.ResultSet{Query: r.Query}
	}
	return models.ResultSet{Query: r.Query, Rows: r.Rows}
}
