// Package models defines the records shared by storage, the REST API and the
// MCP tools.
package models

// Row is one result record: column name to scalar or nested value.
type Row = map[string]any

// BenchmarkItem is one question with its ground-truth query.
type BenchmarkItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ResultSet pairs a query with the rows it produced.
type ResultSet struct {
	Query string `json:"query"`
	Rows  []Row  `json:"rows"`
}

// DatasetComparisonRequest asks for the similarity of two result sets.
type DatasetComparisonRequest struct {
	Left  ResultSet `json:"left"`
	Right ResultSet `json:"right"`
}

// DatasetComparisonResponse reports a result-set similarity.
type DatasetComparisonResponse struct {
	Score          float64 `json:"score"`
	OrderSensitive bool    `json:"order_sensitive"`
}

// StringComparisonRequest asks for the similarity of two strings.
type StringComparisonRequest struct {
	A string `json:"a"`
	B string `json:"b"`
}

// StringComparisonResponse reports a string similarity.
type StringComparisonResponse struct {
	Score float64 `json:"score"`
}
