package services

import (
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"

	"query-evolver/pkg/models"
)

func TestPlainValue(t *testing.T) {
	node := neo4j.Node{ElementId: "4:x:1", Labels: []string{"Patient"}, Props: map[string]any{"name": "Ada", "age": int64(36)}}
	rel := neo4j.Relationship{Type: "TREATED", Props: map[string]any{"since": int64(2020)}}

	assert.Equal(t, map[string]any{"name": "Ada", "age": int64(36)}, plainValue(node))
	assert.Equal(t, map[string]any{"since": int64(2020)}, plainValue(rel))
	assert.Equal(t, []any{map[string]any{"name": "Ada", "age": int64(36)}, "x"}, plainValue([]any{node, "x"}))
	assert.Equal(t, map[string]any{"p": map[string]any{"name": "Ada", "age": int64(36)}}, plainValue(map[string]any{"p": node}))
	assert.Equal(t, 3.5, plainValue(3.5))

	path := neo4j.Path{Nodes: []neo4j.Node{node, {Props: map[string]any{"name": "Bob"}}}}
	assert.Equal(t, []any{map[string]any{"name": "Ada", "age": int64(36)}, map[string]any{"name": "Bob"}}, plainValue(path))
}

func TestColumn(t *testing.T) {
	rows := []models.Row{{"label": "Provider"}, {"label": "Patient"}, {"other": 1}}
	assert.Equal(t, []string{"Patient", "Provider"}, column(rows, "label"))
}

func TestQueryResult(t *testing.T) {
	ok := QueryResult{Query: "MATCH (n) RETURN n", Rows: []models.Row{{"n": 1}}}
	assert.True(t, ok.OK())
	assert.Len(t, ok.ResultSet().Rows, 1)

	failed := QueryResult{Query: "MATCH", Rows: []models.Row{{"n": 1}}, Err: errors.New("syntax error")}
	assert.False(t, failed.OK())
	assert.Empty(t, failed.ResultSet().Rows)
	assert.Equal(t, "MATCH", failed.ResultSet().Query)
}
