package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"query-evolver/pkg/models"
)

// Neo4jGraph is a GraphClient backed by the Neo4j driver.
type Neo4jGraph struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jGraph connects to uri and verifies connectivity.
func NewNeo4jGraph(ctx context.Context, uri, user, password, database string) (*Neo4jGraph, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", uri, err)
	}
	return &Neo4jGraph{driver: driver, database: database}, nil
}

// Close releases the driver.
func (g *Neo4jGraph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

// Run executes query in a read transaction.
func (g *Neo4jGraph) Run(ctx context.Context, query string) QueryResult {
	ctx, span := tracer.Start(ctx, "Neo4jGraph.Run")
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return QueryResult{Query: query}
	}

	rows, err := g.query(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return QueryResult{Query: query, Err: err}
	}
	span.SetAttributes(attribute.Int("graph.rows", len(rows)))
	return QueryResult{Query: query, Rows: rows}
}

func (g *Neo4jGraph) query(ctx context.Context, query string) ([]models.Row, error) {
	result, err := neo4j.ExecuteQuery(ctx, g.driver, query, nil,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(g.database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, err
	}

	rows := make([]models.Row, 0, len(result.Records))
	for _, record := range result.Records {
		row := make(models.Row, len(record.Keys))
		for k, v := range record.AsMap() {
			row[k] = plainValue(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// plainValue replaces graph entities by their property maps so rows only
// hold scalars, lists and maps.
func plainValue(v any) any {
	switch t := v.(type) {
	case neo4j.Node:
		return plainValue(t.Props)
	case neo4j.Relationship:
		return plainValue(t.Props)
	case neo4j.Path:
		nodes := make([]any, len(t.Nodes))
		for i, n := range t.Nodes {
			nodes[i] = plainValue(n.Props)
		}
		return nodes
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plainValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = plainValue(e)
		}
		return out
	default:
		return v
	}
}

// Schema lists node labels, relationship types and property keys.
func (g *Neo4jGraph) Schema(ctx context.Context) (string, error) {
	sections := []struct {
		title, query, column string
	}{
		{"Node labels", "CALL db.labels() YIELD label RETURN label", "label"},
		{"Relationship types", "CALL db.relationshipTypes() YIELD relationshipType RETURN relationshipType", "relationshipType"},
		{"Property keys", "CALL db.propertyKeys() YIELD propertyKey RETURN propertyKey", "propertyKey"},
	}

	var b strings.Builder
	for _, s := range sections {
		rows, err := g.query(ctx, s.query)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(s.title), err)
		}
		fmt.Fprintf(&b, "%s: %s\n", s.title, strings.Join(column(rows, s.column), ", "))
	}
	return strings.TrimSpace(b.String()), nil
}

func column(rows []models.Row, name string) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if s, ok := r[name].(string); ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
