package services

import (
	"context"
	"regexp"
	"strings"
)

const systemPrompt = `You are a Cypher query expert. Generate a valid Cypher query to answer the question.

Database Schema:
{schema}

Rules:
1. Return ONLY the Cypher query, nothing else
2. Do not include explanations, comments, or markdown
3. Ensure the query is syntactically correct
4. Use proper Cypher syntax with MATCH, WHERE, RETURN clauses
5. Do not add any text before or after the query

Examples:
Question: How many patients are there?
MATCH (p:Patient) RETURN count(p) as count

Question: What are the names of all providers?
MATCH (pr:Provider) RETURN pr.provider_name`

// QueryGenerator turns natural-language questions into Cypher queries.
type QueryGenerator struct {
	llm    LLMClient
	schema string
}

// NewQueryGenerator creates a new QueryGenerator. The schema is embedded in
// every prompt.
func NewQueryGenerator(llm LLMClient, schema string) *QueryGenerator {
	return &QueryGenerator{llm: llm, schema: schema}
}

// Prompt renders the full prompt for a question.
func (g *QueryGenerator) Prompt(question string) string {
	return strings.Replace(systemPrompt, "{schema}", g.schema, 1) + "\n\nQuestion: " + question
}

// Generate asks the model for a query and returns it cleaned. An empty
// result is not an error.
func (g *QueryGenerator) Generate(ctx context.Context, question string) (string, error) {
	response, err := g.llm.Generate(ctx, g.Prompt(question))
	if err != nil {
		return "", err
	}
	return CleanQuery(response), nil
}

var (
	fencePattern = regexp.MustCompile("```(?:cypher)?\\n?")

	cypherKeywords = []string{"MATCH", "CREATE", "MERGE", "WITH", "CALL", "RETURN", "WHERE", "ORDER", "LIMIT", "SKIP", "OPTIONAL", "UNWIND"}
	explanations   = []string{"this query", "will return", "explanation", "note:"}
)

// CleanQuery strips markdown fences and surrounding prose from a model
// response, keeping the lines that start with a Cypher clause.
func CleanQuery(response string) string {
	text := strings.TrimSpace(fencePattern.ReplaceAllString(response, ""))

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if startsWithKeyword(line) {
			lines = append(lines, line)
			continue
		}
		if len(lines) > 0 && isExplanation(line) {
			break
		}
	}

	cleaned := text
	if len(lines) > 0 {
		cleaned = strings.Join(lines, " ")
	}
	if i := strings.Index(cleaned, "This query"); i >= 0 {
		cleaned = strings.TrimSpace(cleaned[:i])
	}
	return cleaned
}

func startsWithKeyword(line string) bool {
	upper := strings.ToUpper(line)
	for _, kw := range cypherKeywords {
		if strings.HasPrefix(upper, kw) {
			return true
		}
	}
	return false
}

func isExplanation(line string) bool {
	lower := strings.ToLower(line)
	for _, w := range explanations {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
