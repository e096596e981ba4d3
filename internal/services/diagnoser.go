package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"query-evolver/pkg/models"
)

// ErrNoSuggestion is returned when an improvement response names no stage.
var ErrNoSuggestion = errors.New("response contains no stage suggestion")

const diagnosticPrompt = `You are a Neo4j Cypher expert. Analyze the following benchmark run output and identify the key problems
with how the queries are being generated. Focus on patterns of errors and areas for improvement.

Benchmark output:
%s

Provide a concise diagnosis of the main issues in query generation.`

const improvementPrompt = `You are a Neo4j Cypher expert. Based on the following diagnosis of query generation issues,
suggest a specific improvement to the workflow that would address these problems.

Diagnosis:
%s

Current workflow stages:
%s

Suggest a new workflow stage that would help improve query accuracy. Format as:
STAGE NAME: <name>
DESCRIPTION: <what the stage does>
PROMPT: <prompt template for the stage>`

// Advice is the outcome of diagnosing one benchmark run.
type Advice struct {
	Diagnosis  string
	Suggestion *models.StageSuggestion
}

// Diagnoser asks the language model what went wrong in a benchmark run and
// which stage would help.
type Diagnoser struct {
	llm LLMClient
}

// NewDiagnoser creates a new Diagnoser.
func NewDiagnoser(llm LLMClient) *Diagnoser {
	return &Diagnoser{llm: llm}
}

// Diagnose summarizes the problems visible in a benchmark report.
func (d *Diagnoser) Diagnose(ctx context.Context, report string) (string, error) {
	response, err := d.llm.Generate(ctx, fmt.Sprintf(diagnosticPrompt, report))
	if err != nil {
		return "", fmt.Errorf("failed to diagnose benchmark run: %w", err)
	}
	return strings.TrimSpace(response), nil
}

// Suggest asks for one new stage addressing the diagnosis.
func (d *Diagnoser) Suggest(ctx context.Context, diagnosis string, stages []string) (*models.StageSuggestion, error) {
	response, err := d.llm.Generate(ctx, fmt.Sprintf(improvementPrompt, diagnosis, strings.Join(stages, "\n")))
	if err != nil {
		return nil, fmt.Errorf("failed to request workflow improvement: %w", err)
	}
	return ParseSuggestion(response)
}

// Advise runs Diagnose and then Suggest. A diagnosis is returned even when
// the suggestion cannot be parsed.
func (d *Diagnoser) Advise(ctx context.Context, report string, stages []string) (Advice, error) {
	diagnosis, err := d.Diagnose(ctx, report)
	if err != nil {
		return Advice{}, err
	}
	suggestion, err := d.Suggest(ctx, diagnosis, stages)
	return Advice{Diagnosis: diagnosis, Suggestion: suggestion}, err
}

// ParseSuggestion reads the STAGE NAME / DESCRIPTION / PROMPT fields of an
// improvement response. Labels are case-insensitive and may be wrapped in
// markdown emphasis; a field runs until the next label.
func ParseSuggestion(response string) (*models.StageSuggestion, error) {
	fields := map[string]*strings.Builder{}
	var current *strings.Builder

	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(strings.ReplaceAll(line, "*", ""))
		label, rest, ok := strings.Cut(trimmed, ":")
		key := strings.ToUpper(strings.TrimSpace(label))
		if ok && (key == "STAGE NAME" || key == "DESCRIPTION" || key == "PROMPT") {
			current = &strings.Builder{}
			fields[key] = current
			current.WriteString(strings.TrimSpace(rest))
			continue
		}
		if current != nil && trimmed != "" {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(strings.TrimSpace(line))
		}
	}

	get := func(k string) string {
		if b, ok := fields[k]; ok {
			return strings.TrimSpace(b.String())
		}
		return ""
	}
	s := &models.StageSuggestion{Name: get("STAGE NAME"), Description: get("DESCRIPTION"), Prompt: get("PROMPT")}
	if s.Name == "" || s.Prompt == "" {
		return nil, ErrNoSuggestion
	}
	return s, nil
}
