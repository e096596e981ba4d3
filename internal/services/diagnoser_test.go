package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"query-evolver/pkg/models"
)

func TestParseSuggestion(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     *models.StageSuggestion
	}{
		{
			name:     "plain",
			response: "STAGE NAME: Direction Check\nDESCRIPTION: Verifies arrows\nPROMPT: Fix the relationship directions in {query}",
			want:     &models.StageSuggestion{Name: "Direction Check", Description: "Verifies arrows", Prompt: "Fix the relationship directions in {query}"},
		},
		{
			name:     "markdown and preamble",
			response: "Here is my suggestion.\n\n**Stage Name:** Label Check\n**Description:** Checks labels\n**Prompt:** Use only schema labels.\nRewrite: {query}\n",
			want:     &models.StageSuggestion{Name: "Label Check", Description: "Checks labels", Prompt: "Use only schema labels.\nRewrite: {query}"},
		},
		{
			name:     "no description",
			response: "STAGE NAME: Limit Guard\nPROMPT: Add LIMIT to {query}",
			want:     &models.StageSuggestion{Name: "Limit Guard", Prompt: "Add LIMIT to {query}"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSuggestion(tt.response)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseSuggestion("The queries look fine to me.")
	assert.ErrorIs(t, err, ErrNoSuggestion)
	_, err = ParseSuggestion("STAGE NAME: Nameless Prompt")
	assert.ErrorIs(t, err, ErrNoSuggestion)
}

func TestDiagnoserAdvise(t *testing.T) {
	llm := new(mockLLM)
	d := NewDiagnoser(llm)

	isDiagnostic := mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Benchmark output:") && strings.Contains(p, "Item 1: How many people?")
	})
	isImprovement := mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Diagnosis:\nMissing labels") &&
			strings.Contains(p, "Query Analysis\nQuery Execution") &&
			strings.Contains(p, "STAGE NAME: <name>")
	})
	llm.On("Generate", mock.Anything, isDiagnostic).Return("  Missing labels  ", nil).Once()
	llm.On("Generate", mock.Anything, isImprovement).
		Return("STAGE NAME: Label Check\nDESCRIPTION: Adds labels\nPROMPT: Label {query}", nil).Once()

	advice, err := d.Advise(context.Background(), "Item 1: How many people?", []string{"Query Analysis", "Query Execution"})
	require.NoError(t, err)
	assert.Equal(t, "Missing labels", advice.Diagnosis)
	assert.Equal(t, &models.StageSuggestion{Name: "Label Check", Description: "Adds labels", Prompt: "Label {query}"}, advice.Suggestion)
	llm.AssertExpectations(t)
}

func TestDiagnoserAdviseFailures(t *testing.T) {
	t.Run("diagnosis fails", func(t *testing.T) {
		llm := new(mockLLM)
		llm.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("connection refused")).Once()

		advice, err := NewDiagnoser(llm).Advise(context.Background(), "report", nil)
		assert.ErrorContains(t, err, "failed to diagnose benchmark run")
		assert.Empty(t, advice.Diagnosis)
		llm.AssertExpectations(t)
	})

	t.Run("unparseable suggestion keeps diagnosis", func(t *testing.T) {
		llm := new(mockLLM)
		llm.On("Generate", mock.Anything, mock.Anything).Return("Too many hallucinated labels", nil).Once()
		llm.On("Generate", mock.Anything, mock.Anything).Return("Try harder.", nil).Once()

		advice, err := NewDiagnoser(llm).Advise(context.Background(), "report", []string{"Query Analysis"})
		assert.ErrorIs(t, err, ErrNoSuggestion)
		assert.Equal(t, "Too many hallucinated labels", advice.Diagnosis)
		assert.Nil(t, advice.Suggestion)
		llm.AssertExpectations(t)
	})
}
