package models

import (
	"time"
)

// Stage is the persisted form of one workflow stage. The transform is not
// stored; it is re-bound from the stage name on load.
type Stage struct {
	Name           string `json:"name" yaml:"name"`
	Category       string `json:"category" yaml:"category"`
	PromptTemplate string `json:"prompt_template" yaml:"prompt_template"`
	IsActive       bool   `json:"is_active" yaml:"is_active"`
	OrderKey       int    `json:"order_key" yaml:"order_key"`
}

// Workflow is the persisted form of a workflow.
type Workflow struct {
	Stages []Stage `json:"stages" yaml:"stages"`
}

// Generation is the durable snapshot written at the end of every generation.
type Generation struct {
	Generation      int       `json:"generation" yaml:"generation"`
	BestPerformance float64   `json:"best_performance" yaml:"best_performance"`
	Workflow        Workflow  `json:"workflow" yaml:"workflow"`
	RunID           string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	CurrentScore    float64   `json:"current_score" yaml:"current_score"`
	CandidateScore  float64   `json:"candidate_score" yaml:"candidate_score"`
	Mutation        string    `json:"mutation,omitempty" yaml:"mutation,omitempty"`
	Accepted        bool      `json:"accepted" yaml:"accepted"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`

	// Queries maps each benchmark question to the last generated query that
	// reproduced its ground-truth result exactly.
	Queries    map[string]string `json:"queries,omitempty" yaml:"queries,omitempty"`
	Diagnosis  string            `json:"diagnosis,omitempty" yaml:"diagnosis,omitempty"`
	Suggestion *StageSuggestion  `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// StageSuggestion is a stage proposed by the language model after a
// generation was diagnosed.
type StageSuggestion struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Prompt      string `json:"prompt" yaml:"prompt"`
}
