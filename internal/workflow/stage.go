// Package workflow models an ordered pipeline of stages that rewrites a
// query string, and the random structural mutations used to search over
// such pipelines.
package workflow

import (
	"fmt"
	"strings"

	"query-evolver/internal/apperrors"
)

// Placeholder is the substitution point for the working query in a prompt
// template. Every template contains it exactly once.
const Placeholder = "{query}"

// Category tags what a stage is for.
type Category string

const (
	CategoryQueryAnalysis Category = "query_analysis"
	CategoryOptimization  Category = "optimization"
	CategoryValidation    Category = "validation"
	CategoryExecution     Category = "execution"
	CategoryFeedback      Category = "feedback"
)

// Categories lists every category in canonical order.
var Categories = []Category{
	CategoryQueryAnalysis,
	CategoryOptimization,
	CategoryValidation,
	CategoryExecution,
	CategoryFeedback,
}

// ParseCategory converts a persisted category name.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", apperrors.Configurationf("parse category", "unknown stage category %q", s)
}

// Stage is one named step of a workflow. Name and category are fixed at
// construction; the prompt template, active flag and order key may change.
type Stage struct {
	name      string
	category  Category
	prompt    string
	transform Transform
	active    bool
	orderKey  int
}

// NewStage creates an active stage. The template must contain Placeholder
// exactly once.
func NewStage(name string, category Category, promptTemplate string, transform Transform, orderKey int) (Stage, error) {
	if name == "" {
		return Stage{}, apperrors.Configurationf("new stage", "stage name is required")
	}
	if transform == nil {
		return Stage{}, apperrors.Configurationf("new stage", "stage %q has no transform", name)
	}
	if err := checkTemplate(promptTemplate); err != nil {
		return Stage{}, apperrors.Configuration("new stage "+name, err)
	}
	return Stage{
		name:      name,
		category:  category,
		prompt:    promptTemplate,
		transform: transform,
		active:    true,
		orderKey:  orderKey,
	}, nil
}

func checkTemplate(tpl string) error {
	if n := strings.Count(tpl, Placeholder); n != 1 {
		return fmt.Errorf("prompt template must contain %s exactly once, found %d", Placeholder, n)
	}
	return nil
}

func (s Stage) Name() string           { return s.name }
func (s Stage) Category() Category     { return s.category }
func (s Stage) PromptTemplate() string { return s.prompt }
func (s Stage) Active() bool           { return s.active }
func (s Stage) OrderKey() int          { return s.orderKey }

// SetPromptTemplate replaces the template after validating it.
func (s *Stage) SetPromptTemplate(tpl string) error {
	if err := checkTemplate(tpl); err != nil {
		return apperrors.Configuration("set prompt "+s.name, err)
	}
	s.prompt = tpl
	return nil
}

func (s *Stage) SetActive(active bool) { s.active = active }
func (s *Stage) SetOrderKey(key int)   { s.orderKey = key }

// Render substitutes the working query into the prompt template.
func (s Stage) Render(query string) string {
	return strings.Replace(s.prompt, Placeholder, query, 1)
}
