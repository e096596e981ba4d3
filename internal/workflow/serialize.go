package workflow

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"query-evolver/internal/apperrors"
	"query-evolver/pkg/models"
)

// Serialize returns the persisted form of w in container order.
func (w *Workflow) Serialize() models.Workflow {
	rec := models.Workflow{Stages: make([]models.Stage, 0, len(w.stages))}
	for _, s := range w.stages {
		rec.Stages = append(rec.Stages, models.Stage{
			Name:           s.name,
			Category:       string(s.category),
			PromptTemplate: s.prompt,
			IsActive:       s.active,
			OrderKey:       s.orderKey,
		})
	}
	return rec
}

// Deserialize rebuilds a workflow, binding each stage's transform through
// the registry. Any stage that cannot be rebuilt is a configuration error.
func Deserialize(rec models.Workflow, registry *Registry) (*Workflow, error) {
	if len(rec.Stages) == 0 {
		return nil, apperrors.Configurationf("deserialize workflow", "workflow has no stages")
	}

	stages := make([]Stage, 0, len(rec.Stages))
	for _, sr := range rec.Stages {
		category, err := ParseCategory(sr.Category)
		if err != nil {
			return nil, err
		}
		fn, err := registry.Resolve(sr.Name)
		if err != nil {
			return nil, err
		}
		s, err := NewStage(sr.Name, category, sr.PromptTemplate, fn, sr.OrderKey)
		if err != nil {
			return nil, err
		}
		s.SetActive(sr.IsActive)
		stages = append(stages, s)
	}
	return New(registry, stages...)
}

// ToJSON renders the persisted form as indented JSON.
func (w *Workflow) ToJSON() (string, error) {
	data, err := json.MarshalIndent(w.Serialize(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow to JSON: %w", err)
	}
	return string(data), nil
}

// ToYAML renders the persisted form as YAML.
func (w *Workflow) ToYAML() (string, error) {
	data, err := yaml.Marshal(w.Serialize())
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow to YAML: %w", err)
	}
	return string(data), nil
}

// FromJSON parses and rebuilds a workflow from JSON.
func FromJSON(data string, registry *Registry) (*Workflow, error) {
	var rec models.Workflow
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, apperrors.Configuration("parse workflow JSON", err)
	}
	return Deserialize(rec, registry)
}

// FromYAML parses and rebuilds a workflow from YAML.
func FromYAML(data string, registry *Registry) (*Workflow, error) {
	var rec models.Workflow
	if err := yaml.Unmarshal([]byte(data), &rec); err != nil {
		return nil, apperrors.Configuration("parse workflow YAML", err)
	}
	return Deserialize(rec, registry)
}
