// Package live holds the safety-perimeter value types for the LiveDataServer
// console: ModelValidator, SqlValidator, Confirmation, and the closed tool
// tier sets.
package live

import (
	"fmt"
	"sort"
	"strings"
)

// ModelValidator checks that a model name and its columns belong to a
// pre-computed registry built from extracted metadata, so the console can
// never be pointed at an unknown table.
type ModelValidator struct {
	models map[string][]string // model name -> column names
}

// NewModelValidator builds a registry from model->columns.
func NewModelValidator(registry map[string][]string) *ModelValidator {
	copied := make(map[string][]string, len(registry))
	for k, v := range registry {
		copied[k] = append([]string(nil), v...)
	}
	return &ModelValidator{models: copied}
}

// ValidateModel returns an error naming the available models if model is
// unknown.
func (v *ModelValidator) ValidateModel(model string) error {
	if _, ok := v.models[model]; ok {
		return nil
	}
	names := make([]string, 0, len(v.models))
	for m := range v.models {
		names = append(names, m)
	}
	sort.Strings(names)
	return fmt.Errorf("Unknown model: %s. Available: %s", model, strings.Join(names, ", "))
}

// ValidateColumn returns an error if model is unknown or column is not in
// model's registered column set.
func (v *ModelValidator) ValidateColumn(model, column string) error {
	if err := v.ValidateModel(model); err != nil {
		return err
	}
	for _, c := range v.models[model] {
		if c == column {
			return nil
		}
	}
	return fmt.Errorf("Unknown column: %s.%s", model, column)
}

// ValidateColumns validates every column in columns against model.
func (v *ModelValidator) ValidateColumns(model string, columns []string) error {
	for _, c := range columns {
		if err := v.ValidateColumn(model, c); err != nil {
			return err
		}
	}
	return nil
}

// Columns returns a defensive copy of model's known columns.
func (v *ModelValidator) Columns(model string) []string {
	return append([]string(nil), v.models[model]...)
}
