// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pdb-tracker/pkg/types"
)

// CriterionFile is the on-disk form of a discovery criterion, so a curated
// filter can be saved once and replayed on later runs.
type CriterionFile struct {
	Criterion CriterionParams `yaml:"criterion"`
	SavedAt   time.Time       `yaml:"saved_at,omitempty"`
}

// CriterionParams stores the criterion fields in a serializable form.
type CriterionParams struct {
	Attribute string   `yaml:"attribute"`
	Operator  Operator `yaml:"operator"`
	Value     string   `yaml:"value,omitempty"`
}

// WriteCriterionFile saves c to a YAML file.
func WriteCriterionFile(path string, c Criterion) error {
	cf := CriterionFile{
		Criterion: CriterionParams{
			Attribute: c.attribute,
			Operator:  c.operator,
			Value:     c.value,
		},
		SavedAt: time.Now().UTC(),
	}
	data, err := yaml.Marshal(&cf)
	if err != nil {
		return fmt.Errorf("marshaling criterion file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadCriterionFile loads and validates a criterion file.
func ReadCriterionFile(path string) (Criterion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Criterion{}, &types.InvalidInputError{Input: path, Reason: "reading criterion file", Err: err}
	}
	var cf CriterionFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return Criterion{}, &types.InvalidInputError{Input: path, Reason: "parsing criterion file", Err: err}
	}
	return cf.Criterion.ToCriterion()
}

// ToCriterion converts stored params back into a validated Criterion.
// Release-date criteria get the same calendar check as Build.
func (p CriterionParams) ToCriterion() (Criterion, error) {
	if p.Attribute == ReleaseDateAttribute && p.Operator != OpExists {
		if _, err := ParseDate(p.Value); err != nil {
			return Criterion{}, err
		}
	}
	return NewCriterion(p.Attribute, p.Operator, p.Value)
}
