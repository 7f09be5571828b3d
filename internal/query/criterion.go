// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query builds the attribute filters that drive discovery.
// A Criterion is a value type with unexported fields: once built it cannot
// be altered, and one criterion drives one discovery run.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/pdb-tracker/pkg/types"
)

// DateLayout is the only accepted since-date form.
const DateLayout = "2006-01-02"

// ReleaseDateAttribute is the entry attribute holding the initial release date.
const ReleaseDateAttribute = "rcsb_accession_info.initial_release_date"

// Operator is a comparison understood by the search service.
type Operator string

const (
	OpGreaterOrEqual Operator = "greater_or_equal"
	OpGreater        Operator = "greater"
	OpLess           Operator = "less"
	OpLessOrEqual    Operator = "less_or_equal"
	OpEquals         Operator = "equals"
	OpContainsWords  Operator = "contains_words"
	OpContainsPhrase Operator = "contains_phrase"
	OpExists         Operator = "exists"
	OpIn             Operator = "in"
	OpRange          Operator = "range"
)

var knownOperators = map[Operator]bool{
	OpGreaterOrEqual: true,
	OpGreater:        true,
	OpLess:           true,
	OpLessOrEqual:    true,
	OpEquals:         true,
	OpContainsWords:  true,
	OpContainsPhrase: true,
	OpExists:         true,
	OpIn:             true,
	OpRange:          true,
}

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool { return knownOperators[op] }

// Criterion is one attribute filter: attribute, operator, value.
type Criterion struct {
	attribute string
	operator  Operator
	value     string
}

// Attribute returns the filtered attribute path.
func (c Criterion) Attribute() string { return c.attribute }

// Operator returns the comparison operator.
func (c Criterion) Operator() Operator { return c.operator }

// Value returns the comparison value; empty for OpExists.
func (c Criterion) Value() string { return c.value }

// IsZero reports whether c was never built.
func (c Criterion) IsZero() bool { return c.attribute == "" }

func (c Criterion) String() string {
	if c.operator == OpExists {
		return fmt.Sprintf("%s %s", c.attribute, c.operator)
	}
	return fmt.Sprintf("%s %s %q", c.attribute, c.operator, c.value)
}

// Build validates date as a YYYY-MM-DD calendar date and returns the
// "released on or after date" criterion. Invalid dates fail with
// *types.InvalidDateError.
func Build(date string) (Criterion, error) {
	date = strings.TrimSpace(date)
	if _, err := ParseDate(date); err != nil {
		return Criterion{}, err
	}
	return Criterion{
		attribute: ReleaseDateAttribute,
		operator:  OpGreaterOrEqual,
		value:     date,
	}, nil
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, &types.InvalidDateError{Value: date, Err: err}
	}
	return t, nil
}

// NewCriterion builds an arbitrary criterion. Every operator except
// OpExists needs a value.
func NewCriterion(attribute string, op Operator, value string) (Criterion, error) {
	attribute = strings.TrimSpace(attribute)
	if attribute == "" {
		return Criterion{}, &types.InvalidInputError{Input: "criterion", Reason: "attribute is empty"}
	}
	if !op.Valid() {
		return Criterion{}, &types.InvalidInputError{Input: "criterion", Reason: fmt.Sprintf("unknown operator %q", op)}
	}
	if op == OpExists {
		value = ""
	} else if value == "" {
		return Criterion{}, &types.InvalidInputError{Input: "criterion", Reason: fmt.Sprintf("operator %q needs a value", op)}
	}
	return Criterion{attribute: attribute, operator: op, value: value}, nil
}
