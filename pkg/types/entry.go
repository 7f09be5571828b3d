// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the pdb-tracker pipeline:
// the per-entry enrichment record, the run outcome handed to the sink, the
// error taxonomy shared by every stage, and the stage configuration.
//
// Identifiers are plain strings. Their canonical form is upper case; the
// cross-reference service expects lower case in its URL path.
package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CanonicalID returns the storage and display form of an identifier.
func CanonicalID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// PathID returns the case-folded identifier used as a URL path segment
// against the cross-reference service.
func PathID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// DedupeIDs canonicalises ids and drops repeats, keeping the first
// occurrence of each. Blank entries are dropped without being counted.
// It returns the deduplicated slice and the number of duplicates removed.
func DedupeIDs(ids []string) ([]string, int) {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	removed := 0
	for _, raw := range ids {
		id := CanonicalID(raw)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			removed++
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, removed
}

// EnrichmentRecord holds everything known about one entry after enrichment.
// Nil pointers mean the value was absent upstream or its fetch failed.
type EnrichmentRecord struct {
	// Identifier is the canonical (upper-case) accession code.
	Identifier string `json:"identifier" yaml:"identifier"`

	// Title is the structure title from the entry-detail service.
	Title *string `json:"title,omitempty" yaml:"title,omitempty"`

	// PubMedID is the primary citation's PubMed identifier.
	PubMedID *string `json:"pubmed_id,omitempty" yaml:"pubmed_id,omitempty"`

	// Resolution is the first reported resolution figure in Ångström.
	// Absent for methods that report none (e.g. solution NMR).
	Resolution *decimal.Decimal `json:"resolution,omitempty" yaml:"resolution,omitempty"`

	// Method is the first listed experimental method.
	Method *string `json:"method,omitempty" yaml:"method,omitempty"`

	// CrossRefIDs are the cross-referenced identifiers, sorted and unique.
	CrossRefIDs []string `json:"cross_ref_ids" yaml:"cross_ref_ids"`
}

// ResolutionText returns the resolution with the digits reported upstream,
// trailing zeros included, or "" when absent.
func (r EnrichmentRecord) ResolutionText() string {
	if r.Resolution == nil {
		return ""
	}
	if exp := r.Resolution.Exponent(); exp < 0 {
		return r.Resolution.StringFixed(-exp)
	}
	return r.Resolution.String()
}

// EmptyRecord returns a record for id with every enrichment field absent.
func EmptyRecord(id string) EnrichmentRecord {
	return EnrichmentRecord{Identifier: CanonicalID(id), CrossRefIDs: []string{}}
}

// RunOutcome is the ordered result of one pipeline run. Records holds exactly
// one entry per identifier processed, in processing order.
type RunOutcome struct {
	Records []EnrichmentRecord

	// DupsRemoved is the number of duplicate identifiers dropped before enrichment.
	DupsRemoved int

	// MetadataFailures counts identifiers whose metadata fetch failed.
	MetadataFailures int

	// CrossRefFailures counts identifiers whose cross-reference fetch failed.
	CrossRefFailures int

	// UnexpectedFailures counts identifiers whose enrichment aborted and
	// were replaced by an empty record.
	UnexpectedFailures int

	// Degraded counts identifiers with at least one failed stage.
	Degraded int
}

// Total returns the number of records in the outcome.
func (o RunOutcome) Total() int {
	return len(o.Records)
}

// HasDegraded reports whether any record lost data to an upstream failure.
func (o RunOutcome) HasDegraded() bool {
	return o.Degraded > 0
}
