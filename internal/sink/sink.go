// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sink writes a RunOutcome as a tabular artifact.
//
// Artifacts are written whole: content goes to a temporary file in the target
// directory which is then renamed over the target, so an existing artifact is
// replaced, never appended to, and a failed write leaves no partial file.
package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/pdiddy/pdb-tracker/pkg/types"
)

// Header is the CSV column order.
var Header = []string{"Identifier", "Title", "PubMed_ID", "Resolution", "Experimental_Method", "Cross_Ref_IDs"}

// crossRefSep joins cross-referenced identifiers within one cell.
const crossRefSep = ","

// WriteCSV writes the header and one row per record. Absent values are
// empty cells.
func WriteCSV(w io.Writer, outcome types.RunOutcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, rec := range outcome.Records {
		if err := cw.Write(csvRow(rec)); err != nil {
			return fmt.Errorf("writing row %s: %w", rec.Identifier, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(rec types.EnrichmentRecord) []string {
	return []string{
		rec.Identifier,
		deref(rec.Title),
		deref(rec.PubMedID),
		rec.ResolutionText(),
		deref(rec.Method),
		strings.Join(rec.CrossRefIDs, crossRefSep),
	}
}

// parquetRow is the parquet schema; nil pointers are nulls.
type parquetRow struct {
	Identifier  string   `parquet:"identifier"`
	Title       *string  `parquet:"title"`
	PubMedID    *string  `parquet:"pubmed_id"`
	Resolution  *string  `parquet:"resolution"`
	Method      *string  `parquet:"experimental_method"`
	CrossRefIDs []string `parquet:"cross_ref_ids,list"`
}

// WriteParquet writes the outcome as a single parquet file. Resolution is
// stored as its exact decimal text.
func WriteParquet(w io.Writer, outcome types.RunOutcome) error {
	rows := make([]parquetRow, len(outcome.Records))
	for i, rec := range outcome.Records {
		rows[i] = parquetRow{
			Identifier:  rec.Identifier,
			Title:       rec.Title,
			PubMedID:    rec.PubMedID,
			Method:      rec.Method,
			CrossRefIDs: rec.CrossRefIDs,
		}
		if rec.Resolution != nil {
			s := rec.ResolutionText()
			rows[i].Resolution = &s
		}
	}

	pw := parquet.NewGenericWriter[parquetRow](w)
	if _, err := pw.Write(rows); err != nil {
		return fmt.Errorf("writing parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("closing parquet writer: %w", err)
	}
	return nil
}

// Write encodes outcome in format.
func Write(w io.Writer, format types.OutputFormat, outcome types.RunOutcome) error {
	switch format {
	case types.FormatCSV, "":
		return WriteCSV(w, outcome)
	case types.FormatParquet:
		return WriteParquet(w, outcome)
	default:
		return &types.InvalidInputError{Input: "output format", Reason: fmt.Sprintf("unsupported format %q", format)}
	}
}

// WriteFile replaces path with the encoded outcome.
func WriteFile(path string, format types.OutputFormat, outcome types.RunOutcome) error {
	return WriteAtomic(path, func(w io.Writer) error {
		return Write(w, format, outcome)
	})
}

// WriteAtomic writes the output of fn to a temporary file beside path and
// renames it over path. The parent directory is created if needed. On any
// error the temporary file is removed and path is left as it was.
func WriteAtomic(path string, fn func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".sink-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	writeErr := fn(tmpFile)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return writeErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
