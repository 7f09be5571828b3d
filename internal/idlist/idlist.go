// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package idlist reads and writes newline-delimited identifier files, the
// input for enrichment runs that bypass discovery.
package idlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/pdiddy/pdb-tracker/internal/sink"
	"github.com/pdiddy/pdb-tracker/pkg/types"
)

// validID matches a structure accession: alphanumeric start, 4 to 12 characters.
var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_]{3,11}$`)

// headers are column names that may open an identifier file written by a
// spreadsheet or an earlier export. Matched case-insensitively on the first
// content line only.
var headers = []string{"PDB_ID", "Identifier"}

// List is the parsed content of an identifier file.
type List struct {
	// IDs are canonical and unique, in file order.
	IDs []string

	// DupsRemoved counts repeated lines.
	DupsRemoved int
}

// Valid reports whether s looks like a structure identifier.
func Valid(s string) bool {
	return validID.MatchString(strings.TrimSpace(s))
}

// Read parses one identifier per line. Blank lines and lines starting with
// '#' are skipped, as is a header naming the column on the first content
// line. A malformed line fails the whole read with an
// InvalidInputError naming the line.
func Read(r io.Reader, name string) (List, error) {
	var raw []string
	sc := bufio.NewScanner(r)
	line := 0
	first := true
	for sc.Scan() {
		line++
		s := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		if first {
			first = false
			if isHeader(s) {
				continue
			}
		}
		if !validID.MatchString(s) {
			return List{}, &types.InvalidInputError{
				Input:  name,
				Reason: fmt.Sprintf("line %d: %q is not a valid identifier", line, s),
			}
		}
		raw = append(raw, s)
	}
	if err := sc.Err(); err != nil {
		return List{}, &types.InvalidInputError{Input: name, Reason: "reading identifiers", Err: err}
	}
	ids, removed := types.DedupeIDs(raw)
	return List{IDs: ids, DupsRemoved: removed}, nil
}

func isHeader(s string) bool {
	for _, h := range headers {
		if strings.EqualFold(s, h) {
			return true
		}
	}
	return false
}

// ReadFile reads an identifier file from disk.
func ReadFile(path string) (List, error) {
	f, err := os.Open(path)
	if err != nil {
		return List{}, &types.InvalidInputError{Input: path, Reason: "opening identifier file", Err: err}
	}
	defer f.Close()
	return Read(f, path)
}

// Write emits one identifier per line, without a header.
func Write(w io.Writer, ids []string) error {
	bw := bufio.NewWriter(w)
	for _, id := range ids {
		if _, err := fmt.Fprintln(bw, id); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile replaces path with ids, one per line.
func WriteFile(path string, ids []string) error {
	return sink.WriteAtomic(path, func(w io.Writer) error {
		return Write(w, ids)
	})
}
