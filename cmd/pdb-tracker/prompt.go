// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/pdb-tracker/pkg/types"
)

const datePrompt = "Enter a release date (YYYY-MM-DD): "

// promptDate asks for a since-date on out and reads one line from in.
func promptDate(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, datePrompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading date: %w", err)
	}
	date := strings.TrimSpace(line)
	if date == "" {
		return "", &types.InvalidInputError{Input: "date", Reason: "no date entered"}
	}
	return date, nil
}
