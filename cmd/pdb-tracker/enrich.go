// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdb-tracker/internal/idlist"
	"github.com/pdiddy/pdb-tracker/internal/sink"
	"github.com/pdiddy/pdb-tracker/pkg/types"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [identifiers...]",
	Short: "Enrich a known list of identifiers without discovery",
	Long: `Enrich reads identifiers from --ids-file (one per line, blank lines and
#-comments skipped) or from the command line, and writes
pdb_metadata_from_<list>_saved_<today>.<format> to the output directory.`,
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().String("ids-file", "", "newline-delimited identifier file")

	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	idsFile, _ := cmd.Flags().GetString("ids-file")
	format := env.cfg.Output.Format

	var (
		list idlist.List
		name string
		err  error
	)
	switch {
	case idsFile != "" && len(args) > 0:
		return &types.InvalidInputError{Input: "arguments", Reason: "use either --ids-file or identifiers, not both"}
	case idsFile != "":
		list, err = idlist.ReadFile(idsFile)
		name = sink.ListArtifactName(idsFile, now(), format)
	case len(args) > 0:
		list, err = idlist.Read(strings.NewReader(strings.Join(args, "\n")), "arguments")
		name = sink.ListArtifactName("arguments", now(), format)
	default:
		return &types.InvalidInputError{Input: "arguments", Reason: "provide --ids-file or one or more identifiers"}
	}
	if err != nil {
		return err
	}

	_, err = enrichList(cmd.Context(), env, list, name, cmd.OutOrStdout())
	return err
}

// enrichList enriches list and writes the artifact as name.
func enrichList(ctx context.Context, e *runEnv, list idlist.List, name string, w io.Writer) (string, error) {
	stop := e.serveMetrics(ctx)
	defer stop()

	fmt.Fprintf(w, "Loaded %d identifiers", len(list.IDs))
	if list.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", list.DupsRemoved)
	}
	fmt.Fprintln(w)

	outcome, err := e.orchestrator(w).EnrichAll(ctx, list.IDs)
	if err != nil {
		return "", err
	}
	outcome.DupsRemoved += list.DupsRemoved
	return e.saveOutcome(ctx, w, name, outcome)
}
