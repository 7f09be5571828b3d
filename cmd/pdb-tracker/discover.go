// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdb-tracker/internal/idlist"
	"github.com/pdiddy/pdb-tracker/internal/query"
	"github.com/pdiddy/pdb-tracker/internal/sink"
	"github.com/pdiddy/pdb-tracker/pkg/types"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List entries released since a date without enriching them",
	Long: `Discover queries the search service and writes the matching identifiers,
one per line, to released_pdbs_since_<label>_saved_<today>.txt. The file can be
fed back to "pdb-tracker enrich --ids-file".

The criterion is either --since (release date on or after) or a YAML
criterion file given with --criterion-file. --save-criterion writes the
criterion used so it can be replayed later.`,
	Args: noArgs,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().String("since", "", "release date lower bound (YYYY-MM-DD); prompted when no criterion is given")
	discoverCmd.Flags().String("criterion-file", "", "load the criterion from a YAML file")
	discoverCmd.Flags().String("save-criterion", "", "write the criterion used to a YAML file")

	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	since, _ := cmd.Flags().GetString("since")
	critFile, _ := cmd.Flags().GetString("criterion-file")
	saveTo, _ := cmd.Flags().GetString("save-criterion")

	var (
		crit  query.Criterion
		label string
		err   error
	)
	switch {
	case since != "" && critFile != "":
		return &types.InvalidInputError{Input: "flags", Reason: "use either --since or --criterion-file, not both"}
	case critFile != "":
		crit, err = query.ReadCriterionFile(critFile)
		if err != nil {
			return err
		}
		label = criterionLabel(crit, critFile)
	default:
		if since == "" {
			if since, err = promptDate(cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return err
			}
		}
		if crit, err = query.Build(since); err != nil {
			return err
		}
		label = crit.Value()
	}

	if saveTo != "" {
		if err := query.WriteCriterionFile(saveTo, crit); err != nil {
			return fmt.Errorf("saving criterion: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Criterion saved to %s\n", saveTo)
	}

	_, err = discoverIDs(cmd.Context(), env, crit, label, cmd.OutOrStdout())
	return err
}

// discoverIDs runs discovery only and writes the identifier list.
func discoverIDs(ctx context.Context, e *runEnv, crit query.Criterion, label string, w io.Writer) (string, error) {
	stop := e.serveMetrics(ctx)
	defer stop()

	d, _ := e.clients()
	out, err := d.Discover(ctx, crit)
	if err != nil {
		return "", fmt.Errorf("discovery: %w", err)
	}
	if crit.Attribute() == query.ReleaseDateAttribute {
		fmt.Fprintf(w, "Found %d entries since %s\n", len(out.IDs), crit.Value())
	} else {
		fmt.Fprintf(w, "Found %d entries matching %s\n", len(out.IDs), crit)
	}
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, "Removed %d duplicate identifiers\n", out.DupsRemoved)
	}

	path := e.artifactPath(sink.DiscoveryArtifactName(label, now()))
	if err := idlist.WriteFile(path, out.IDs); err != nil {
		return "", fmt.Errorf("writing identifier list: %w", err)
	}
	if err := e.publish(ctx, path); err != nil {
		return path, err
	}
	fmt.Fprintf(w, "Saved: %s\n", path)
	return path, nil
}

// criterionLabel names a criterion-file run: the date for release-date
// criteria, the file's stem otherwise.
func criterionLabel(crit query.Criterion, file string) string {
	if crit.Attribute() == query.ReleaseDateAttribute && crit.Value() != "" {
		return crit.Value()
	}
	return strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
}
