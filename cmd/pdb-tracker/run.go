// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/pdb-tracker/internal/query"
	"github.com/pdiddy/pdb-tracker/internal/sink"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Discover entries released since a date and enrich them",
	Long: `Run queries the search service for every entry released on or after
--since, enriches each entry with metadata and UniProt cross-references, and
writes pdb_metadata_since_<date>_saved_<today>.<format> to the output directory.
An existing file of the same name is replaced.

Without --since the date is read interactively.`,
	Args: noArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("since", "", "release date lower bound (YYYY-MM-DD); prompted when omitted")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	since, _ := cmd.Flags().GetString("since")
	if since == "" {
		var err error
		since, err = promptDate(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
	}
	crit, err := query.Build(since)
	if err != nil {
		return err
	}
	_, err = runSince(cmd.Context(), env, crit, cmd.OutOrStdout())
	return err
}

// runSince performs a full discovery + enrichment run and returns the
// artifact path. Nothing is written if discovery fails or ctx is cancelled.
func runSince(ctx context.Context, e *runEnv, crit query.Criterion, w io.Writer) (string, error) {
	stop := e.serveMetrics(ctx)
	defer stop()

	e.log.Info("run started",
		zap.String("criterion", crit.String()),
		zap.Int("workers", e.cfg.Enrichment.Workers),
		zap.Duration("request_interval", e.cfg.Enrichment.RequestInterval),
	)
	outcome, err := e.orchestrator(w).Run(ctx, crit)
	if err != nil {
		return "", err
	}
	path, err := e.saveOutcome(ctx, w, sink.ArtifactName(crit.Value(), now(), e.cfg.Output.Format), outcome)
	if err != nil {
		return path, err
	}
	e.log.Info("run finished",
		zap.Int("records", outcome.Total()),
		zap.Int("degraded", outcome.Degraded),
		zap.String("path", path),
	)
	return path, nil
}
