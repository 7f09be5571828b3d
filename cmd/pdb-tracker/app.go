// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/pdb-tracker/internal/discover"
	"github.com/pdiddy/pdb-tracker/internal/enrich"
	"github.com/pdiddy/pdb-tracker/internal/httputil"
	"github.com/pdiddy/pdb-tracker/internal/pipeline"
	"github.com/pdiddy/pdb-tracker/internal/publish"
	"github.com/pdiddy/pdb-tracker/internal/sink"
	"github.com/pdiddy/pdb-tracker/internal/throttle"
	"github.com/pdiddy/pdb-tracker/pkg/types"
)

// now is the clock used for artifact names. Tests pin it.
var now = time.Now

// clients wires the discovery and enrichment clients to one shared throttle.
func (e *runEnv) clients() (*discover.Client, *enrich.Client) {
	th := throttle.New(e.cfg.Enrichment.RequestInterval)
	d := discover.New(e.cfg.Discovery, httputil.NewClient(e.cfg.Discovery.HTTPConfig, th, e.metrics))
	en := enrich.New(e.cfg.Enrichment, httputil.NewClient(e.cfg.Enrichment.HTTPConfig, th, e.metrics))
	return d, en
}

func (e *runEnv) orchestrator(progress io.Writer) *pipeline.Orchestrator {
	d, en := e.clients()
	return &pipeline.Orchestrator{
		Discoverer: d,
		Enricher:   en,
		Workers:    e.cfg.Enrichment.Workers,
		Progress:   progress,
		Metrics:    e.metrics,
	}
}

// serveMetrics starts the metrics endpoint when configured. The returned
// func keeps it up for the configured linger, or until ctx is done, and
// then stops it.
func (e *runEnv) serveMetrics(ctx context.Context) func() {
	if e.cfg.Metrics.Addr == "" {
		return func() {}
	}
	srvCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := e.metrics.Serve(srvCtx, e.cfg.Metrics.Addr, e.log); err != nil {
			e.log.Warn("metrics endpoint stopped", zap.Error(err))
		}
	}()
	return func() {
		if linger := e.cfg.Metrics.Linger; linger > 0 {
			e.log.Info("metrics endpoint lingering", zap.Duration("linger", linger))
			t := time.NewTimer(linger)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
			}
		}
		cancel()
		<-done
	}
}

// artifactPath resolves name inside the configured output directory.
func (e *runEnv) artifactPath(name string) string {
	return filepath.Join(e.cfg.Output.Dir, name)
}

// saveOutcome writes outcome to name, publishes it when enabled, and prints
// the final path.
func (e *runEnv) saveOutcome(ctx context.Context, w io.Writer, name string, outcome types.RunOutcome) (string, error) {
	path := e.artifactPath(name)
	if err := sink.WriteFile(path, e.cfg.Output.Format, outcome); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if err := e.publish(ctx, path); err != nil {
		return path, err
	}
	fmt.Fprintf(w, "Saved: %s\n", path)
	return path, nil
}

// publish uploads path when publishing is enabled.
func (e *runEnv) publish(ctx context.Context, path string) error {
	if !e.cfg.Publish.Enabled {
		return nil
	}
	p, err := publish.New(e.cfg.Publish)
	if err != nil {
		return err
	}
	if _, err := p.Publish(ctx, path); err != nil {
		return fmt.Errorf("publishing artifact: %w", err)
	}
	return nil
}

// noArgs rejects positional arguments as invalid input.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return &types.InvalidInputError{Input: "arguments", Reason: fmt.Sprintf("%s takes no arguments, got %q", cmd.CommandPath(), args)}
	}
	return nil
}
