// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences discovery, per-identifier enrichment, and
// collection into a RunOutcome.
//
// Enrichment fans out over a bounded worker pool. Each worker writes into its
// identifier's slot, so records come back in discovery order regardless of
// completion order. A failing or panicking identifier degrades its own record
// and is counted; it never aborts the run or drops the row. Only discovery
// failures and cancellation end a run early, and both return no outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/pdb-tracker/internal/discover"
	"github.com/pdiddy/pdb-tracker/internal/enrich"
	"github.com/pdiddy/pdb-tracker/internal/logger"
	"github.com/pdiddy/pdb-tracker/internal/metrics"
	"github.com/pdiddy/pdb-tracker/internal/query"
	"github.com/pdiddy/pdb-tracker/pkg/types"
)

// MaxWorkers bounds the enrichment pool.
const MaxWorkers = 64

// Discoverer returns the identifiers matching a criterion.
type Discoverer interface {
	Discover(ctx context.Context, crit query.Criterion) (discover.Output, error)
}

// Enricher builds the record for one identifier.
type Enricher interface {
	Enrich(ctx context.Context, id string) enrich.Result
}

// Orchestrator drives one run.
type Orchestrator struct {
	Discoverer Discoverer
	Enricher   Enricher

	// Workers is the enrichment concurrency; values below 1 mean 1.
	Workers int

	// Progress receives one line per identifier and a closing summary.
	// Nil discards output.
	Progress io.Writer

	Metrics *metrics.Recorder
}

// Run discovers identifiers for crit and enriches every one of them.
// Discovery errors are returned as-is (wrapped) so callers can classify them.
func (o *Orchestrator) Run(ctx context.Context, crit query.Criterion) (types.RunOutcome, error) {
	out, err := o.Discoverer.Discover(ctx, crit)
	if err != nil {
		return types.RunOutcome{}, fmt.Errorf("discovery: %w", err)
	}
	w := o.progress()
	if crit.Attribute() == query.ReleaseDateAttribute {
		fmt.Fprintf(w, "Found %d entries since %s\n", len(out.IDs), crit.Value())
	} else {
		fmt.Fprintf(w, "Found %d entries matching %s\n", len(out.IDs), crit)
	}

	outcome, err := o.EnrichAll(ctx, out.IDs)
	if err != nil {
		return types.RunOutcome{}, err
	}
	outcome.DupsRemoved += out.DupsRemoved
	return outcome, nil
}

// slot holds one identifier's enrichment result until collection.
type slot struct {
	record     types.EnrichmentRecord
	metaErr    error
	xrefErr    error
	unexpected error
}

// EnrichAll enriches ids without a discovery pass. Identifiers are
// canonicalised and deduplicated first. The context is checked before each
// identifier is scheduled; on cancellation in-flight work is awaited and
// ctx.Err() is returned with no outcome.
func (o *Orchestrator) EnrichAll(ctx context.Context, ids []string) (types.RunOutcome, error) {
	ids, dups := types.DedupeIDs(ids)
	log := logger.FromContext(ctx)
	w := o.progress()

	slots := make([]slot, len(ids))
	var (
		mu   sync.Mutex
		done int
	)

	var g errgroup.Group
	g.SetLimit(o.workers())

	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			s := o.enrichOne(ctx, id)
			slots[i] = s

			mu.Lock()
			done++
			fmt.Fprintf(w, "[%d/%d] %s%s\n", done, len(ids), id, degradedSuffix(s))
			mu.Unlock()

			for _, err := range []error{s.unexpected, s.metaErr, s.xrefErr} {
				if err != nil {
					log.Warn("enrichment degraded",
						zap.String("identifier", id),
						zap.String("stage", stageOf(err)),
						zap.Error(err),
					)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		log.Info("run cancelled", zap.Int("processed", done), zap.Int("total", len(ids)))
		return types.RunOutcome{}, err
	}

	outcome := types.RunOutcome{
		Records:     make([]types.EnrichmentRecord, len(ids)),
		DupsRemoved: dups,
	}
	for i, s := range slots {
		outcome.Records[i] = s.record
		o.Metrics.RecordProduced()

		switch {
		case s.unexpected != nil:
			outcome.UnexpectedFailures++
			o.Metrics.EnrichmentFailure(types.StageUnexpected)
		default:
			if s.metaErr != nil {
				outcome.MetadataFailures++
				o.Metrics.EnrichmentFailure(types.StageMetadata)
			}
			if s.xrefErr != nil {
				outcome.CrossRefFailures++
				o.Metrics.EnrichmentFailure(types.StageCrossRef)
			}
		}
		if s.unexpected != nil || s.metaErr != nil || s.xrefErr != nil {
			outcome.Degraded++
		}
	}

	fmt.Fprintf(w, "Enriched %d entries: %d degraded (metadata failures %d, cross-reference failures %d, unexpected %d)\n",
		outcome.Total(), outcome.Degraded, outcome.MetadataFailures, outcome.CrossRefFailures, outcome.UnexpectedFailures)
	return outcome, nil
}

// enrichOne runs the enricher for id, converting a panic into an empty
// record and an UnexpectedEnrichmentFailure.
func (o *Orchestrator) enrichOne(ctx context.Context, id string) (s slot) {
	defer func() {
		if r := recover(); r != nil {
			s = slot{
				record:     types.EmptyRecord(id),
				unexpected: &types.UnexpectedEnrichmentFailure{Identifier: id, Cause: r},
			}
		}
	}()

	res := o.Enricher.Enrich(ctx, id)
	rec := res.Record
	rec.Identifier = id
	if rec.CrossRefIDs == nil {
		rec.CrossRefIDs = []string{}
	}
	return slot{record: rec, metaErr: res.MetadataErr, xrefErr: res.CrossRefErr}
}

func (o *Orchestrator) workers() int {
	switch {
	case o.Workers < 1:
		return 1
	case o.Workers > MaxWorkers:
		return MaxWorkers
	default:
		return o.Workers
	}
}

func (o *Orchestrator) progress() io.Writer {
	if o.Progress == nil {
		return io.Discard
	}
	return o.Progress
}

func degradedSuffix(s slot) string {
	var stages []string
	if s.unexpected != nil {
		stages = append(stages, types.StageUnexpected)
	}
	if s.metaErr != nil {
		stages = append(stages, types.StageMetadata)
	}
	if s.xrefErr != nil {
		stages = append(stages, types.StageCrossRef)
	}
	if len(stages) == 0 {
		return ""
	}
	return " (degraded: " + strings.Join(stages, ", ") + ")"
}

func stageOf(err error) string {
	var fetchErr *types.PerItemFetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Stage
	}
	var unexpected *types.UnexpectedEnrichmentFailure
	if errors.As(err, &unexpected) {
		return types.StageUnexpected
	}
	return "unknown"
}
