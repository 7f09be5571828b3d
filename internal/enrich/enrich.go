// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich fetches descriptive metadata and cross-referenced sequence
// identifiers for one structure entry.
//
// The two lookups hit unrelated services and run concurrently. A failure in
// one leaves its fields absent and is reported in Result; it never affects the
// other lookup and never surfaces as an error from Enrich.
package enrich

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/pdb-tracker/internal/httputil"
	"github.com/pdiddy/pdb-tracker/pkg/types"
)

// Throttle and metrics labels for the two upstream services.
const (
	EntryService   = "entry"
	MappingService = "mapping"
)

// entryBase is the entry-detail service. Declared as a var so tests can
// substitute an httptest server.
var entryBase = "https://data.rcsb.org/rest/v1/core/entry"

// mappingBase is the sequence cross-reference service.
var mappingBase = "https://www.ebi.ac.uk/pdbe/api/mappings/uniprot"

// Result is the outcome of enriching one identifier. Record is always
// populated; MetadataErr and CrossRefErr are *types.PerItemFetchError values
// when the corresponding lookup failed.
type Result struct {
	Record      types.EnrichmentRecord
	MetadataErr error
	CrossRefErr error
}

// Degraded reports whether either lookup failed.
func (r Result) Degraded() bool {
	return r.MetadataErr != nil || r.CrossRefErr != nil
}

// Client looks up entries on the entry-detail and cross-reference services.
type Client struct {
	HTTP *httputil.Client

	// EntryURL and MappingURL override the package defaults when set.
	EntryURL   string
	MappingURL string
}

// New builds a Client from enrichment settings.
func New(cfg types.EnrichmentConfig, hc *httputil.Client) *Client {
	return &Client{
		HTTP:       hc,
		EntryURL:   cfg.EntryURL,
		MappingURL: cfg.MappingURL,
	}
}

// Enrich returns the record for id. Calling it twice against unchanged
// upstream data yields equal records.
func (c *Client) Enrich(ctx context.Context, id string) Result {
	id = types.CanonicalID(id)
	var (
		meta    metadata
		metaErr error
		xrefs   []string
		xrefErr error
		lookups errgroup.Group
	)
	lookups.Go(func() error {
		meta, metaErr = c.fetchMetadata(ctx, id)
		return nil
	})
	lookups.Go(func() error {
		xrefs, xrefErr = c.fetchCrossRefs(ctx, id)
		return nil
	})
	_ = lookups.Wait()

	rec := types.EmptyRecord(id)
	if metaErr == nil {
		rec.Title = meta.Title
		rec.PubMedID = meta.PubMedID
		rec.Resolution = meta.Resolution
		rec.Method = meta.Method
	}
	if xrefErr == nil && xrefs != nil {
		rec.CrossRefIDs = xrefs
	}
	return Result{Record: rec, MetadataErr: metaErr, CrossRefErr: xrefErr}
}

func (c *Client) get(ctx context.Context, service, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return c.HTTP.Do(ctx, service, req)
}
