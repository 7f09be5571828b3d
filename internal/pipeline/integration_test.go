// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// End-to-end run against fake search, entry, and mapping services using the
// real discovery and enrichment clients.

package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdb-tracker/internal/discover"
	"github.com/pdiddy/pdb-tracker/internal/enrich"
	"github.com/pdiddy/pdb-tracker/internal/httputil"
	"github.com/pdiddy/pdb-tracker/internal/metrics"
	"github.com/pdiddy/pdb-tracker/internal/throttle"
	"github.com/pdiddy/pdb-tracker/pkg/types"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total_count": 3, "result_set": [
			{"identifier": "1ABC", "score": 1},
			{"identifier": "1ABC", "score": 1},
			{"identifier": "2XYZ", "score": 1}
		]}`))
	})
	mux.HandleFunc("/entry/1ABC", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/entry/2XYZ", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"struct": {"title": "Lysozyme, \"hen egg-white\""},
			"exptl": [{"method": "ELECTRON MICROSCOPY"}],
			"rcsb_entry_info": {"resolution_combined": [3.2]}}`))
	})
	mux.HandleFunc("/mapping/1abc", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"1abc": {"UniProt": {"P12345": {}}}}`))
	})
	mux.HandleFunc("/mapping/2xyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_EndToEnd(t *testing.T) {
	srv := newUpstream(t)
	rec := metrics.New()
	th := throttle.New(time.Millisecond)
	httpCfg := types.HTTPConfig{UserAgent: "pdb-tracker-test", Timeout: 5 * time.Second}

	d := discover.New(types.DiscoveryConfig{HTTPConfig: httpCfg, SearchURL: srv.URL + "/search"},
		httputil.NewClient(httpCfg, th, rec))
	e := enrich.New(types.EnrichmentConfig{HTTPConfig: httpCfg, EntryURL: srv.URL + "/entry", MappingURL: srv.URL + "/mapping"},
		httputil.NewClient(httpCfg, th, rec))

	var progress strings.Builder
	o := &Orchestrator{Discoverer: d, Enricher: e, Workers: 2, Progress: &progress, Metrics: rec}

	outcome, err := o.Run(context.Background(), mustBuild(t))
	require.NoError(t, err)

	require.Len(t, outcome.Records, 2)
	assert.Equal(t, 1, outcome.DupsRemoved)
	assert.Equal(t, 1, outcome.MetadataFailures)
	assert.Equal(t, 0, outcome.CrossRefFailures)
	assert.Equal(t, 1, outcome.Degraded)

	first := outcome.Records[0]
	assert.Equal(t, "1ABC", first.Identifier)
	assert.Nil(t, first.Title)
	assert.Equal(t, []string{"P12345"}, first.CrossRefIDs)

	second := outcome.Records[1]
	assert.Equal(t, "2XYZ", second.Identifier)
	require.NotNil(t, second.Method)
	assert.Equal(t, "ELECTRON MICROSCOPY", *second.Method)
	require.NotNil(t, second.Resolution)
	assert.Equal(t, "3.2", second.Resolution.String())
	assert.Empty(t, second.CrossRefIDs)

	assert.Contains(t, progress.String(), "Found 2 entries since 2024-01-15")
}
