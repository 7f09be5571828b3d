// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdb-tracker/internal/httputil"
	"github.com/pdiddy/pdb-tracker/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = 1 * time.Millisecond
}

const entry1ABC = `{
  "struct": {"title": "Crystal structure of human haemoglobin"},
  "rcsb_primary_citation": {"pdbx_database_id_pub_med": 12345678},
  "exptl": [{"method": "X-RAY DIFFRACTION"}],
  "rcsb_entry_info": {"resolution_combined": [1.85, 2.1]}
}`

const mapping1ABC = `{"1abc": {"UniProt": {"P69905": {"name": "HBA_HUMAN"}, "P68871": {"name": "HBB_HUMAN"}}}}`

// fakeUpstream serves both services. Handlers keyed by path; unknown paths 404.
type fakeUpstream struct {
	entry   map[string]func(w http.ResponseWriter)
	mapping map[string]func(w http.ResponseWriter)
}

func respond(code int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		w.Write([]byte(body))
	}
}

func newTestClient(t *testing.T, up fakeUpstream) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var h func(http.ResponseWriter)
		switch {
		case strings.HasPrefix(r.URL.Path, "/entry/"):
			h = up.entry[strings.TrimPrefix(r.URL.Path, "/entry/")]
		case strings.HasPrefix(r.URL.Path, "/mapping/"):
			h = up.mapping[strings.TrimPrefix(r.URL.Path, "/mapping/")]
		}
		if h == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h(w)
	}))
	t.Cleanup(srv.Close)

	origEntry, origMapping := entryBase, mappingBase
	entryBase = srv.URL + "/entry"
	mappingBase = srv.URL + "/mapping"
	t.Cleanup(func() {
		entryBase, mappingBase = origEntry, origMapping
	})

	hc := httputil.NewClient(types.HTTPConfig{UserAgent: "pdb-tracker-test", Timeout: 5 * time.Second}, nil, nil)
	return New(types.EnrichmentConfig{}, hc)
}

func TestEnrich_Success(t *testing.T) {
	c := newTestClient(t, fakeUpstream{
		entry:   map[string]func(http.ResponseWriter){"1ABC": respond(200, entry1ABC)},
		mapping: map[string]func(http.ResponseWriter){"1abc": respond(200, mapping1ABC)},
	})

	res := c.Enrich(context.Background(), "1abc")
	require.NoError(t, res.MetadataErr)
	require.NoError(t, res.CrossRefErr)
	assert.False(t, res.Degraded())

	rec := res.Record
	assert.Equal(t, "1ABC", rec.Identifier)
	require.NotNil(t, rec.Title)
	assert.Equal(t, "Crystal structure of human haemoglobin", *rec.Title)
	require.NotNil(t, rec.PubMedID)
	assert.Equal(t, "12345678", *rec.PubMedID)
	require.NotNil(t, rec.Method)
	assert.Equal(t, "X-RAY DIFFRACTION", *rec.Method)
	require.NotNil(t, rec.Resolution)
	assert.True(t, decimal.RequireFromString("1.85").Equal(*rec.Resolution))
	assert.Equal(t, []string{"P68871", "P69905"}, rec.CrossRefIDs)
}

func TestEnrich_MetadataNotFound(t *testing.T) {
	c := newTestClient(t, fakeUpstream{
		entry:   map[string]func(http.ResponseWriter){"1ABC": respond(404, `{"status":404}`)},
		mapping: map[string]func(http.ResponseWriter){"1abc": respond(200, `{"1abc":{"UniProt":{"P12345":{}}}}`)},
	})

	res := c.Enrich(context.Background(), "1ABC")

	var fetchErr *types.PerItemFetchError
	require.True(t, errors.As(res.MetadataErr, &fetchErr))
	assert.Equal(t, types.StageMetadata, fetchErr.Stage)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Equal(t, "1ABC", fetchErr.Identifier)
	assert.NoError(t, res.CrossRefErr)
	assert.True(t, res.Degraded())

	rec := res.Record
	assert.Equal(t, "1ABC", rec.Identifier)
	assert.Nil(t, rec.Title)
	assert.Nil(t, rec.PubMedID)
	assert.Nil(t, rec.Resolution)
	assert.Nil(t, rec.Method)
	assert.Equal(t, []string{"P12345"}, rec.CrossRefIDs)
}

func TestEnrich_CrossRefNotFoundIsEmpty(t *testing.T) {
	c := newTestClient(t, fakeUpstream{
		entry: map[string]func(http.ResponseWriter){"1ABC": respond(200, entry1ABC)},
	})

	res := c.Enrich(context.Background(), "1ABC")
	assert.NoError(t, res.MetadataErr)
	assert.NoError(t, res.CrossRefErr)
	assert.Empty(t, res.Record.CrossRefIDs)
	assert.NotNil(t, res.Record.CrossRefIDs)
}

func TestEnrich_CrossRefServerError(t *testing.T) {
	c := newTestClient(t, fakeUpstream{
		entry:   map[string]func(http.ResponseWriter){"1ABC": respond(200, entry1ABC)},
		mapping: map[string]func(http.ResponseWriter){"1abc": respond(502, "bad gateway")},
	})

	res := c.Enrich(context.Background(), "1ABC")
	assert.NoError(t, res.MetadataErr)

	var fetchErr *types.PerItemFetchError
	require.True(t, errors.As(res.CrossRefErr, &fetchErr))
	assert.Equal(t, types.StageCrossRef, fetchErr.Stage)
	assert.Equal(t, 502, fetchErr.StatusCode)

	require.NotNil(t, res.Record.Title)
	assert.Empty(t, res.Record.CrossRefIDs)
}

func TestEnrich_MalformedPayloads(t *testing.T) {
	c := newTestClient(t, fakeUpstream{
		entry:   map[string]func(http.ResponseWriter){"1ABC": respond(200, `{"struct": {"title": 42}}`)},
		mapping: map[string]func(http.ResponseWriter){"1abc": respond(200, `["not", "a", "map"]`)},
	})

	res := c.Enrich(context.Background(), "1ABC")

	var metaErr, xrefErr *types.PerItemFetchError
	require.True(t, errors.As(res.MetadataErr, &metaErr))
	require.True(t, errors.As(res.CrossRefErr, &xrefErr))
	assert.Error(t, metaErr.Err)
	assert.Error(t, xrefErr.Err)
	assert.Equal(t, types.EmptyRecord("1ABC"), res.Record)
}

func TestEnrich_NMREntryWithoutResolution(t *testing.T) {
	c := newTestClient(t, fakeUpstream{
		entry: map[string]func(http.ResponseWriter){"2XYZ": respond(200, `{
			"struct": {"title": "Solution structure of a zinc finger"},
			"rcsb_primary_citation": {"pdbx_database_id_pub_med": null},
			"exptl": [{"method": "SOLUTION NMR"}],
			"rcsb_entry_info": {"resolution_combined": null}
		}`)},
		mapping: map[string]func(http.ResponseWriter){"2xyz": respond(200, `{"2xyz":{"UniProt":{}}}`)},
	})

	res := c.Enrich(context.Background(), "2XYZ")
	require.NoError(t, res.MetadataErr)
	require.NoError(t, res.CrossRefErr)
	assert.Nil(t, res.Record.Resolution)
	assert.Nil(t, res.Record.PubMedID)
	require.NotNil(t, res.Record.Method)
	assert.Equal(t, "SOLUTION NMR", *res.Record.Method)
	assert.Empty(t, res.Record.CrossRefIDs)
}

func TestEnrich_ResolutionKeepsUpstreamDigits(t *testing.T) {
	c := newTestClient(t, fakeUpstream{
		entry: map[string]func(http.ResponseWriter){"3DEF": respond(200, `{
			"struct": {"title": "Lysozyme"},
			"exptl": [{"method": "X-RAY DIFFRACTION"}],
			"rcsb_entry_info": {"resolution_combined": [2.0]}
		}`)},
		mapping: map[string]func(http.ResponseWriter){"3def": respond(200, `{"3def":{"UniProt":{}}}`)},
	})

	res := c.Enrich(context.Background(), "3DEF")
	require.NoError(t, res.MetadataErr)
	require.NotNil(t, res.Record.Resolution)
	assert.Equal(t, "2.0", res.Record.ResolutionText())
}

func TestEnrich_Idempotent(t *testing.T) {
	c := newTestClient(t, fakeUpstream{
		entry:   map[string]func(http.ResponseWriter){"1ABC": respond(200, entry1ABC)},
		mapping: map[string]func(http.ResponseWriter){"1abc": respond(200, mapping1ABC)},
	})

	first := c.Enrich(context.Background(), "1ABC")
	second := c.Enrich(context.Background(), "1ABC")
	assert.Equal(t, first, second)
}

func TestEnrich_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	hc := httputil.NewClient(types.HTTPConfig{UserAgent: "pdb-tracker-test"}, nil, nil)
	c := New(types.EnrichmentConfig{EntryURL: url + "/entry", MappingURL: url + "/mapping"}, hc)

	res := c.Enrich(context.Background(), "1ABC")
	var metaErr, xrefErr *types.PerItemFetchError
	require.True(t, errors.As(res.MetadataErr, &metaErr))
	require.True(t, errors.As(res.CrossRefErr, &xrefErr))
	assert.Zero(t, metaErr.StatusCode)
	assert.Zero(t, xrefErr.StatusCode)
	assert.Equal(t, types.EmptyRecord("1ABC"), res.Record)
}

func TestMappingAccessions(t *testing.T) {
	tests := []struct {
		name string
		resp mappingResponse
		want []string
	}{
		{"empty response", mappingResponse{}, []string{}},
		{"other entry only", mappingResponse{"9zzz": {UniProt: uniprot("Q1")}}, []string{}},
		{"upper-case key", mappingResponse{"1ABC": {UniProt: uniprot("P2", "P1")}}, []string{"P1", "P2"}},
		{"sorted", mappingResponse{"1abc": {UniProt: uniprot("Q9", "A0", "P5")}}, []string{"A0", "P5", "Q9"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.resp.accessions("1abc"))
		})
	}
}

func uniprot(accs ...string) map[string]json.RawMessage {
	m := make(map[string]json.RawMessage, len(accs))
	for _, a := range accs {
		m[a] = json.RawMessage(`{}`)
	}
	return m
}
