// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discover issues a query criterion to the structure search service
// and returns every matching identifier.
//
// The search service may cap a single response below the total hit count, so
// the client keeps requesting pages until it holds total_count results or a
// page comes back empty.
package discover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/pdb-tracker/internal/httputil"
	"github.com/pdiddy/pdb-tracker/internal/logger"
	"github.com/pdiddy/pdb-tracker/internal/metrics"
	"github.com/pdiddy/pdb-tracker/internal/query"
	"github.com/pdiddy/pdb-tracker/pkg/types"
)

// Service is the throttle and metrics label for the search service.
const Service = "search"

// searchBase is the search service endpoint. Declared as a var so tests can
// substitute an httptest server.
var searchBase = "https://search.rcsb.org/rcsbsearch/v2/query"

// followUpRows is the page size used to fetch results missing from a
// truncated return-all-hits response.
const followUpRows = 10000

// Output holds the discovered identifiers and retrieval statistics.
type Output struct {
	// IDs are canonical, unique, and in the order the service returned them.
	IDs []string

	// TotalCount is the hit count reported by the service.
	TotalCount int

	// DupsRemoved is the number of repeated identifiers dropped.
	DupsRemoved int

	// Pages is the number of requests it took to assemble the set.
	Pages int
}

// Client queries the search service.
type Client struct {
	HTTP *httputil.Client

	// SearchURL overrides searchBase when set.
	SearchURL string

	// PageSize is the rows per request. Zero asks for all hits at once.
	PageSize int

	Metrics *metrics.Recorder
}

// New builds a Client from discovery settings.
func New(cfg types.DiscoveryConfig, hc *httputil.Client) *Client {
	return &Client{
		HTTP:      hc,
		SearchURL: cfg.SearchURL,
		PageSize:  cfg.PageSize,
		Metrics:   hc.Metrics,
	}
}

// Discover returns the complete, deduplicated identifier set matching c.
// A non-success status or unusable body yields *types.UpstreamUnavailableError,
// a network failure yields *types.TransportError. Context cancellation is
// returned unwrapped.
func (c *Client) Discover(ctx context.Context, crit query.Criterion) (Output, error) {
	if crit.IsZero() {
		return Output{}, &types.InvalidInputError{Input: "criterion", Reason: "criterion is empty"}
	}
	log := logger.FromContext(ctx)

	var (
		raw   []string
		total int
		pages int
	)
	opts := requestOptions{ReturnAllHits: c.PageSize == 0}
	if c.PageSize > 0 {
		opts.Paginate = &paginate{Start: 0, Rows: c.PageSize}
	}

	for {
		page, err := c.fetch(ctx, crit, opts)
		if err != nil {
			return Output{}, err
		}
		pages++
		if pages == 1 {
			total = page.TotalCount
		}
		for _, hit := range page.ResultSet {
			raw = append(raw, hit.Identifier)
		}

		if len(page.ResultSet) == 0 || len(raw) >= total {
			break
		}
		rows := c.PageSize
		if rows <= 0 {
			rows = followUpRows
		}
		log.Debug("discovery result truncated, fetching next page",
			zap.Int("have", len(raw)),
			zap.Int("total_count", total),
		)
		opts = requestOptions{Paginate: &paginate{Start: len(raw), Rows: rows}}
	}

	ids, removed := types.DedupeIDs(raw)
	c.Metrics.Discovered(len(ids), removed)
	if removed > 0 {
		log.Info("dropped duplicate identifiers", zap.Int("duplicates", removed))
	}
	return Output{
		IDs:         ids,
		TotalCount:  total,
		DupsRemoved: removed,
		Pages:       pages,
	}, nil
}

// fetch sends one search request. HTTP 204 is an empty result set.
func (c *Client) fetch(ctx context.Context, crit query.Criterion, opts requestOptions) (searchResponse, error) {
	body, err := json.Marshal(newSearchRequest(crit, opts))
	if err != nil {
		return searchResponse{}, fmt.Errorf("encoding search request: %w", err)
	}

	endpoint := searchBase
	if c.SearchURL != "" {
		endpoint = c.SearchURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return searchResponse{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(ctx, Service, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return searchResponse{}, ctxErr
		}
		return searchResponse{}, &types.TransportError{Service: Service, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return searchResponse{}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return searchResponse{}, &types.UpstreamUnavailableError{Service: Service, StatusCode: resp.StatusCode}
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return searchResponse{}, ctxErr
		}
		return searchResponse{}, &types.UpstreamUnavailableError{
			Service:    Service,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("parsing search response: %w", err),
		}
	}
	return sr, nil
}

func newSearchRequest(crit query.Criterion, opts requestOptions) searchRequest {
	params := searchParameters{
		Attribute: crit.Attribute(),
		Operator:  string(crit.Operator()),
	}
	if crit.Operator() != query.OpExists {
		params.Value = crit.Value()
	}
	return searchRequest{
		Query: searchQuery{
			Type:       "terminal",
			Service:    "text",
			Parameters: params,
		},
		ReturnType:     "entry",
		RequestOptions: opts,
	}
}

// Search service JSON structures (unexported).

type searchRequest struct {
	Query          searchQuery    `json:"query"`
	ReturnType     string         `json:"return_type"`
	RequestOptions requestOptions `json:"request_options"`
}

type searchQuery struct {
	Type       string           `json:"type"`
	Service    string           `json:"service"`
	Parameters searchParameters `json:"parameters"`
}

type searchParameters struct {
	Attribute string `json:"attribute"`
	Operator  string `json:"operator"`
	Value     string `json:"value,omitempty"`
}

type requestOptions struct {
	ReturnAllHits bool      `json:"return_all_hits,omitempty"`
	Paginate      *paginate `json:"paginate,omitempty"`
}

type paginate struct {
	Start int `json:"start"`
	Rows  int `json:"rows"`
}

type searchResponse struct {
	TotalCount int         `json:"total_count"`
	ResultSet  []searchHit `json:"result_set"`
}

type searchHit struct {
	Identifier string  `json:"identifier"`
	Score      float64 `json:"score"`
}
