// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/pdiddy/pdb-tracker/pkg/types"
)

// fetchCrossRefs returns the sorted, unique sequence accessions mapped to id.
// The service answers 404 for entries with no mapping; that is an empty set,
// not a failure.
func (c *Client) fetchCrossRefs(ctx context.Context, id string) ([]string, error) {
	base := mappingBase
	if c.MappingURL != "" {
		base = c.MappingURL
	}
	pathID := types.PathID(id)
	resp, err := c.get(ctx, MappingService, strings.TrimRight(base, "/")+"/"+url.PathEscape(pathID))
	if err != nil {
		return nil, &types.PerItemFetchError{Identifier: id, Stage: types.StageCrossRef, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return []string{}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &types.PerItemFetchError{Identifier: id, Stage: types.StageCrossRef, StatusCode: resp.StatusCode}
	}

	var mr mappingResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, &types.PerItemFetchError{
			Identifier: id,
			Stage:      types.StageCrossRef,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("parsing mapping response: %w", err),
		}
	}
	return mr.accessions(pathID), nil
}

// accessions collects the mapped accessions for pathID. The service keys its
// response by the lower-case identifier; other casings are accepted too.
func (mr mappingResponse) accessions(pathID string) []string {
	entry, ok := mr[pathID]
	if !ok {
		for k, v := range mr {
			if strings.EqualFold(k, pathID) {
				entry, ok = v, true
				break
			}
		}
	}
	out := []string{}
	if !ok {
		return out
	}
	seen := make(map[string]bool, len(entry.UniProt))
	for acc := range entry.UniProt {
		acc = strings.TrimSpace(acc)
		if acc == "" || seen[acc] {
			continue
		}
		seen[acc] = true
		out = append(out, acc)
	}
	sort.Strings(out)
	return out
}

// Cross-reference service JSON structures (unexported).

// mappingResponse is keyed by lower-case entry identifier.
type mappingResponse map[string]mappingEntry

type mappingEntry struct {
	UniProt map[string]json.RawMessage `json:"UniProt"`
}
