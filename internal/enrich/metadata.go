// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pdiddy/pdb-tracker/pkg/types"
)

// metadata is the subset of an entry's detail document the record carries.
type metadata struct {
	Title      *string
	PubMedID   *string
	Resolution *decimal.Decimal
	Method     *string
}

// fetchMetadata retrieves title, citation, resolution, and method for id.
// Any non-2xx status, including 404, is a failure.
func (c *Client) fetchMetadata(ctx context.Context, id string) (metadata, error) {
	base := entryBase
	if c.EntryURL != "" {
		base = c.EntryURL
	}
	resp, err := c.get(ctx, EntryService, strings.TrimRight(base, "/")+"/"+url.PathEscape(id))
	if err != nil {
		return metadata{}, &types.PerItemFetchError{Identifier: id, Stage: types.StageMetadata, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return metadata{}, &types.PerItemFetchError{Identifier: id, Stage: types.StageMetadata, StatusCode: resp.StatusCode}
	}

	var er entryResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return metadata{}, &types.PerItemFetchError{
			Identifier: id,
			Stage:      types.StageMetadata,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("parsing entry response: %w", err),
		}
	}
	return er.metadata(), nil
}

// metadata extracts the record fields. Missing or empty values stay nil.
func (er entryResponse) metadata() metadata {
	var m metadata
	if er.Struct != nil {
		m.Title = nonEmpty(er.Struct.Title)
	}
	if er.PrimaryCitation != nil && er.PrimaryCitation.PubMedID != nil {
		s := er.PrimaryCitation.PubMedID.String()
		m.PubMedID = nonEmpty(&s)
	}
	for _, e := range er.Exptl {
		if m.Method = nonEmpty(e.Method); m.Method != nil {
			break
		}
	}
	if er.EntryInfo != nil {
		for _, r := range er.EntryInfo.ResolutionCombined {
			if r != nil {
				d := *r
				m.Resolution = &d
				break
			}
		}
	}
	return m
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Entry-detail service JSON structures (unexported).

type entryResponse struct {
	Struct          *entryStruct   `json:"struct"`
	PrimaryCitation *entryCitation `json:"rcsb_primary_citation"`
	Exptl           []entryExptl   `json:"exptl"`
	EntryInfo       *entryInfo     `json:"rcsb_entry_info"`
}

type entryStruct struct {
	Title *string `json:"title"`
}

type entryCitation struct {
	PubMedID *json.Number `json:"pdbx_database_id_pub_med"`
}

type entryExptl struct {
	Method *string `json:"method"`
}

type entryInfo struct {
	ResolutionCombined []*decimal.Decimal `json:"resolution_combined"`
}
