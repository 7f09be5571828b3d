// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/pdb-tracker/pkg/types"
)

const dateLayout = "2006-01-02"

// ArtifactName names the enrichment artifact for a since-date run, e.g.
// pdb_metadata_since_2024-01-15_saved_2024-03-02.csv.
func ArtifactName(since string, saved time.Time, format types.OutputFormat) string {
	return fmt.Sprintf("pdb_metadata_since_%s_saved_%s.%s", safeLabel(since), saved.Format(dateLayout), format.Ext())
}

// ListArtifactName names the enrichment artifact for a run driven by an
// identifier list file, using the file's base name without extension.
func ListArtifactName(listPath string, saved time.Time, format types.OutputFormat) string {
	stem := strings.TrimSuffix(filepath.Base(listPath), filepath.Ext(listPath))
	return fmt.Sprintf("pdb_metadata_from_%s_saved_%s.%s", safeLabel(stem), saved.Format(dateLayout), format.Ext())
}

// DiscoveryArtifactName names the identifier list written by a
// discovery-only run.
func DiscoveryArtifactName(since string, saved time.Time) string {
	return fmt.Sprintf("released_pdbs_since_%s_saved_%s.txt", safeLabel(since), saved.Format(dateLayout))
}

// safeLabel keeps letters, digits, dot, dash, and underscore; anything else
// becomes an underscore.
func safeLabel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
