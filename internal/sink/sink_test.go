// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdb-tracker/pkg/types"
)

func strPtr(s string) *string { return &s }

func sampleOutcome() types.RunOutcome {
	res := decimal.RequireFromString("1.80")
	return types.RunOutcome{
		Records: []types.EnrichmentRecord{
			{
				Identifier:  "1ABC",
				Title:       strPtr("Structure of Ångström-scale β-sheet, \"refined\""),
				PubMedID:    strPtr("12345678"),
				Resolution:  &res,
				Method:      strPtr("X-RAY DIFFRACTION"),
				CrossRefIDs: []string{"P68871", "P69905"},
			},
			types.EmptyRecord("2XYZ"),
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleOutcome()))

	assert.True(t, utf8.Valid(buf.Bytes()))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Identifier", "Title", "PubMed_ID", "Resolution", "Experimental_Method", "Cross_Ref_IDs"}, rows[0])
	assert.Equal(t, []string{
		"1ABC",
		"Structure of Ångström-scale β-sheet, \"refined\"",
		"12345678",
		"1.80",
		"X-RAY DIFFRACTION",
		"P68871,P69905",
	}, rows[1])
	assert.Equal(t, []string{"2XYZ", "", "", "", "", ""}, rows[2])
}

func TestWriteCSV_HeaderLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, types.RunOutcome{}))
	assert.Equal(t, "Identifier,Title,PubMed_ID,Resolution,Experimental_Method,Cross_Ref_IDs\n", buf.String())
}

func TestWriteCSV_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, WriteCSV(&a, sampleOutcome()))
	require.NoError(t, WriteCSV(&b, sampleOutcome()))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestWriteFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, WriteFile(path, types.FormatCSV, sampleOutcome()))
	require.NoError(t, WriteFile(path, types.FormatCSV, types.RunOutcome{
		Records: []types.EnrichmentRecord{types.EmptyRecord("9ZZZ")},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Identifier,Title,PubMed_ID,Resolution,Experimental_Method,Cross_Ref_IDs\n9ZZZ,,,,,\n", string(data))
}

func TestWriteFile_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.csv")
	require.NoError(t, WriteFile(path, types.FormatCSV, sampleOutcome()))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestWriteAtomic_FailureLeavesTargetUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("previous\n"), 0o644))

	boom := errors.New("boom")
	err := WriteAtomic(path, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be removed")
}

func TestWriteFile_UnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	err := WriteFile(path, types.OutputFormat("xlsx"), sampleOutcome())
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteFile_Parquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.parquet")
	require.NoError(t, WriteFile(path, types.FormatParquet, sampleOutcome()))

	rows, err := parquet.ReadFile[parquetRow](path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "1ABC", rows[0].Identifier)
	require.NotNil(t, rows[0].Resolution)
	assert.Equal(t, "1.80", *rows[0].Resolution)
	assert.Equal(t, []string{"P68871", "P69905"}, rows[0].CrossRefIDs)

	assert.Equal(t, "2XYZ", rows[1].Identifier)
	assert.Nil(t, rows[1].Title)
	assert.Nil(t, rows[1].Resolution)
	assert.Empty(t, rows[1].CrossRefIDs)
}

func TestArtifactNames(t *testing.T) {
	saved := time.Date(2024, 3, 2, 15, 4, 5, 0, time.UTC)

	assert.Equal(t, "pdb_metadata_since_2024-01-15_saved_2024-03-02.csv",
		ArtifactName("2024-01-15", saved, types.FormatCSV))
	assert.Equal(t, "pdb_metadata_since_2024-01-15_saved_2024-03-02.parquet",
		ArtifactName("2024-01-15", saved, types.FormatParquet))
	assert.Equal(t, "pdb_metadata_from_weekly_ids_saved_2024-03-02.csv",
		ListArtifactName("/data/lists/weekly_ids.txt", saved, types.FormatCSV))
	assert.Equal(t, "released_pdbs_since_2024-01-15_saved_2024-03-02.txt",
		DiscoveryArtifactName("2024-01-15", saved))
	assert.Equal(t, "released_pdbs_since_struct.title_contains_kinase_saved_2024-03-02.txt",
		DiscoveryArtifactName("struct.title contains kinase", saved))
	assert.Equal(t, "pdb_metadata_since_unknown_saved_2024-03-02.csv",
		ArtifactName("", saved, ""))
}
