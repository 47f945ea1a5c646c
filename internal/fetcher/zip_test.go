package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func TestExtractArchive(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "data.zip")
	writeZip(t, zipPath, map[string]string{
		"county_data.xlsx": "workbook bytes",
		"notes/readme.txt": "see workbook",
	})

	dest := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(dest, 0o755))

	files, err := ExtractArchive(zipPath, dest)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	data, err := os.ReadFile(filepath.Join(dest, "county_data.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, "workbook bytes", string(data))
}

func TestExtractArchive_ZipSlipBlocked(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	writeZip(t, zipPath, map[string]string{
		"../escape.txt": "nope",
	})

	dest := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(dest, 0o755))

	_, err := ExtractArchive(zipPath, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip slip")
	assert.NoFileExists(t, filepath.Join(dir, "escape.txt"))
}

func TestExtractAll_SkipsExistingUnlessOverwrite(t *testing.T) {
	dir := t.TempDir()
	writeZip(t, filepath.Join(dir, "usda_fsa_crop_acreage_by_crop_county_2024.zip"), map[string]string{
		"2024_fsa_acres.xlsx": "v1",
	})

	dirs, err := ExtractAll(dir, false)
	require.NoError(t, err)
	require.Len(t, dirs, 1)

	extracted := filepath.Join(dir, "usda_fsa_crop_acreage_by_crop_county_2024", "2024_fsa_acres.xlsx")
	assert.FileExists(t, extracted)

	// Second run without overwrite leaves the directory alone.
	require.NoError(t, os.WriteFile(extracted, []byte("modified"), 0o644))
	dirs, err = ExtractAll(dir, false)
	require.NoError(t, err)
	assert.Empty(t, dirs)

	data, err := os.ReadFile(extracted)
	require.NoError(t, err)
	assert.Equal(t, "modified", string(data))

	// Overwrite rebuilds from the archive.
	dirs, err = ExtractAll(dir, true)
	require.NoError(t, err)
	require.Len(t, dirs, 1)

	data, err = os.ReadFile(extracted)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
}

func TestExtractAll_NoArchives(t *testing.T) {
	dirs, err := ExtractAll(t.TempDir(), false)
	require.NoError(t, err)
	assert.Empty(t, dirs)
}
