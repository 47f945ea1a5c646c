package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ExtractArchive extracts all entries of a ZIP archive into destDir and
// returns the extracted file paths.
func ExtractArchive(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "zip: open archive %s", zipPath)
	}
	defer r.Close() //nolint:errcheck

	var extracted []string
	for _, f := range r.File {
		path, err := extractEntry(f, destDir)
		if err != nil {
			return extracted, err
		}
		if path != "" {
			extracted = append(extracted, path)
		}
	}

	return extracted, nil
}

// ExtractAll extracts every *.zip directly under sourceDir into a sibling
// directory named after the archive stem. Existing extraction directories
// are skipped unless overwrite is set, in which case they are rebuilt.
// Returns the extraction directories that were (re)populated.
func ExtractAll(sourceDir string, overwrite bool) ([]string, error) {
	if err := os.MkdirAll(sourceDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "zip: create source dir %s", sourceDir)
	}

	archives, err := filepath.Glob(filepath.Join(sourceDir, "*.zip"))
	if err != nil {
		return nil, eris.Wrap(err, "zip: glob archives")
	}

	log := zap.L().With(zap.String("component", "extract"))

	var dirs []string
	for _, zipPath := range archives {
		stem := strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
		extractDir := filepath.Join(sourceDir, stem)

		if _, err := os.Stat(extractDir); err == nil {
			if !overwrite {
				log.Debug("skipping existing extraction", zap.String("dir", extractDir))
				continue
			}
			if err := os.RemoveAll(extractDir); err != nil {
				return dirs, eris.Wrapf(err, "zip: clear %s", extractDir)
			}
		}

		if err := os.MkdirAll(extractDir, 0o755); err != nil {
			return dirs, eris.Wrapf(err, "zip: create %s", extractDir)
		}

		files, err := ExtractArchive(zipPath, extractDir)
		if err != nil {
			return dirs, eris.Wrapf(err, "zip: extract %s", zipPath)
		}

		log.Info("extracted archive",
			zap.String("archive", filepath.Base(zipPath)),
			zap.Int("files", len(files)),
		)
		dirs = append(dirs, extractDir)
	}

	return dirs, nil
}

// extractEntry extracts a single zip.File to the destination directory.
// Returns the extracted file path, or empty string for directories.
func extractEntry(f *zip.File, destDir string) (string, error) {
	// Sanitize against zip slip
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: illegal path %q (zip slip attempt)", f.Name)
	}

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(destPath, 0o755); err != nil {
			return "", eris.Wrap(err, "zip: create directory")
		}
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "zip: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "zip: write file")
	}

	return destPath, nil
}
