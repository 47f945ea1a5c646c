package acreage

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/cx-datamart/acreage-cli/internal/fetcher"
	"github.com/cx-datamart/acreage-cli/internal/progress"
)

// FilePrefix is the fixed stem of every downloaded archive name.
const FilePrefix = "usda_fsa_crop_acreage_by_crop_county"

const copyChunkSize = 1 << 20 // 1 MiB

// OutputFilename builds the deterministic archive name for a crop year,
// including the as-of date when one was recovered.
func OutputFilename(year string, asOf *time.Time) string {
	if asOf != nil {
		return fmt.Sprintf("%s_%s_asof_%s.zip", FilePrefix, year, asOf.Format("2006-01-02"))
	}
	return fmt.Sprintf("%s_%s.zip", FilePrefix, year)
}

// Downloader streams archives to disk with progress reporting.
type Downloader struct {
	transport   fetcher.Transport
	progressOut io.Writer
}

// NewDownloader creates a Downloader. progressOut receives the progress bar;
// nil means stdout.
func NewDownloader(t fetcher.Transport, progressOut io.Writer) *Downloader {
	return &Downloader{transport: t, progressOut: progressOut}
}

// Fetch streams the archive at rawURL to dest in fixed-size chunks, never
// buffering the body. On a write or read failure the partial file is removed
// so nothing ambiguous is left on disk.
func (d *Downloader) Fetch(ctx context.Context, rawURL, dest string) (int64, error) {
	resp, err := d.transport.GetStream(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode/100 != 2 {
		return 0, eris.Errorf("download: unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	file, err := os.Create(dest)
	if err != nil {
		return 0, eris.Wrapf(err, "download: create %s", dest)
	}

	bar := progress.NewBar(d.progressOut, resp.ContentLength)
	n, copyErr := io.CopyBuffer(bar.Writer(file), resp.Body, make([]byte, copyChunkSize))
	bar.Finish()

	closeErr := file.Close()
	if copyErr != nil {
		_ = os.Remove(dest)
		return n, eris.Wrapf(copyErr, "download: stream %s", rawURL)
	}
	if closeErr != nil {
		_ = os.Remove(dest)
		return n, eris.Wrapf(closeErr, "download: close %s", dest)
	}

	return n, nil
}
