package acreage

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cx-datamart/acreage-cli/internal/fetcher"
	"github.com/cx-datamart/acreage-cli/internal/warehouse"
)

// Outcome is the distinct terminal state of one year's run.
type Outcome int

const (
	// OutcomeSuccess: archive downloaded, non-empty, on disk.
	OutcomeSuccess Outcome = iota
	// OutcomeNoCandidates: the index page has no links for the year.
	OutcomeNoCandidates
	// OutcomeNoSelection: candidates existed but none resolved to an archive.
	OutcomeNoSelection
	// OutcomeEmptyFile: the download produced zero bytes; partial removed.
	OutcomeEmptyFile
	// OutcomeError: a transport or input failure aborted the year.
	OutcomeError
)

// String returns the human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNoCandidates:
		return "no candidates"
	case OutcomeNoSelection:
		return "no selectable candidate"
	case OutcomeEmptyFile:
		return "empty download"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// ExitCode maps the outcome to the process exit code the fetch command uses.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeSuccess:
		return 0
	case OutcomeNoCandidates:
		return 2
	case OutcomeNoSelection:
		return 3
	case OutcomeEmptyFile:
		return 4
	default:
		return 1
	}
}

// DownloadResult is the terminal record for one requested year.
type DownloadResult struct {
	RunID          string
	Year           string
	Outcome        Outcome
	ResolvedURL    string
	AsOf           *time.Time
	OutputPath     string
	Bytes          int64
	FailureReason  string
	AvailableYears []string
}

// Success reports whether the year completed with an archive on disk.
func (r *DownloadResult) Success() bool {
	return r.Outcome == OutcomeSuccess
}

// Options configures an Orchestrator.
type Options struct {
	IndexURL    string
	OutputDir   string
	ProgressOut io.Writer
	Uploader    warehouse.Uploader // optional; nil skips upload
}

// Orchestrator drives the full cycle for one or many crop years:
// fetch index, classify, resolve, select, download, verify.
type Orchestrator struct {
	transport  fetcher.Transport
	resolver   *Resolver
	downloader *Downloader
	opts       Options
	log        *zap.Logger
}

// NewOrchestrator wires the pipeline over the given transport.
func NewOrchestrator(t fetcher.Transport, opts Options) *Orchestrator {
	if opts.IndexURL == "" {
		opts.IndexURL = IndexURL
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	return &Orchestrator{
		transport:  t,
		resolver:   NewResolver(t),
		downloader: NewDownloader(t, opts.ProgressOut),
		opts:       opts,
		log:        zap.L().With(zap.String("component", "orchestrator")),
	}
}

// RunYear executes one full cycle for a crop year. Expected non-success
// conditions (no candidates, nothing selectable, empty download) come back
// as distinct outcomes; only transport and input failures return an error.
func (o *Orchestrator) RunYear(ctx context.Context, year string) (*DownloadResult, error) {
	result := &DownloadResult{
		RunID: uuid.New().String(),
		Year:  year,
	}
	log := o.log.With(zap.String("run_id", result.RunID), zap.String("year", year))

	doc, base, err := o.fetchIndex(ctx)
	if err != nil {
		return nil, err
	}

	candidates := ExtractCandidates(doc, base, year)
	log.Info("scanned index page", zap.Int("candidates", len(candidates)))

	if len(candidates) == 0 {
		result.Outcome = OutcomeNoCandidates
		result.AvailableYears = YearsOnPage(doc)
		result.FailureReason = "no archive links found for this crop year"
		log.Warn("no candidates for year", zap.Strings("available_years", result.AvailableYears))
		return result, nil
	}

	var resolved []ResolvedDownload
	for _, cand := range candidates {
		final, ok := o.resolver.Resolve(ctx, cand.URL)
		if !ok {
			log.Info("candidate dropped", zap.String("url", cand.URL))
			continue
		}
		resolved = append(resolved, ResolvedDownload{
			Year:     cand.Year,
			FinalURL: final,
			AsOf:     cand.AsOf,
		})
	}

	selected := SelectLatest(resolved)
	if selected == nil {
		result.Outcome = OutcomeNoSelection
		result.AvailableYears = YearsOnPage(doc)
		result.FailureReason = "candidates found but none resolved to an archive"
		log.Warn("no selectable candidate")
		return result, nil
	}

	result.ResolvedURL = selected.FinalURL
	result.AsOf = selected.AsOf

	if err := os.MkdirAll(o.opts.OutputDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "orchestrator: create output dir %s", o.opts.OutputDir)
	}

	filename := OutputFilename(year, selected.AsOf)
	outPath := filepath.Join(o.opts.OutputDir, filename)
	result.OutputPath = outPath

	log.Info("downloading latest archive",
		zap.String("url", selected.FinalURL),
		zap.Stringp("as_of", formatAsOf(selected.AsOf)),
		zap.String("output", outPath),
	)

	n, err := o.downloader.Fetch(ctx, selected.FinalURL, outPath)
	if err != nil {
		return nil, err
	}
	result.Bytes = n

	if n == 0 {
		_ = os.Remove(outPath)
		result.Outcome = OutcomeEmptyFile
		result.OutputPath = ""
		result.FailureReason = "downloaded file was empty; partial removed"
		log.Warn("empty download", zap.String("url", selected.FinalURL))
		return result, nil
	}

	if o.opts.Uploader != nil {
		if err := o.opts.Uploader.UploadFile(ctx, outPath, filename); err != nil {
			return nil, eris.Wrapf(err, "orchestrator: upload %s", filename)
		}
		log.Info("uploaded archive", zap.String("remote_name", filename))
	}

	result.Outcome = OutcomeSuccess
	log.Info("download complete",
		zap.String("url", selected.FinalURL),
		zap.Stringp("as_of", formatAsOf(selected.AsOf)),
		zap.String("output", outPath),
		zap.Int64("bytes", n),
	)
	return result, nil
}

// RunRange processes a contiguous range of crop years sequentially. A failed
// year is recorded and the batch continues; only context cancellation stops
// the loop early.
func (o *Orchestrator) RunRange(ctx context.Context, from, to int) ([]*DownloadResult, error) {
	if from > to {
		return nil, eris.Errorf("orchestrator: invalid year range %d..%d", from, to)
	}

	var results []*DownloadResult
	for y := from; y <= to; y++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		year := strconv.Itoa(y)
		res, err := o.RunYear(ctx, year)
		if err != nil {
			o.log.Error("year failed", zap.String("year", year), zap.Error(err))
			res = &DownloadResult{
				RunID:         uuid.New().String(),
				Year:          year,
				Outcome:       OutcomeError,
				FailureReason: err.Error(),
			}
		}
		results = append(results, res)
	}

	return results, nil
}

func (o *Orchestrator) fetchIndex(ctx context.Context) (*goquery.Document, *url.URL, error) {
	base, err := url.Parse(o.opts.IndexURL)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "orchestrator: parse index url %s", o.opts.IndexURL)
	}

	resp, err := o.transport.Get(ctx, o.opts.IndexURL)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, nil, eris.Errorf("orchestrator: index page returned %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, eris.Wrap(err, "orchestrator: parse index page")
	}

	return doc, base, nil
}

func formatAsOf(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}
