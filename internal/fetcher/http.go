package fetcher

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cx-datamart/acreage-cli/internal/resilience"
)

// HTTPOptions configures the HTTP transport.
type HTTPOptions struct {
	UserAgent      string
	Accept         string
	AcceptLanguage string

	// DialTimeout bounds connection establishment; the per-verb timeouts
	// below bound the full request including the body read.
	DialTimeout     time.Duration
	GetTimeout      time.Duration
	HeadTimeout     time.Duration
	DownloadTimeout time.Duration

	Retry        resilience.RetryConfig
	RateLimiters map[string]*rate.Limiter
}

// DefaultRateLimiters returns the default per-host rate limiters.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		"www.fsa.usda.gov": rate.NewLimiter(5, 5),
		"fsa.usda.gov":     rate.NewLimiter(5, 5),
	}
}

// HTTPFetcher implements Transport using net/http with retry and rate
// limiting. HEAD requests use a shorter timeout than GET; streamed downloads
// use the longest one.
type HTTPFetcher struct {
	getClient      *http.Client
	headClient     *http.Client
	downloadClient *http.Client
	opts           HTTPOptions
	limiters       map[string]*rate.Limiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	}
	if opts.Accept == "" {
		opts.Accept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = "en-US,en;q=0.9"
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 20 * time.Second
	}
	if opts.GetTimeout == 0 {
		opts.GetTimeout = 180 * time.Second
	}
	if opts.HeadTimeout == 0 {
		opts.HeadTimeout = 40 * time.Second
	}
	if opts.DownloadTimeout == 0 {
		opts.DownloadTimeout = 300 * time.Second
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}

	limiters := make(map[string]*rate.Limiter)
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   opts.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &HTTPFetcher{
		getClient:      &http.Client{Timeout: opts.GetTimeout, Transport: transport},
		headClient:     &http.Client{Timeout: opts.HeadTimeout, Transport: transport},
		downloadClient: &http.Client{Timeout: opts.DownloadTimeout, Transport: transport},
		opts:           opts,
		limiters:       limiters,
	}
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rate.NewLimiter(20, 20)
	}
	if lim, ok := f.limiters[u.Host]; ok {
		return lim
	}
	return rate.NewLimiter(20, 20)
}

func (f *HTTPFetcher) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", f.opts.Accept)
	req.Header.Set("Accept-Language", f.opts.AcceptLanguage)
}

// do performs the request with the retry policy applied. Transient statuses
// are converted into resilience.TransientError so backoff (and any
// Retry-After hint) kicks in; other statuses are returned for the caller to
// inspect.
func (f *HTTPFetcher) do(ctx context.Context, client *http.Client, method, rawURL string) (*http.Response, error) {
	cfg := f.opts.Retry
	if cfg.OnRetry == nil {
		host := ""
		if u, err := url.Parse(rawURL); err == nil {
			host = u.Host
		}
		cfg.OnRetry = resilience.RetryLogger(host, method)
	}

	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*http.Response, error) {
		if err := f.limiterFor(rawURL).Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: create %s request", method)
		}
		f.setHeaders(req)

		resp, err := client.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: %s %s", method, rawURL)
		}

		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			hint := parseRetryAfter(resp.Header.Get("Retry-After"))
			_ = resp.Body.Close()
			return nil, &resilience.TransientError{
				Err:        eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL),
				StatusCode: resp.StatusCode,
				RetryAfter: hint,
			}
		}

		return resp, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: %s %s failed", method, rawURL)
	}

	return resp, nil
}

// Get fetches the URL. The caller owns the response body.
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	return f.do(ctx, f.getClient, http.MethodGet, rawURL)
}

// GetStream fetches the URL with the streaming download timeout.
func (f *HTTPFetcher) GetStream(ctx context.Context, rawURL string) (*http.Response, error) {
	return f.do(ctx, f.downloadClient, http.MethodGet, rawURL)
}

// Head probes the URL. The response body is closed before returning; only
// status and headers are meaningful to the caller.
func (f *HTTPFetcher) Head(ctx context.Context, rawURL string) (*http.Response, error) {
	resp, err := f.do(ctx, f.headClient, http.MethodHead, rawURL)
	if err != nil {
		return nil, err
	}
	_ = resp.Body.Close()
	return resp, nil
}

// parseRetryAfter interprets a Retry-After header as either delta-seconds or
// an HTTP date. Returns 0 when absent or unparseable.
func parseRetryAfter(h string) time.Duration {
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		d := time.Until(t)
		if d < 0 {
			return 0
		}
		return d
	}
	zap.L().Debug("unparseable Retry-After header", zap.String("value", h))
	return 0
}
