package acreage

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/cx-datamart/acreage-cli/internal/fetcher"
)

// Resolver turns a candidate URL into a confirmed archive URL. A candidate
// is either a direct binary resource, an HTML landing page under /documents/
// whose anchors point at the real archive, or nothing we want.
type Resolver struct {
	transport fetcher.Transport
	log       *zap.Logger
}

// NewResolver creates a Resolver over the given transport.
func NewResolver(t fetcher.Transport) *Resolver {
	return &Resolver{
		transport: t,
		log:       zap.L().With(zap.String("component", "resolver")),
	}
}

// Resolve probes rawURL and returns the confirmed archive URL. Resolution
// failure is expected, not an error: the candidate simply is not an archive
// for this target and gets dropped by the caller.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (string, bool) {
	if r.probeBinary(ctx, rawURL) {
		return rawURL, true
	}

	if strings.Contains(strings.ToLower(rawURL), "/documents/") {
		return r.resolveLanding(ctx, rawURL)
	}

	r.log.Info("candidate is not an archive", zap.String("url", rawURL))
	return "", false
}

// probeBinary checks whether rawURL serves a ZIP directly: HEAD first, then
// a GET fallback for servers that reject HEAD or answer it without useful
// headers. The GET body is discarded unread.
func (r *Resolver) probeBinary(ctx context.Context, rawURL string) bool {
	resp, err := r.transport.Head(ctx, rawURL)
	if err == nil && resp.StatusCode < 400 && isBinaryResponse(resp.Header, rawURL) {
		return true
	}
	if err != nil {
		r.log.Debug("head probe failed", zap.String("url", rawURL), zap.Error(err))
	}

	get, err := r.transport.Get(ctx, rawURL)
	if err != nil {
		r.log.Debug("get probe failed", zap.String("url", rawURL), zap.Error(err))
		return false
	}
	defer get.Body.Close() //nolint:errcheck

	return get.StatusCode < 400 && isBinaryResponse(get.Header, rawURL)
}

// resolveLanding fetches a /documents/ landing page and scans its anchors
// for the real download link. Candidates are validated in encounter order;
// the first confirmed archive wins.
func (r *Resolver) resolveLanding(ctx context.Context, pageURL string) (string, bool) {
	resp, err := r.transport.Get(ctx, pageURL)
	if err != nil {
		r.log.Debug("landing page fetch failed", zap.String("url", pageURL), zap.Error(err))
		return "", false
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return "", false
	}

	// The landing URL itself may turn out to be the binary.
	if isBinaryResponse(resp.Header, pageURL) {
		return pageURL, true
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		r.log.Debug("landing page parse failed", zap.String("url", pageURL), zap.Error(err))
		return "", false
	}

	var candidates []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" {
			return
		}

		text := strings.ToLower(squashText(sel.Text()))
		hrefL := strings.ToLower(href)
		if !strings.Contains(text, "download") &&
			!strings.Contains(hrefL, "download") &&
			!strings.HasSuffix(hrefL, "zip") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if !seen[abs] {
			candidates = append(candidates, abs)
			seen[abs] = true
		}
	})

	for _, cand := range candidates {
		if r.probeBinary(ctx, cand) {
			r.log.Debug("landing page resolved",
				zap.String("page", pageURL),
				zap.String("archive", cand),
			)
			return cand, true
		}
	}

	r.log.Info("no archive behind landing page", zap.String("url", pageURL))
	return "", false
}

// isBinaryResponse reports whether the response headers (or, failing those,
// the URL ending) identify a ZIP download.
func isBinaryResponse(h http.Header, rawURL string) bool {
	ct := strings.ToLower(h.Get("Content-Type"))
	if strings.Contains(ct, "zip") || strings.Contains(ct, "application/octet-stream") {
		return true
	}

	cd := strings.ToLower(h.Get("Content-Disposition"))
	if strings.Contains(cd, ".zip") {
		return true
	}

	return strings.HasSuffix(strings.ToLower(rawURL), "zip")
}
