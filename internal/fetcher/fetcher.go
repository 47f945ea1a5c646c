// Package fetcher provides the resilient HTTP transport used by the acreage
// discovery engine, plus safe extraction of downloaded ZIP archives.
package fetcher

import (
	"context"
	"net/http"
)

// Transport defines the interface for talking to the FSA site. Both verbs
// are idempotent and retried on transient failures.
type Transport interface {
	// Get fetches the URL. The caller owns the response body.
	Get(ctx context.Context, url string) (*http.Response, error)

	// Head probes the URL and returns the response with its (empty) body
	// already closed.
	Head(ctx context.Context, url string) (*http.Response, error)

	// GetStream fetches the URL with the long streaming timeout, for
	// downloads that write the body to disk. The caller owns the body.
	GetStream(ctx context.Context, url string) (*http.Response, error)
}
