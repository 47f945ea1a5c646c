package acreage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cx-datamart/acreage-cli/internal/fetcher"
	"github.com/cx-datamart/acreage-cli/internal/resilience"
)

func newResolverTransport() fetcher.Transport {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent: "test-agent",
		Retry: resilience.RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
			JitterFraction: 0,
		},
	})
}

func TestResolve_DirectBinaryViaHead(t *testing.T) {
	var heads atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			heads.Add(1)
		}
		w.Header().Set("Content-Type", "application/zip")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewResolver(newResolverTransport())
	got, ok := r.Resolve(context.Background(), srv.URL+"/files/2024")

	require.True(t, ok)
	assert.Equal(t, srv.URL+"/files/2024", got)
	assert.Equal(t, int64(1), heads.Load())
}

func TestResolve_HeadRejectedFallsBackToGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="acreage.zip"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewResolver(newResolverTransport())
	got, ok := r.Resolve(context.Background(), srv.URL+"/files/2024")

	require.True(t, ok)
	assert.Equal(t, srv.URL+"/files/2024", got)
}

func TestResolve_LandingPageFindsDownloadAnchor(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/documents/42", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`
			<html><body>
			<a href="/help">Click here for help</a>
			<a href="/assets/county_2024.zip">Download file</a>
			</body></html>`))
	})
	mux.HandleFunc("/assets/county_2024.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := NewResolver(newResolverTransport())
	got, ok := r.Resolve(context.Background(), srv.URL+"/documents/42")

	require.True(t, ok)
	assert.Equal(t, srv.URL+"/assets/county_2024.zip", got)
}

func TestResolve_LandingPageSkipsDeadAnchors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/documents/42", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`
			<a href="/gone/download">Download (retired)</a>
			<a href="/assets/live.zip">Download current file</a>`))
	})
	mux.HandleFunc("/gone/download", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/assets/live.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := NewResolver(newResolverTransport())
	got, ok := r.Resolve(context.Background(), srv.URL+"/documents/42")

	require.True(t, ok)
	assert.Equal(t, srv.URL+"/assets/live.zip", got)
}

func TestResolve_LandingURLItselfBinary(t *testing.T) {
	// Some /documents/ URLs answer HEAD with text/html but serve the
	// archive on GET.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewResolver(newResolverTransport())
	got, ok := r.Resolve(context.Background(), srv.URL+"/documents/42")

	require.True(t, ok)
	assert.Equal(t, srv.URL+"/documents/42", got)
}

func TestResolve_NotAnArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>ordinary page</body></html>`))
	}))
	defer srv.Close()

	r := NewResolver(newResolverTransport())
	_, ok := r.Resolve(context.Background(), srv.URL+"/about")

	assert.False(t, ok)
}

func TestResolve_LandingPageWithNoArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<a href="/somewhere">Read more</a>`))
	}))
	defer srv.Close()

	r := NewResolver(newResolverTransport())
	_, ok := r.Resolve(context.Background(), srv.URL+"/documents/42")

	assert.False(t, ok)
}
