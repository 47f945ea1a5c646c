package acreage

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFilename(t *testing.T) {
	d := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t,
		"usda_fsa_crop_acreage_by_crop_county_2024_asof_2024-08-01.zip",
		OutputFilename("2024", &d))
	assert.Equal(t,
		"usda_fsa_crop_acreage_by_crop_county_2023.zip",
		OutputFilename("2023", nil))
}

func TestFetch_StreamsToDisk(t *testing.T) {
	payload := strings.Repeat("acreage", 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.zip")
	var progressBuf bytes.Buffer
	d := NewDownloader(newResolverTransport(), &progressBuf)

	n, err := d.Fetch(context.Background(), srv.URL+"/a.zip", dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
	assert.Contains(t, progressBuf.String(), "#")
}

func TestFetch_AcceptsAnySuccessStatus(t *testing.T) {
	// Servers answering a ranged or resumed request reply 206; any 2xx
	// carries the archive.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte("partial payload"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.zip")
	d := NewDownloader(newResolverTransport(), &bytes.Buffer{})

	n, err := d.Fetch(context.Background(), srv.URL+"/a.zip", dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len("partial payload")), n)
	assert.FileExists(t, dest)
}

func TestFetch_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.zip")
	d := NewDownloader(newResolverTransport(), &bytes.Buffer{})

	_, err := d.Fetch(context.Background(), srv.URL+"/a.zip", dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.NoFileExists(t, dest)
}

func TestFetch_PartialRemovedOnStreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1048576")
		w.Write(bytes.Repeat([]byte{0xab}, 1024))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		// Abort mid-body so the client sees a truncated stream.
		panic(http.ErrAbortHandler)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.zip")
	d := NewDownloader(newResolverTransport(), &bytes.Buffer{})

	_, err := d.Fetch(context.Background(), srv.URL+"/a.zip", dest)
	require.Error(t, err)
	assert.NoFileExists(t, dest)
}

func TestFetch_CreateFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("zip"))
	}))
	defer srv.Close()

	d := NewDownloader(newResolverTransport(), &bytes.Buffer{})
	dest := filepath.Join(t.TempDir(), "missing", "out.zip")

	_, err := d.Fetch(context.Background(), srv.URL+"/a.zip", dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create")
}
