package fetcher

import (
	"context"
	"crypto/sha256"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestFetch_DownloadsArchive verifies that a successful response lands in dest.
func TestFetch_DownloadsArchive(t *testing.T) {
	t.Parallel()

	body := []byte("zip-bytes")
	sum := sha256.Sum256(body)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(body)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "cache", "awscliv2.zip")

	f := New(WithClient(ts.Client()), WithChecksum(sum[:]))
	require.True(t, f.Fetch(context.Background(), ts.URL+"/awscliv2.zip", dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, body, got)

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files may be left behind")
}

// TestFetch_FailureKeepsCachedArchive ensures an HTTP error neither fails loudly nor touches the cache.
func TestFetch_FailureKeepsCachedArchive(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "awscliv2.zip")
	require.NoError(t, os.WriteFile(dest, []byte("cached"), 0o644))

	f := New(WithClient(ts.Client()))
	require.False(t, f.Fetch(context.Background(), ts.URL, dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "cached", string(got))
}

// TestFetch_ChecksumMismatch rejects the download and leaves no placeholder.
func TestFetch_ChecksumMismatch(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("tampered"))
	}))
	defer ts.Close()

	sum := sha256.Sum256([]byte("expected"))
	dest := filepath.Join(t.TempDir(), "awscliv2.zip")

	f := New(WithClient(ts.Client()), WithChecksum(sum[:]))
	require.False(t, f.Fetch(context.Background(), ts.URL, dest))

	_, err := os.Stat(dest)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestFetch_Unreachable reports false when nothing listens.
func TestFetch_Unreachable(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	dest := filepath.Join(t.TempDir(), "awscliv2.zip")

	f := New(WithTimeout(2 * time.Second))
	require.False(t, f.Fetch(context.Background(), url, dest))

	_, err := os.Stat(dest)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestFetch_NotModified keeps the cached archive when the server answers 304.
func TestFetch_NotModified(t *testing.T) {
	t.Parallel()

	var sawConditional atomic.Bool

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawConditional.Store(r.Header.Get("If-Modified-Since") != "")
		w.WriteHeader(http.StatusNotModified)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "awscliv2.zip")
	require.NoError(t, os.WriteFile(dest, []byte("cached"), 0o644))

	f := New(WithClient(ts.Client()))
	require.True(t, f.Fetch(context.Background(), ts.URL, dest))
	require.True(t, sawConditional.Load())

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "cached", string(got))
}
