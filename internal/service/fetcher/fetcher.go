package fetcher

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/dustin/go-humanize"

	"github.com/oshokin/release-keeper/internal/logger"
	"github.com/oshokin/release-keeper/internal/version"

	// Register SHA-256 for go-update checksum verification.
	_ "crypto/sha256"
)

const (
	// DefaultTimeout bounds a single download.
	DefaultTimeout = 10 * time.Minute

	// archiveMode is the permission of cached archives.
	archiveMode fs.FileMode = 0o644
	// cacheDirMode is the permission of a created cache directory.
	cacheDirMode fs.FileMode = 0o755
)

// errBadHTTPStatus is returned for non-2xx responses.
var errBadHTTPStatus = errors.New("unexpected http status")

// HTTP fetches artifacts over HTTP(S).
type HTTP struct {
	// client performs the requests.
	client *http.Client
	// timeout bounds each download.
	timeout time.Duration
	// checksum is the expected SHA-256 of the archive, if any.
	checksum []byte
}

// Option configures the HTTP fetcher.
type Option func(*HTTP)

// WithClient overrides the HTTP client.
func WithClient(client *http.Client) Option {
	return func(f *HTTP) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout sets the download timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(f *HTTP) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithChecksum sets the expected SHA-256 digest of the downloaded archive.
func WithChecksum(sum []byte) Option {
	return func(f *HTTP) {
		if len(sum) > 0 {
			f.checksum = append([]byte(nil), sum...)
		}
	}
}

// New creates an HTTP fetcher.
func New(opts ...Option) *HTTP {
	f := &HTTP{
		client:  http.DefaultClient,
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch downloads url into dest and reports whether it succeeded.
// On failure dest is left as it was before the call.
func (f *HTTP) Fetch(ctx context.Context, url, dest string) bool {
	if err := f.fetch(ctx, url, dest); err != nil {
		logger.WarnKV(ctx, "Download failed, a cached artifact may still satisfy the install",
			"url", url, "path", dest, "error", err)

		return false
	}

	return true
}

// fetch performs the download and the atomic swap.
func (f *HTTP) fetch(ctx context.Context, url, dest string) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return err
	}

	req.Header.Set("User-Agent", version.Name+"/"+version.Short())

	cached, err := os.Stat(dest)
	if err == nil && cached.Size() > 0 && len(f.checksum) == 0 {
		req.Header.Set("If-Modified-Since", cached.ModTime().UTC().Format(http.TimeFormat))
	}

	response, err := f.client.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode == http.StatusNotModified {
		logger.InfoKV(ctx, "Cached artifact is up to date", "path", dest)

		return nil
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s, %s: %w", url, response.Status, errBadHTTPStatus)
	}

	counter := &countingReader{reader: response.Body}
	if err = f.apply(counter, dest); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Downloaded artifact",
		"url", url, "path", dest, "size", humanize.Bytes(counter.count))

	return nil
}

// apply swaps the downloaded contents into dest through go-update.
// go-update renames the existing target aside, so an empty placeholder is
// created for a first download and removed again if the swap fails.
func (f *HTTP) apply(body io.Reader, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), cacheDirMode); err != nil {
		return err
	}

	placeholder := false

	if _, err := os.Stat(dest); errors.Is(err, fs.ErrNotExist) {
		file, err := os.OpenFile(filepath.Clean(dest), os.O_CREATE|os.O_WRONLY|os.O_EXCL, archiveMode)
		if err != nil {
			return err
		}

		if err = file.Close(); err != nil {
			return err
		}

		placeholder = true
	}

	options := goupdate.Options{
		TargetPath: dest,
		TargetMode: archiveMode,
		Checksum:   f.checksum,
		Hash:       crypto.SHA256,
	}

	if err := goupdate.Apply(body, options); err != nil {
		if rollbackErr := goupdate.RollbackError(err); rollbackErr != nil {
			err = fmt.Errorf("%w (rollback failed: %w)", err, rollbackErr)
		}

		if placeholder {
			_ = os.Remove(dest)
		}

		return err
	}

	// go-update leaves the previous archive as a hidden ".<name>.old" file on some platforms.
	_ = os.Remove(filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+".old"))

	return nil
}

// countingReader counts the bytes read through it.
type countingReader struct {
	reader io.Reader
	count  uint64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	c.count += uint64(n) //nolint:gosec // n is never negative.

	return n, err
}
