package integration

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/release-keeper/internal/config"
	"github.com/oshokin/release-keeper/internal/domain/release"
	"github.com/oshokin/release-keeper/internal/service/installer"
)

// buildBundle returns a zip laid out like the AWS CLI bundle whose aws script reports version.
func buildBundle(t *testing.T, version string) []byte {
	t.Helper()

	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	files := map[string]string{
		"aws/dist/aws":           fmt.Sprintf("#!/bin/sh\necho 'aws-cli/%s Python/3.11.6 Linux/6.1 exe/x86_64'\n", version),
		"aws/dist/aws_completer": "#!/bin/sh\nexit 0\n",
		"aws/install":            "#!/bin/sh\nexit 0\n",
	}

	for name, body := range files {
		header := &zip.FileHeader{Name: name, Method: zip.Deflate}
		header.SetMode(0o755)

		w, err := zw.CreateHeader(header)
		require.NoError(t, err)

		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())

	return buf.Bytes()
}

// TestInstaller_EndToEnd installs two releases served over HTTP and checks links, cache and retention.
func TestInstaller_EndToEnd(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("the bundle executables are shell scripts")
	}

	if _, err := release.DetectArchitecture(runtime.GOARCH); err != nil {
		t.Skipf("unsupported architecture: %v", err)
	}

	var served atomic.Value

	served.Store(buildBundle(t, "2.12.6"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		payload, _ := served.Load().([]byte)
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	baseDir := filepath.Join(dir, "opt", "awscli")
	cacheDir := filepath.Join(dir, "cache")

	cfg := config.Default()
	cfg.BaseInstallDir = baseDir
	cfg.CacheDir = cacheDir
	cfg.URLTemplate = srv.URL + "/awscli-exe-linux-{{.Arch}}{{.Suffix}}.zip"
	cfg.RetentionCount = 1
	cfg.LockTimeout = 5 * time.Second

	cfgPath := filepath.Join(dir, "release-keeper.yaml")
	require.NoError(t, config.Save(cfgPath, cfg))

	ctx := context.Background()

	result, err := installer.Run(ctx, &installer.Options{ConfigPath: cfgPath})
	require.NoError(t, err)
	require.Equal(t, "2.12.6", result.Installed.Version)

	current := filepath.Join(baseDir, "v2", "current")

	target, err := os.Readlink(current)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(baseDir, "v2", "2.12.6"), target)

	link, err := os.Readlink(filepath.Join(baseDir, "v2", "2.12.6", "bin", "aws"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(baseDir, "v2", "2.12.6", "dist", "aws"), link)

	_, err = os.Stat(filepath.Join(cacheDir, "awscliv2.zip"))
	require.NoError(t, err)

	served.Store(buildBundle(t, "2.13.0"))

	result, err = installer.Run(ctx, &installer.Options{ConfigPath: cfgPath, Version: "2.13.0"})
	require.NoError(t, err)
	require.Equal(t, "2.13.0", result.Installed.Version)
	require.Len(t, result.Pruned, 1)
	require.Equal(t, "2.12.6", result.Pruned[0].Version)

	target, err = os.Readlink(current)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(baseDir, "v2", "2.13.0"), target)

	_, err = os.Stat(filepath.Join(baseDir, "v2", "2.12.6"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = os.Stat(filepath.Join(cacheDir, "awscliv2.zip"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = os.Stat(filepath.Join(cacheDir, "awscliv2-2.13.0.zip"))
	require.NoError(t, err)

	installations, err := installer.List(ctx, &installer.Options{ConfigPath: cfgPath})
	require.NoError(t, err)
	require.Len(t, installations, 1)
	require.True(t, installations[0].Current)
	require.True(t, installations[0].HasReceipt)
	require.Equal(t, "2.13.0", installations[0].Receipt.Alias)
}
