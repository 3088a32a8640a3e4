package process

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeScript creates an executable shell script in a temp directory.
func writeScript(t *testing.T, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}

	path := filepath.Join(t.TempDir(), "tool")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))

	return path
}

// TestExec_CapturesStdout verifies that output and a zero exit code are returned.
func TestExec_CapturesStdout(t *testing.T) {
	t.Parallel()

	script := writeScript(t, `echo "tool/9.2.1 platform/x os/y"`)

	result, err := NewExec(5*time.Second).Run(context.Background(), script, "--version")
	require.NoError(t, err)
	require.Equal(t, 0, result.ExitCode)
	require.Equal(t, "tool/9.2.1 platform/x os/y\n", result.Stdout)
}

// TestExec_NonZeroExit reports the exit code without an error.
func TestExec_NonZeroExit(t *testing.T) {
	t.Parallel()

	script := writeScript(t, `echo broken >&2; exit 3`)

	result, err := NewExec(5*time.Second).Run(context.Background(), script)
	require.NoError(t, err)
	require.Equal(t, 3, result.ExitCode)
	require.Equal(t, "broken\n", result.Stderr)
}

// TestExec_Failures covers a missing executable and a timeout.
func TestExec_Failures(t *testing.T) {
	t.Parallel()

	_, err := NewExec(time.Second).Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	script := writeScript(t, `exec sleep 5`)

	_, err = NewExec(100*time.Millisecond).Run(context.Background(), script)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestTerminate_NoMatches kills nothing when no process has the given name.
func TestTerminate_NoMatches(t *testing.T) {
	t.Parallel()

	killed, err := Terminate(context.Background(), []string{"release-keeper-no-such-process"})
	require.NoError(t, err)
	require.Zero(t, killed)
}
