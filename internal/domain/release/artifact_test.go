package release

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testFilenameTemplate = "awscliv2{{.Suffix}}.zip"
	testURLTemplate      = "https://awscli.amazonaws.com/awscli-exe-linux-{{.Arch}}{{.Suffix}}.zip"
)

func newTestTemplates(t *testing.T) *Templates {
	t.Helper()

	templates, err := NewTemplates(testFilenameTemplate, testURLTemplate)
	require.NoError(t, err)

	return templates
}

// TestResolve_Latest checks that "latest" embeds no version suffix.
func TestResolve_Latest(t *testing.T) {
	t.Parallel()

	spec, err := Resolve("awscli", ArchX8664, "latest", newTestTemplates(t))
	require.NoError(t, err)
	require.Equal(t, ArtifactSpec{
		Tool:         "awscli",
		Architecture: ArchX8664,
		VersionAlias: AliasLatest,
		Filename:     "awscliv2.zip",
		URL:          "https://awscli.amazonaws.com/awscli-exe-linux-x86_64.zip",
	}, spec)
	require.False(t, spec.Pinned())
}

// TestResolve_Pinned checks that an explicit version lands in filename and URL.
func TestResolve_Pinned(t *testing.T) {
	t.Parallel()

	spec, err := Resolve("awscli", ArchAArch64, "2.12.6", newTestTemplates(t))
	require.NoError(t, err)
	require.Equal(t, "-2.12.6", spec.Suffix)
	require.Equal(t, "awscliv2-2.12.6.zip", spec.Filename)
	require.Equal(t, "https://awscli.amazonaws.com/awscli-exe-linux-aarch64-2.12.6.zip", spec.URL)
	require.True(t, spec.Pinned())
}

// TestResolve_Deterministic runs every architecture/alias pair twice and expects equal results.
func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()

	templates := newTestTemplates(t)

	for _, arch := range []Architecture{ArchX8664, ArchAArch64} {
		for _, alias := range []string{"latest", "LATEST", "", "2.0.0", "2.15.30"} {
			first, err := Resolve("awscli", arch, alias, templates)
			require.NoError(t, err)

			second, err := Resolve("awscli", arch, alias, templates)
			require.NoError(t, err)
			require.Equal(t, first, second)
		}
	}
}

// TestResolve_Errors covers the rejected inputs.
func TestResolve_Errors(t *testing.T) {
	t.Parallel()

	templates := newTestTemplates(t)

	_, err := Resolve("", ArchX8664, "latest", templates)
	require.ErrorIs(t, err, ErrToolRequired)

	_, err = Resolve("awscli", Architecture("sparc"), "latest", templates)
	require.ErrorIs(t, err, ErrUnsupportedArchitecture)

	_, err = Resolve("awscli", ArchX8664, "newest", templates)
	require.ErrorIs(t, err, ErrInvalidAlias)

	bad, err := NewTemplates("dir/{{.Suffix}}.zip", testURLTemplate)
	require.NoError(t, err)

	_, err = Resolve("awscli", ArchX8664, "latest", bad)
	require.Error(t, err)

	_, err = NewTemplates("{{.Suffix", testURLTemplate)
	require.Error(t, err)
}
