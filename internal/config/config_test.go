package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr error
	}{
		{name: "defaults"},
		{name: "missing tool", mutate: func(cfg *Config) { cfg.Tool = " " }, wantErr: errToolRequired},
		{name: "tool with separator", mutate: func(cfg *Config) { cfg.Tool = "a/b" }, wantErr: errBadTool},
		{name: "tool dot dot", mutate: func(cfg *Config) { cfg.Tool = ".." }, wantErr: errBadTool},
		{name: "missing base dir", mutate: func(cfg *Config) { cfg.BaseInstallDir = "" }, wantErr: errBaseDirRequired},
		{name: "negative retention", mutate: func(cfg *Config) { cfg.RetentionCount = -1 }, wantErr: errBadRetention},
		{name: "negative strip", mutate: func(cfg *Config) { cfg.StripComponents = -1 }, wantErr: errBadStrip},
		{name: "no executables", mutate: func(cfg *Config) { cfg.Executables = nil }, wantErr: errNoExecutables},
		{name: "executable path", mutate: func(cfg *Config) { cfg.Executables = []string{"bin/aws"} }, wantErr: errBadExecutable},
		{name: "short checksum", mutate: func(cfg *Config) { cfg.Checksum = "abcd" }, wantErr: errBadChecksum},
		{name: "missing template", mutate: func(cfg *Config) { cfg.URLTemplate = "" }, wantErr: errTemplateRequired},
		{name: "bad log level", mutate: func(cfg *Config) { cfg.LogLevel = "loud" }, wantErr: errBadLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}

			err := Validate(cfg)
			if tt.wantErr == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)
}

// TestValidate_RejectsBadAliasAndTemplate covers errors raised by the release package.
func TestValidate_RejectsBadAliasAndTemplate(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Version = "not-a-version"
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.FilenameTemplate = "{{.Missing"
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.Checksum = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	require.NoError(t, Validate(cfg))
}

// TestValidate_AppliesDefaults ensures optional fields are filled in.
func TestValidate_AppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Tool:             "terraform",
		BaseInstallDir:   "/opt/terraform/",
		FilenameTemplate: "terraform{{.Suffix}}.zip",
		URLTemplate:      "https://example.com/terraform_{{.Version}}_linux_{{.Arch}}.zip",
		Executables:      []string{"terraform"},
	}

	require.NoError(t, Validate(cfg))
	require.Equal(t, "latest", cfg.Version)
	require.Equal(t, DefaultRetentionCount, cfg.RetentionCount)
	require.Equal(t, "/opt/terraform", cfg.BaseInstallDir)
	require.Equal(t, DefaultCacheDir, cfg.CacheDir)
	require.Equal(t, DefaultDistDir, cfg.DistDir)
	require.Equal(t, []string{"--version"}, cfg.VersionArgs)
	require.Equal(t, "terraform*", cfg.CachePattern)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.Equal(t, DefaultQueryTimeout, cfg.QueryTimeout)
	require.Equal(t, DefaultLockTimeout, cfg.LockTimeout)
}

// TestValidate_ExpandsHome ensures "~" in paths resolves to the home directory.
func TestValidate_ExpandsHome(t *testing.T) {
	t.Parallel()

	home, err := homedir.Dir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	cfg := Default()
	cfg.BaseInstallDir = "~/tools/awscli"
	cfg.CacheDir = "~/.cache/release-keeper"

	require.NoError(t, Validate(cfg))
	require.Equal(t, filepath.Join(home, "tools", "awscli"), cfg.BaseInstallDir)
	require.Equal(t, filepath.Join(home, ".cache", "release-keeper"), cfg.CacheDir)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := Default()
	settings.BaseInstallDir = filepath.Join(dir, "opt")
	settings.CacheDir = filepath.Join(dir, "cache")
	settings.Version = "2.12.6"
	settings.RetentionCount = 3
	settings.StopRunning = true
	settings.Timeout = 90 * time.Second

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestLoad_PartialFileKeepsDefaults ensures keys missing from the file keep their defaults.
func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	contents := "base_install_dir: /opt/aws\nretention_count: 2\nquery_timeout: 3s\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), DefaultFilePermissions))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "awscli", loaded.Tool)
	require.Equal(t, "/opt/aws", loaded.BaseInstallDir)
	require.Equal(t, 2, loaded.RetentionCount)
	require.Equal(t, 3*time.Second, loaded.QueryTimeout)
	require.Equal(t, []string{"aws", "aws_completer"}, loaded.Executables)
}

// TestLoad_MissingFile returns an error.
func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

// TestResolvePath ensures Load and Save agree on where "~" paths live.
func TestResolvePath(t *testing.T) {
	t.Parallel()

	path, err := ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfigFilename, path)

	home, err := homedir.Dir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	path, err = ResolvePath("~/settings/./release-keeper.yaml")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "settings", "release-keeper.yaml"), path)
}
