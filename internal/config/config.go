package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/release-keeper/internal/domain/release"
	"github.com/oshokin/release-keeper/internal/logger"
)

// Config describes one managed tool and where its releases live on the host.
type Config struct {
	// Tool names the managed tool; it also names the extraction directory in the cache.
	Tool string `yaml:"tool"`
	// Version is either "latest" or a pinned semantic version.
	Version string `yaml:"version"`
	// RetentionCount bounds how many installed versions stay on disk, current included.
	RetentionCount int `yaml:"retention_count"`
	// BaseInstallDir is the root for versioned installs (versions live under <base>/v2).
	BaseInstallDir string `yaml:"base_install_dir"`
	// CacheDir holds downloaded archives and the extraction working directory.
	CacheDir string `yaml:"cache_dir"`
	// FilenameTemplate renders the cached archive name.
	FilenameTemplate string `yaml:"filename_template"`
	// URLTemplate renders the download URL.
	URLTemplate string `yaml:"url_template"`
	// CachePattern is a glob matching every cached archive of this tool.
	CachePattern string `yaml:"cache_pattern"`
	// StripComponents is the number of leading path components dropped on extraction.
	StripComponents int `yaml:"strip_components"`
	// DistDir is the directory inside the extracted tree that becomes <install>/dist.
	DistDir string `yaml:"dist_dir"`
	// Executables are linked into <install>/bin; the first one answers the version query.
	Executables []string `yaml:"executables"`
	// VersionArgs are passed to the first executable to print its version.
	VersionArgs []string `yaml:"version_args"`
	// Checksum is an optional hex SHA-256 of the archive.
	Checksum string `yaml:"checksum,omitempty"`
	// StopRunning terminates running tool processes before the current pointer moves.
	StopRunning bool `yaml:"stop_running"`
	// Timeout bounds the download.
	Timeout time.Duration `yaml:"timeout"`
	// QueryTimeout bounds the version query of the extracted executable.
	QueryTimeout time.Duration `yaml:"query_timeout"`
	// LockTimeout bounds waiting for another run to release the lock.
	LockTimeout time.Duration `yaml:"lock_timeout"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for the tool settings.
	DefaultConfigFilename = "release-keeper.yaml"

	// DefaultRetentionCount is how many versions are kept when not configured.
	DefaultRetentionCount = 5

	// DefaultCacheDir is where archives are cached when not configured.
	DefaultCacheDir = "/var/cache/release-keeper"

	// DefaultDistDir is the distribution directory name inside the archive.
	DefaultDistDir = "dist"

	// DefaultStripComponents drops the archive's top-level directory.
	DefaultStripComponents = 1

	// DefaultTimeout is the default download timeout.
	DefaultTimeout = 10 * time.Minute

	// DefaultQueryTimeout is the default timeout of the version query.
	DefaultQueryTimeout = 10 * time.Second

	// DefaultLockTimeout is the default wait for a concurrent run.
	DefaultLockTimeout = 30 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// sha256HexLength is the length of a hex-encoded SHA-256 digest.
	sha256HexLength = 64
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errToolRequired is returned when the tool name is missing.
	errToolRequired = errors.New("tool must be provided")
	// errBadTool is returned for tool names that cannot name the cache working directory.
	errBadTool = errors.New("tool must be a plain name without path separators")
	// errBaseDirRequired is returned when the install root is missing.
	errBaseDirRequired = errors.New("base install directory must be provided")
	// errBadRetention is returned for a retention count below one.
	errBadRetention = errors.New("retention count must be at least 1")
	// errNoExecutables is returned when no executable is configured.
	errNoExecutables = errors.New("at least one executable must be provided")
	// errBadExecutable is returned for executable names that are not plain file names.
	errBadExecutable = errors.New("executable must be a plain file name")
	// errBadStrip is returned for a negative strip count.
	errBadStrip = errors.New("strip components must not be negative")
	// errBadChecksum is returned for a malformed checksum.
	errBadChecksum = errors.New("checksum must be a hex encoded sha256 digest")
	// errBadLogLevel is returned for an unknown log level.
	errBadLogLevel = errors.New("unknown log level")
	// errTemplateRequired is returned when a filename or URL template is missing.
	errTemplateRequired = errors.New("filename and url templates must be provided")
)

// Default returns the settings for the AWS CLI v2 bundle.
func Default() *Config {
	return &Config{
		Tool:             "awscli",
		Version:          release.AliasLatest,
		RetentionCount:   DefaultRetentionCount,
		BaseInstallDir:   "/opt/awscli",
		CacheDir:         DefaultCacheDir,
		FilenameTemplate: "awscliv2{{.Suffix}}.zip",
		URLTemplate:      "https://awscli.amazonaws.com/awscli-exe-linux-{{.Arch}}{{.Suffix}}.zip",
		CachePattern:     "awscliv2*.zip",
		StripComponents:  DefaultStripComponents,
		DistDir:          DefaultDistDir,
		Executables:      []string{"aws", "aws_completer"},
		VersionArgs:      []string{"--version"},
		Timeout:          DefaultTimeout,
		QueryTimeout:     DefaultQueryTimeout,
		LockTimeout:      DefaultLockTimeout,
		LogLevel:         "info",
	}
}

// Load reads configuration from the provided path on top of Default and validates it.
func Load(path string) (*Config, error) {
	resolved, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}

	contents, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ResolvePath returns the settings file location Load and Save use for path:
// the default filename when empty, with "~" expanded.
func ResolvePath(path string) (string, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expand settings path: %w", err)
	}

	return filepath.Clean(expanded), nil
}

// Save writes the settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	resolved, err := ResolvePath(path)
	if err != nil {
		return err
	}

	if err = Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err = os.WriteFile(resolved, data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields, fills defaults and expands "~" in paths.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	settings.Tool = strings.TrimSpace(settings.Tool)
	if settings.Tool == "" {
		return errToolRequired
	}

	if strings.ContainsAny(settings.Tool, `/\`) || settings.Tool == "." || settings.Tool == ".." {
		return fmt.Errorf("%w: %q", errBadTool, settings.Tool)
	}

	if err := validatePaths(settings); err != nil {
		return err
	}

	applyDefaults(settings)

	if settings.RetentionCount < 1 {
		return fmt.Errorf("%w: got %d", errBadRetention, settings.RetentionCount)
	}

	if settings.StripComponents < 0 {
		return errBadStrip
	}

	if err := release.ValidateAlias(settings.Version); err != nil {
		return err
	}

	if settings.FilenameTemplate == "" || settings.URLTemplate == "" {
		return errTemplateRequired
	}

	if _, err := release.NewTemplates(settings.FilenameTemplate, settings.URLTemplate); err != nil {
		return err
	}

	if err := validateExecutables(settings.Executables); err != nil {
		return err
	}

	if err := validateChecksum(settings.Checksum); err != nil {
		return err
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errBadLogLevel, settings.LogLevel)
	}

	return nil
}

// validatePaths expands and cleans the install and cache roots.
func validatePaths(settings *Config) error {
	if strings.TrimSpace(settings.BaseInstallDir) == "" {
		return errBaseDirRequired
	}

	baseDir, err := homedir.Expand(settings.BaseInstallDir)
	if err != nil {
		return fmt.Errorf("expand base install directory: %w", err)
	}

	settings.BaseInstallDir = filepath.Clean(baseDir)

	if settings.CacheDir == "" {
		settings.CacheDir = DefaultCacheDir
	}

	cacheDir, err := homedir.Expand(settings.CacheDir)
	if err != nil {
		return fmt.Errorf("expand cache directory: %w", err)
	}

	settings.CacheDir = filepath.Clean(cacheDir)

	return nil
}

// applyDefaults fills optional fields that were left empty.
func applyDefaults(settings *Config) {
	if strings.TrimSpace(settings.Version) == "" {
		settings.Version = release.AliasLatest
	}

	if settings.RetentionCount == 0 {
		settings.RetentionCount = DefaultRetentionCount
	}

	if settings.DistDir == "" {
		settings.DistDir = DefaultDistDir
	}

	if len(settings.VersionArgs) == 0 {
		settings.VersionArgs = []string{"--version"}
	}

	if settings.CachePattern == "" && settings.FilenameTemplate != "" {
		settings.CachePattern = settings.Tool + "*"
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.QueryTimeout <= 0 {
		settings.QueryTimeout = DefaultQueryTimeout
	}

	if settings.LockTimeout <= 0 {
		settings.LockTimeout = DefaultLockTimeout
	}
}

// validateExecutables requires at least one plain executable name.
func validateExecutables(executables []string) error {
	if len(executables) == 0 {
		return errNoExecutables
	}

	for _, name := range executables {
		if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
			return fmt.Errorf("%w: %q", errBadExecutable, name)
		}
	}

	return nil
}

// validateChecksum accepts an empty value or a hex SHA-256 digest.
func validateChecksum(checksum string) error {
	if checksum == "" {
		return nil
	}

	if len(checksum) != sha256HexLength {
		return errBadChecksum
	}

	if _, err := hex.DecodeString(checksum); err != nil {
		return fmt.Errorf("%w: %w", errBadChecksum, err)
	}

	return nil
}
