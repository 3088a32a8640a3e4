package installer

import (
	"context"
	"encoding/hex"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/oshokin/release-keeper/internal/config"
	"github.com/oshokin/release-keeper/internal/domain/release"
	"github.com/oshokin/release-keeper/internal/logger"
	"github.com/oshokin/release-keeper/internal/repository/store"
	"github.com/oshokin/release-keeper/internal/service/extractor"
	"github.com/oshokin/release-keeper/internal/service/fetcher"
	"github.com/oshokin/release-keeper/internal/service/process"
)

// Options are inputs accepted by the installer entry points.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// Version overrides the configured version alias when set.
	Version string
	// RetentionCount overrides the configured retention count when positive.
	RetentionCount int
	// LogLevel overrides the configured log level when set.
	LogLevel string
}

// Installation is an installed version together with its receipt.
type Installation struct {
	release.InstalledVersion

	// Receipt is the recorded origin of the version; zero when HasReceipt is false.
	Receipt Receipt
	// HasReceipt reports whether the version directory carries a readable receipt.
	HasReceipt bool
}

// Run converges the configured tool: resolve, clean, fetch, extract, install and prune.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "install")

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	deps, err := newDependencies(cfg)
	if err != nil {
		return nil, err
	}

	pipeline, err := NewPipeline(cfg, deps)
	if err != nil {
		return nil, err
	}

	unlock, err := acquireLock(ctx, pipeline.paths.lockPath(), cfg.LockTimeout)
	if err != nil {
		return nil, err
	}

	defer unlock()

	result, err := pipeline.Converge(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Convergence failed", "error", err)

		return nil, err
	}

	logger.InfoKV(ctx, "Convergence completed",
		"version", result.Installed.Version, "pruned", len(result.Pruned))

	return result, nil
}

// Prune applies retention without installing anything. The version current
// points to is kept.
func Prune(ctx context.Context, opts *Options) ([]release.InstalledVersion, error) {
	ctx = logger.WithName(ctx, "prune")

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	deps, err := newDependencies(cfg)
	if err != nil {
		return nil, err
	}

	pipeline, err := NewPipeline(cfg, deps)
	if err != nil {
		return nil, err
	}

	unlock, err := acquireLock(ctx, pipeline.paths.lockPath(), cfg.LockTimeout)
	if err != nil {
		return nil, err
	}

	defer unlock()

	return pipeline.PruneOnly(ctx)
}

// List returns the installed versions, newest first.
func List(ctx context.Context, opts *Options) ([]Installation, error) {
	ctx = logger.WithName(ctx, "list")

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	// The table goes to stdout; keep info chatter off the terminal unless debugging.
	if logger.Level() > zapcore.DebugLevel {
		ctx = logger.WithMinLevel(ctx, zapcore.WarnLevel)
	}

	return ListInstalled(ctx, store.NewOS(), cfg)
}

// PruneOnly applies retention, pinning whatever current points to.
func (p *Pipeline) PruneOnly(ctx context.Context) ([]release.InstalledVersion, error) {
	pinned := currentVersion(p.deps.Store, p.paths)
	if pinned == "" {
		logger.Warn(ctx, "No current version, retention keeps the newest versions only")
	}

	return p.prune(ctx, pinned)
}

// ListInstalled describes every version installed for cfg, newest first.
func ListInstalled(ctx context.Context, st store.Store, cfg *config.Config) ([]Installation, error) {
	paths := newLayout(cfg)

	versions, err := installedVersions(st, paths)
	if err != nil {
		return nil, fmt.Errorf("list installed versions: %w", err)
	}

	release.SortNewestFirst(versions)

	installations := make([]Installation, 0, len(versions))

	for _, v := range versions {
		receipt, ok := readReceipt(st, v.InstallPath)
		if !ok {
			logger.DebugKV(ctx, "Version has no receipt", "version", v.Version)
		}

		installations = append(installations, Installation{
			InstalledVersion: v,
			Receipt:          receipt,
			HasReceipt:       ok,
		})
	}

	return installations, nil
}

// loadConfig reads the settings file and applies the command line overrides.
func loadConfig(opts *Options) (*config.Config, error) {
	if opts == nil {
		opts = &Options{}
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(opts.Version); v != "" {
		cfg.Version = v
	}

	if opts.RetentionCount > 0 {
		cfg.RetentionCount = opts.RetentionCount
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	level, _ := logger.ParseLogLevel(cfg.LogLevel)
	logger.SetLevel(level)

	return cfg, nil
}

// newDependencies wires the real collaborators for cfg on this host.
func newDependencies(cfg *config.Config) (Dependencies, error) {
	arch, err := release.DetectArchitecture(runtime.GOARCH)
	if err != nil {
		return Dependencies{}, err
	}

	fetchOptions := []fetcher.Option{fetcher.WithTimeout(cfg.Timeout)}

	if cfg.Checksum != "" {
		var sum []byte

		sum, err = hex.DecodeString(cfg.Checksum)
		if err != nil {
			return Dependencies{}, fmt.Errorf("decode checksum: %w", err)
		}

		fetchOptions = append(fetchOptions, fetcher.WithChecksum(sum))
	}

	return Dependencies{
		Store:        store.NewOS(),
		Fetcher:      fetcher.New(fetchOptions...),
		Extractor:    extractor.New(),
		Runner:       process.NewExec(cfg.QueryTimeout),
		Terminate:    process.Terminate,
		Architecture: arch,
	}, nil
}
