package installer

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/release-keeper/internal/config"
	"github.com/oshokin/release-keeper/internal/domain/release"
	"github.com/oshokin/release-keeper/internal/logger"
	"github.com/oshokin/release-keeper/internal/repository/store"
	"github.com/oshokin/release-keeper/internal/service/process"
)

var (
	// ErrExtract is returned when the cached archive cannot be extracted; nothing was installed.
	ErrExtract = errors.New("extract artifact")
	// ErrVersionQuery is returned when the extracted executable does not report a usable version.
	ErrVersionQuery = errors.New("query installed version")
	// ErrInstall is returned when laying out or publishing the version fails.
	ErrInstall = errors.New("install version")
	// ErrPrune is returned when an old version cannot be deleted.
	ErrPrune = errors.New("prune old versions")

	// errMissingDependency is returned by NewPipeline for unset collaborators.
	errMissingDependency = errors.New("pipeline dependency is not set")
)

// Fetcher downloads an artifact; failures are reported, never raised.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) bool
}

// Extractor unpacks an archive into a directory.
type Extractor interface {
	Extract(ctx context.Context, archivePath, dest string, strip int) error
}

// Runner runs an executable and reports its output and exit code.
type Runner interface {
	Run(ctx context.Context, path string, args ...string) (process.Result, error)
}

// TerminateFunc kills running processes by executable name.
type TerminateFunc func(ctx context.Context, names []string) (int, error)

// Dependencies are the collaborators a Pipeline runs against.
type Dependencies struct {
	// Store performs every filesystem change under the cache and install roots.
	Store store.Store
	// Fetcher downloads the artifact into the cache.
	Fetcher Fetcher
	// Extractor unpacks the cached archive.
	Extractor Extractor
	// Runner answers the version query.
	Runner Runner
	// Terminate stops running tool processes when StopRunning is configured.
	Terminate TerminateFunc
	// Architecture is the host architecture.
	Architecture release.Architecture
}

// Result summarises a convergence run.
type Result struct {
	// Spec is the resolved artifact.
	Spec release.ArtifactSpec
	// Installed is the version current now points to.
	Installed release.InstalledVersion
	// Pruned are the versions deleted by retention.
	Pruned []release.InstalledVersion
}

// Pipeline runs the convergence stages for one configured tool.
type Pipeline struct {
	cfg       *config.Config
	templates *release.Templates
	paths     layout
	deps      Dependencies
}

// NewPipeline validates the collaborators and prepares a pipeline for cfg.
func NewPipeline(cfg *config.Config, deps Dependencies) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config", errMissingDependency)
	}

	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("%w: store", errMissingDependency)
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("%w: fetcher", errMissingDependency)
	case deps.Extractor == nil:
		return nil, fmt.Errorf("%w: extractor", errMissingDependency)
	case deps.Runner == nil:
		return nil, fmt.Errorf("%w: runner", errMissingDependency)
	}

	if deps.Terminate == nil {
		deps.Terminate = process.Terminate
	}

	templates, err := release.NewTemplates(cfg.FilenameTemplate, cfg.URLTemplate)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:       cfg,
		templates: templates,
		paths:     newLayout(cfg),
		deps:      deps,
	}, nil
}

// Converge runs Resolve, Clean, Fetch, Extract, Install and Prune in order.
func (p *Pipeline) Converge(ctx context.Context) (*Result, error) {
	ctx = logger.WithKV(ctx, "tool", p.cfg.Tool)

	spec, err := release.Resolve(p.cfg.Tool, p.deps.Architecture, p.cfg.Version, p.templates)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact: %w", err)
	}

	logger.InfoKV(ctx, "Resolved artifact",
		"alias", spec.VersionAlias, "architecture", spec.Architecture, "filename", spec.Filename, "url", spec.URL)

	if err = p.clean(ctx, spec); err != nil {
		return nil, fmt.Errorf("clean stale artifacts: %w", err)
	}

	archivePath := p.paths.archivePath(spec.Filename)
	if !p.deps.Fetcher.Fetch(ctx, spec.URL, archivePath) {
		logger.WarnKV(ctx, "Continuing with the cached artifact if there is one", "path", archivePath)
	}

	err = p.deps.Extractor.Extract(ctx, archivePath, p.paths.workDir(), p.cfg.StripComponents)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtract, err)
	}

	installed, err := p.install(ctx, spec)
	if err != nil {
		return nil, err
	}

	pruned, err := p.prune(ctx, installed.Version)
	if err != nil {
		return nil, err
	}

	return &Result{
		Spec:      spec,
		Installed: installed,
		Pruned:    pruned,
	}, nil
}
