package installer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/oshokin/release-keeper/internal/domain/release"
	"github.com/oshokin/release-keeper/internal/logger"
)

// install queries the extracted executable for its version, lays the version
// out under <base>/v2/<version> and repoints current at it. Nothing under
// <base>/v2 changes when the version query fails, and a failed layout leaves
// neither a partial version directory nor a moved current link behind.
func (p *Pipeline) install(ctx context.Context, spec release.ArtifactSpec) (release.InstalledVersion, error) {
	version, err := p.queryVersion(ctx)
	if err != nil {
		return release.InstalledVersion{}, err
	}

	if spec.Pinned() && version != spec.VersionAlias {
		logger.WarnKV(ctx, "Installed version differs from the requested one",
			"requested", spec.VersionAlias, "reported", version)
	}

	installPath := p.paths.versionDir(version)
	ctx = logger.WithKV(ctx, "version", version)

	logger.InfoKV(ctx, "Installing version", "path", installPath)

	if err = p.stage(spec, version, installPath); err != nil {
		return release.InstalledVersion{}, err
	}

	if p.cfg.StopRunning {
		p.stopRunning(ctx)
	}

	if err = p.publish(ctx, installPath); err != nil {
		return release.InstalledVersion{}, err
	}

	entry, err := p.deps.Store.Stat(installPath)
	if err != nil {
		return release.InstalledVersion{}, fmt.Errorf("%w: %w", ErrInstall, err)
	}

	return release.InstalledVersion{
		Version:     version,
		InstallPath: installPath,
		ModTime:     entry.ModTime,
		Current:     true,
	}, nil
}

// stage builds the version in a hidden staging directory and moves it to
// installPath once dist, links and receipt are all in place. The staging
// directory is removed on failure. Links point at installPath so they resolve
// after the final move.
func (p *Pipeline) stage(spec release.ArtifactSpec, version, installPath string) (err error) {
	st := p.deps.Store
	staging := p.paths.stagingDir(version)

	if err = st.RemoveAll(staging); err != nil {
		return fmt.Errorf("%w: clear %s: %w", ErrInstall, staging, err)
	}

	defer func() {
		if err == nil {
			return
		}

		if cleanupErr := st.RemoveAll(staging); cleanupErr != nil {
			err = errors.Join(err, fmt.Errorf("remove %s: %w", staging, cleanupErr))
		}
	}()

	if err = st.MkdirAll(filepath.Join(staging, binDirName)); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrInstall, staging, err)
	}

	if err = st.Move(p.paths.extractedDist(), filepath.Join(staging, distDirName)); err != nil {
		return fmt.Errorf("%w: move distribution: %w", ErrInstall, err)
	}

	for _, exe := range p.cfg.Executables {
		target := filepath.Join(installPath, distDirName, exe)
		if err = st.Symlink(target, filepath.Join(staging, binDirName, exe)); err != nil {
			return fmt.Errorf("%w: link %s: %w", ErrInstall, exe, err)
		}
	}

	if err = writeReceipt(st, staging, newReceipt(spec, version, time.Now())); err != nil {
		return fmt.Errorf("%w: %w", ErrInstall, err)
	}

	if err = st.Move(staging, installPath); err != nil {
		return fmt.Errorf("%w: move %s into place: %w", ErrInstall, installPath, err)
	}

	return nil
}

// queryVersion runs the primary executable of the extracted distribution and
// parses the version it reports.
func (p *Pipeline) queryVersion(ctx context.Context) (string, error) {
	exe := filepath.Join(p.paths.extractedDist(), p.cfg.Executables[0])

	logger.DebugKV(ctx, "Querying version", "executable", exe, "args", p.cfg.VersionArgs)

	result, err := p.deps.Runner.Run(ctx, exe, p.cfg.VersionArgs...)
	if err != nil {
		return "", fmt.Errorf("%w: run %s: %w", ErrVersionQuery, exe, err)
	}

	if result.ExitCode != 0 {
		return "", fmt.Errorf("%w: %s exited with code %d: %s",
			ErrVersionQuery, exe, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	version, err := release.ParseVersionOutput(result.Stdout)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrVersionQuery, err)
	}

	if err = release.ValidateVersionName(version); err != nil {
		return "", fmt.Errorf("%w: %w", ErrVersionQuery, err)
	}

	return version, nil
}

// stopRunning terminates running copies of the configured executables.
// Failures are logged; the new version is installed either way.
func (p *Pipeline) stopRunning(ctx context.Context) {
	killed, err := p.deps.Terminate(ctx, p.cfg.Executables)
	if err != nil {
		logger.WarnKV(ctx, "Unable to stop running processes", "error", err)

		return
	}

	if killed > 0 {
		logger.InfoKV(ctx, "Stopped running processes", "count", killed)
	}
}

// publish repoints current at installPath.
func (p *Pipeline) publish(ctx context.Context, installPath string) error {
	current := p.paths.currentLink()

	if err := p.deps.Store.Remove(current); err != nil {
		return fmt.Errorf("%w: remove %s: %w", ErrInstall, current, err)
	}

	if err := p.deps.Store.Symlink(installPath, current); err != nil {
		return fmt.Errorf("%w: link %s: %w", ErrInstall, current, err)
	}

	logger.InfoKV(ctx, "Current version switched", "link", current, "target", installPath)

	return nil
}
