package installer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/oshokin/release-keeper/internal/domain/release"
	"github.com/oshokin/release-keeper/internal/logger"
	"github.com/oshokin/release-keeper/internal/repository/store"
)

// prune deletes installed versions beyond the retention count. The pinned
// version is always kept and counts toward the limit.
func (p *Pipeline) prune(ctx context.Context, pinned string) ([]release.InstalledVersion, error) {
	versions, err := installedVersions(p.deps.Store, p.paths)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrune, err)
	}

	kept, pruned := release.SelectForPruning(versions, p.cfg.RetentionCount, pinned)

	logger.InfoKV(ctx, "Applying retention",
		"installed", len(versions), "keep", p.cfg.RetentionCount, "kept", len(kept), "prune", len(pruned))

	for i, v := range pruned {
		logger.InfoKV(ctx, "Removing old version", "version", v.Version, "path", v.InstallPath)

		if err = p.deps.Store.RemoveAll(v.InstallPath); err != nil {
			return pruned[:i], fmt.Errorf("%w: remove %s: %w", ErrPrune, v.InstallPath, err)
		}
	}

	return pruned, nil
}

// currentVersion returns the version current points to, or "" when there is none.
func currentVersion(st store.Store, paths layout) string {
	target, err := st.Readlink(paths.currentLink())
	if err != nil {
		return ""
	}

	return filepath.Base(filepath.Clean(target))
}

// installedVersions lists the version directories under <base>/v2, skipping
// the current link, hidden staging directories, anything that is not a
// directory and directories without a dist tree.
func installedVersions(st store.Store, paths layout) ([]release.InstalledVersion, error) {
	entries, err := st.List(paths.versionsDir())
	if err != nil {
		return nil, err
	}

	current := currentVersion(st, paths)
	versions := make([]release.InstalledVersion, 0, len(entries))

	for _, entry := range entries {
		if entry.Name == release.CurrentName || strings.HasPrefix(entry.Name, stagingPrefix) ||
			entry.IsSymlink || !entry.IsDir {
			continue
		}

		if dist, statErr := st.Stat(filepath.Join(entry.Path, distDirName)); statErr != nil || !dist.IsDir {
			continue
		}

		versions = append(versions, release.InstalledVersion{
			Version:     entry.Name,
			InstallPath: entry.Path,
			ModTime:     entry.ModTime,
			Current:     entry.Name == current,
		})
	}

	return versions, nil
}
