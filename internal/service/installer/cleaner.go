package installer

import (
	"context"
	"fmt"

	"github.com/bmatcuk/doublestar"

	"github.com/oshokin/release-keeper/internal/domain/release"
	"github.com/oshokin/release-keeper/internal/logger"
)

// clean removes the extraction working directory and every cached archive
// matching the cache pattern except the one named by spec.
func (p *Pipeline) clean(ctx context.Context, spec release.ArtifactSpec) error {
	workDir := p.paths.workDir()

	logger.DebugKV(ctx, "Removing extraction directory", "path", workDir)

	if err := p.deps.Store.RemoveAll(workDir); err != nil {
		return fmt.Errorf("remove %s: %w", workDir, err)
	}

	entries, err := p.deps.Store.List(p.paths.cacheDir)
	if err != nil {
		return fmt.Errorf("list cache %s: %w", p.paths.cacheDir, err)
	}

	for _, entry := range entries {
		if entry.IsDir || entry.Name == spec.Filename {
			continue
		}

		var matched bool

		matched, err = doublestar.Match(p.cfg.CachePattern, entry.Name)
		if err != nil {
			return fmt.Errorf("match cache pattern %q: %w", p.cfg.CachePattern, err)
		}

		if !matched {
			continue
		}

		logger.InfoKV(ctx, "Removing stale artifact", "path", entry.Path)

		if err = p.deps.Store.Remove(entry.Path); err != nil {
			return fmt.Errorf("remove stale artifact %s: %w", entry.Path, err)
		}
	}

	return nil
}
