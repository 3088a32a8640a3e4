package installer

import (
	"path/filepath"

	"github.com/oshokin/release-keeper/internal/config"
	"github.com/oshokin/release-keeper/internal/domain/release"
)

const (
	// versionsDirName is the directory holding one subdirectory per installed version.
	versionsDirName = "v2"
	// binDirName holds the executable symlinks of a version.
	binDirName = "bin"
	// distDirName holds the distribution tree of a version.
	distDirName = "dist"
	// lockFileName is the run lock placed in the base directory.
	lockFileName = ".release-keeper.lock"
	// stagingPrefix and stagingSuffix mark a version directory still being assembled.
	stagingPrefix = "."
	stagingSuffix = ".partial"
)

// layout derives every path of a tool's cache and install tree.
type layout struct {
	baseDir  string
	cacheDir string
	tool     string
	distDir  string
}

// newLayout builds the layout for cfg.
func newLayout(cfg *config.Config) layout {
	return layout{
		baseDir:  cfg.BaseInstallDir,
		cacheDir: cfg.CacheDir,
		tool:     cfg.Tool,
		distDir:  cfg.DistDir,
	}
}

func (l layout) versionsDir() string {
	return filepath.Join(l.baseDir, versionsDirName)
}

func (l layout) currentLink() string {
	return filepath.Join(l.versionsDir(), release.CurrentName)
}

func (l layout) versionDir(version string) string {
	return filepath.Join(l.versionsDir(), version)
}

// stagingDir is where a version is assembled before it is moved to versionDir.
func (l layout) stagingDir(version string) string {
	return filepath.Join(l.versionsDir(), stagingPrefix+version+stagingSuffix)
}

// workDir is where archives are extracted before installation.
func (l layout) workDir() string {
	return filepath.Join(l.cacheDir, l.tool)
}

// extractedDist is the distribution tree inside the working directory.
func (l layout) extractedDist() string {
	return filepath.Join(l.workDir(), l.distDir)
}

func (l layout) archivePath(filename string) string {
	return filepath.Join(l.cacheDir, filename)
}

func (l layout) lockPath() string {
	return filepath.Join(l.baseDir, lockFileName)
}
