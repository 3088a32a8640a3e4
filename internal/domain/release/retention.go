package release

import (
	"sort"
	"time"

	goversion "github.com/hashicorp/go-version"
)

// InstalledVersion is one version directory under <base>/v2.
type InstalledVersion struct {
	// Version is the directory name, the version reported by the tool.
	Version string
	// InstallPath is the absolute directory path.
	InstallPath string
	// ModTime is the directory modification time.
	ModTime time.Time
	// Current marks the version the current symlink points to.
	Current bool
}

// SelectForPruning splits versions into those to keep and those to delete.
//
// Versions are ordered by ModTime, newest first; ties keep their input order.
// The version named pinned (usually the one current points to) is always kept
// and counts toward keep, so at most keep-1 other versions survive. With an
// empty pinned name the keep newest versions survive.
func SelectForPruning(versions []InstalledVersion, keep int, pinned string) (kept, pruned []InstalledVersion) {
	if keep < 1 {
		keep = 1
	}

	ordered := make([]InstalledVersion, 0, len(versions))

	var (
		pinnedVersion InstalledVersion
		hasPinned     bool
	)

	for _, v := range versions {
		if pinned != "" && v.Version == pinned && !hasPinned {
			pinnedVersion, hasPinned = v, true

			continue
		}

		ordered = append(ordered, v)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ModTime.After(ordered[j].ModTime)
	})

	slots := keep
	if hasPinned {
		kept = append(kept, pinnedVersion)
		slots--
	}

	if slots > len(ordered) {
		slots = len(ordered)
	}

	kept = append(kept, ordered[:slots]...)
	pruned = append(pruned, ordered[slots:]...)

	return kept, pruned
}

// SortNewestFirst orders versions for display: newest ModTime first, then the
// higher semantic version, then by name.
func SortNewestFirst(versions []InstalledVersion) {
	sort.SliceStable(versions, func(i, j int) bool {
		a, b := versions[i], versions[j]
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.After(b.ModTime)
		}

		va, errA := goversion.NewVersion(a.Version)
		vb, errB := goversion.NewVersion(b.Version)

		if errA == nil && errB == nil && !va.Equal(vb) {
			return va.GreaterThan(vb)
		}

		return a.Version > b.Version
	})
}
