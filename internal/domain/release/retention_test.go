package release

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func versionNames(versions []InstalledVersion) []string {
	names := make([]string, 0, len(versions))
	for _, v := range versions {
		names = append(names, v.Version)
	}

	return names
}

// TestSelectForPruning_KeepsNewest checks that seven versions plus a new one shrink to five.
func TestSelectForPruning_KeepsNewest(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var versions []InstalledVersion
	for i := 1; i <= 7; i++ {
		versions = append(versions, InstalledVersion{
			Version: fmt.Sprintf("2.0.%d", i),
			ModTime: base.Add(time.Duration(i) * time.Hour),
		})
	}

	versions = append(versions, InstalledVersion{Version: "2.1.0", ModTime: base.Add(100 * time.Hour)})

	kept, pruned := SelectForPruning(versions, 5, "2.1.0")
	require.Equal(t, []string{"2.1.0", "2.0.7", "2.0.6", "2.0.5", "2.0.4"}, versionNames(kept))
	require.ElementsMatch(t, []string{"2.0.1", "2.0.2", "2.0.3"}, versionNames(pruned))
}

// TestSelectForPruning_FewerThanKeep deletes nothing.
func TestSelectForPruning_FewerThanKeep(t *testing.T) {
	t.Parallel()

	versions := []InstalledVersion{
		{Version: "1.0.0", ModTime: time.Unix(1, 0)},
		{Version: "1.0.1", ModTime: time.Unix(2, 0)},
	}

	kept, pruned := SelectForPruning(versions, 5, "")
	require.Len(t, kept, 2)
	require.Empty(t, pruned)
}

// TestSelectForPruning_PinsOldCurrent keeps the pinned version even when it is the oldest.
func TestSelectForPruning_PinsOldCurrent(t *testing.T) {
	t.Parallel()

	versions := []InstalledVersion{
		{Version: "old", ModTime: time.Unix(1, 0)},
		{Version: "a", ModTime: time.Unix(5, 0)},
		{Version: "b", ModTime: time.Unix(4, 0)},
		{Version: "c", ModTime: time.Unix(3, 0)},
	}

	kept, pruned := SelectForPruning(versions, 2, "old")
	require.Equal(t, []string{"old", "a"}, versionNames(kept))
	require.Equal(t, []string{"b", "c"}, versionNames(pruned))
}

// TestSelectForPruning_StableTies keeps input order among equal timestamps.
func TestSelectForPruning_StableTies(t *testing.T) {
	t.Parallel()

	same := time.Unix(10, 0)
	versions := []InstalledVersion{
		{Version: "x", ModTime: same},
		{Version: "y", ModTime: same},
		{Version: "z", ModTime: same},
	}

	kept, pruned := SelectForPruning(versions, 2, "")
	require.Equal(t, []string{"x", "y"}, versionNames(kept))
	require.Equal(t, []string{"z"}, versionNames(pruned))

	// Same input, same answer.
	kept2, pruned2 := SelectForPruning(versions, 2, "")
	require.Equal(t, kept, kept2)
	require.Equal(t, pruned, pruned2)
}

// TestSortNewestFirst orders by time, then by semantic version.
func TestSortNewestFirst(t *testing.T) {
	t.Parallel()

	same := time.Unix(10, 0)
	versions := []InstalledVersion{
		{Version: "2.9.0", ModTime: same},
		{Version: "2.10.0", ModTime: same},
		{Version: "1.0.0", ModTime: time.Unix(20, 0)},
	}

	SortNewestFirst(versions)
	require.Equal(t, []string{"1.0.0", "2.10.0", "2.9.0"}, versionNames(versions))
}
