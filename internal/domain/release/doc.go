// Package release contains the pure domain logic of release-keeper.
//
// It resolves which artifact a host should download (ArtifactSpec), parses the
// version line printed by an installed executable, and decides which installed
// versions survive retention. Nothing here touches the filesystem or network.
package release
