// Package store abstracts the filesystem primitives the installer relies on.
//
// Store is implemented by OS, which works against the real filesystem, and by
// Memory, an in-memory tree with symlinks and modification times that lets the
// convergence pipeline be exercised without touching disk.
package store
