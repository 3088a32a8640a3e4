package store

import (
	"errors"
	"time"
)

// Store is the set of filesystem operations a convergence run performs.
// Paths are absolute. Operations that remove things treat a missing path as success.
type Store interface {
	// MkdirAll creates path and every missing parent.
	MkdirAll(path string) error
	// Move renames src to dst, replacing whatever dst held.
	Move(src, dst string) error
	// Symlink creates link pointing at target, replacing an existing non-directory link.
	Symlink(target, link string) error
	// Remove deletes a file, a symlink or an empty directory.
	Remove(path string) error
	// RemoveAll deletes path recursively.
	RemoveAll(path string) error
	// List returns the entries of dir sorted by name; a missing dir yields no entries.
	List(dir string) ([]Entry, error)
	// Stat describes path, following symlinks.
	Stat(path string) (Entry, error)
	// Readlink returns the target of the symlink at path.
	Readlink(path string) (string, error)
	// WriteFile writes data to path, creating parent directories.
	WriteFile(path string, data []byte) error
	// ReadFile returns the contents of path.
	ReadFile(path string) ([]byte, error)
}

// Entry describes a filesystem object.
type Entry struct {
	// Name is the base name.
	Name string
	// Path is the path the entry was reached by.
	Path string
	// IsDir reports whether the entry is, or points to, a directory.
	IsDir bool
	// IsSymlink reports whether the entry itself is a symbolic link.
	IsSymlink bool
	// ModTime is the modification time of the entry (of its target for symlinks).
	ModTime time.Time
	// Size is the file size in bytes.
	Size int64
}

var (
	// errNotDir is returned when a directory was expected.
	errNotDir = errors.New("not a directory")
	// errNotSymlink is returned by Readlink for non-links.
	errNotSymlink = errors.New("not a symbolic link")
	// errIsDir is returned when a non-directory was expected.
	errIsDir = errors.New("is a directory")
	// errDirNotEmpty is returned by Remove for directories with children.
	errDirNotEmpty = errors.New("directory not empty")
	// errTooManyLinks is returned when symlink resolution loops.
	errTooManyLinks = errors.New("too many levels of symbolic links")
)
