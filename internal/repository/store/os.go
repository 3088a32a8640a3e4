package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

const (
	// DefaultDirMode is used for every created directory.
	DefaultDirMode fs.FileMode = 0o755
	// DefaultFileMode is used for files written through WriteFile.
	DefaultFileMode fs.FileMode = 0o644

	// asideSuffix names the temporary location an existing destination is moved to.
	asideSuffix = ".release-keeper-old"
	// linkSuffix names the temporary symlink renamed over an existing one.
	linkSuffix = ".release-keeper-link"
)

// OS implements Store on the host filesystem.
type OS struct{}

// NewOS returns a Store backed by the real filesystem.
func NewOS() *OS {
	return &OS{}
}

// MkdirAll creates path and every missing parent.
func (*OS) MkdirAll(path string) error {
	return os.MkdirAll(filepath.Clean(path), DefaultDirMode)
}

// Move renames src to dst. An existing dst is first renamed aside and removed
// only after src is in place, so dst is never observed half-populated.
// Moves across filesystems fall back to a copy followed by removal of src.
func (o *OS) Move(src, dst string) error {
	src, dst = filepath.Clean(src), filepath.Clean(dst)

	if _, err := os.Lstat(src); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), DefaultDirMode); err != nil {
		return err
	}

	aside := ""

	if _, err := os.Lstat(dst); err == nil {
		aside = dst + asideSuffix
		if err = os.RemoveAll(aside); err != nil {
			return err
		}

		if err = os.Rename(dst, aside); err != nil {
			return fmt.Errorf("move existing %s aside: %w", dst, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := rename(src, dst); err != nil {
		if aside != "" {
			_ = os.Rename(aside, dst)
		}

		return err
	}

	if aside != "" {
		return os.RemoveAll(aside)
	}

	return nil
}

// Symlink creates link pointing at target. The new link is created next to
// link and renamed over it, replacing any existing file or symlink atomically.
func (*OS) Symlink(target, link string) error {
	link = filepath.Clean(link)

	if info, err := os.Lstat(link); err == nil && info.IsDir() {
		return &fs.PathError{Op: "symlink", Path: link, Err: errIsDir}
	}

	tmp := link + linkSuffix
	if err := os.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := os.Symlink(target, tmp); err != nil {
		return err
	}

	if err := os.Rename(tmp, link); err != nil {
		_ = os.Remove(tmp)

		return err
	}

	return nil
}

// Remove deletes a file, a symlink or an empty directory; a missing path is not an error.
func (*OS) Remove(path string) error {
	if err := os.Remove(filepath.Clean(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

// RemoveAll deletes path recursively.
func (*OS) RemoveAll(path string) error {
	return os.RemoveAll(filepath.Clean(path))
}

// List returns the entries of dir sorted by name; a missing dir yields no entries.
func (o *OS) List(dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(filepath.Clean(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, err
	}

	entries := make([]Entry, 0, len(dirEntries))

	for _, dirEntry := range dirEntries {
		entry, err := o.describe(filepath.Join(dir, dirEntry.Name()))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// Removed between ReadDir and Lstat.
				continue
			}

			return nil, err
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// Stat describes path, following symlinks.
func (*OS) Stat(path string) (Entry, error) {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, err
	}

	linkInfo, err := os.Lstat(path)
	if err != nil {
		return Entry{}, err
	}

	return entryFromInfo(path, info, linkInfo.Mode()&fs.ModeSymlink != 0), nil
}

// Readlink returns the target of the symlink at path.
func (*OS) Readlink(path string) (string, error) {
	return os.Readlink(filepath.Clean(path))
}

// WriteFile writes data to path, creating parent directories.
func (*OS) WriteFile(path string, data []byte) error {
	path = filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(path), DefaultDirMode); err != nil {
		return err
	}

	return os.WriteFile(path, data, DefaultFileMode)
}

// ReadFile returns the contents of path.
func (*OS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(filepath.Clean(path))
}

// describe builds an Entry for path; dangling symlinks are reported with the link's own metadata.
func (*OS) describe(path string) (Entry, error) {
	linkInfo, err := os.Lstat(path)
	if err != nil {
		return Entry{}, err
	}

	isSymlink := linkInfo.Mode()&fs.ModeSymlink != 0
	if !isSymlink {
		return entryFromInfo(path, linkInfo, false), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return entryFromInfo(path, linkInfo, true), nil //nolint:nilerr // Dangling links are listed as plain entries.
	}

	return entryFromInfo(path, info, true), nil
}

// entryFromInfo converts fs.FileInfo to an Entry.
func entryFromInfo(path string, info fs.FileInfo, isSymlink bool) Entry {
	return Entry{
		Name:      filepath.Base(path),
		Path:      path,
		IsDir:     info.IsDir(),
		IsSymlink: isSymlink,
		ModTime:   info.ModTime(),
		Size:      info.Size(),
	}
}

// rename moves src to dst, copying when they live on different filesystems.
func rename(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}

	staging := dst + linkSuffix
	if err = os.RemoveAll(staging); err != nil {
		return err
	}

	if err = copyTree(src, staging); err != nil {
		_ = os.RemoveAll(staging)

		return fmt.Errorf("copy %s across filesystems: %w", src, err)
	}

	if err = os.Rename(staging, dst); err != nil {
		_ = os.RemoveAll(staging)

		return err
	}

	return os.RemoveAll(src)
}

// copyTree copies files, directories and symlinks from src to dst preserving modes.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		target := filepath.Join(dst, rel)

		info, err := entry.Info()
		if err != nil {
			return err
		}

		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}

			return os.Symlink(link, target)
		case info.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		default:
			return copyFile(path, target, info.Mode().Perm())
		}
	})
}

// copyFile copies a regular file.
func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(filepath.Clean(dst), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}
