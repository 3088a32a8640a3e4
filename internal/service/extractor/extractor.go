package extractor

import (
	"archive/tar"
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/oshokin/release-keeper/internal/logger"
)

// format is a supported archive type.
type format int

const (
	formatUnknown format = iota
	formatZip
	formatTarGz
)

const (
	// dirMode is used for directories created during extraction.
	dirMode fs.FileMode = 0o755
	// fallbackFileMode is used when an entry carries no permission bits.
	fallbackFileMode fs.FileMode = 0o644
)

var (
	// ErrUnsupportedFormat is returned for archives that are neither zip nor tar.gz.
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	// ErrUnsafePath is returned for entries escaping the destination directory.
	ErrUnsafePath = errors.New("archive entry escapes destination")
)

// Archive extracts zip and tar.gz archives on the local filesystem.
type Archive struct{}

// New returns an Archive extractor.
func New() *Archive {
	return &Archive{}
}

// Extract unpacks archivePath into dest, dropping the first strip path
// components of every entry. A missing or corrupt archive is an error.
func (a *Archive) Extract(ctx context.Context, archivePath, dest string, strip int) error {
	kind := detectFormat(archivePath)
	if kind == formatUnknown {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, archivePath)
	}

	if err := os.MkdirAll(dest, dirMode); err != nil {
		return fmt.Errorf("prepare extraction directory: %w", err)
	}

	var (
		count int
		err   error
	)

	switch kind {
	case formatZip:
		count, err = extractZip(ctx, archivePath, dest, strip)
	case formatTarGz:
		count, err = extractTarGz(ctx, archivePath, dest, strip)
	case formatUnknown:
		err = ErrUnsupportedFormat
	}

	if err != nil {
		return fmt.Errorf("extract %s: %w", archivePath, err)
	}

	logger.InfoKV(ctx, "Extracted archive", "archive", archivePath, "destination", dest, "entries", count)

	return nil
}

// detectFormat picks the archive type from the file name.
func detectFormat(archivePath string) format {
	name := strings.ToLower(filepath.Base(archivePath))

	switch {
	case strings.HasSuffix(name, ".zip"):
		return formatZip
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return formatTarGz
	default:
		return formatUnknown
	}
}

// extractZip unpacks a zip archive and returns the number of written entries.
func extractZip(ctx context.Context, archivePath, dest string, strip int) (int, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, err
	}

	defer func() {
		_ = reader.Close()
	}()

	count := 0

	for _, file := range reader.File {
		if err = ctx.Err(); err != nil {
			return count, err
		}

		target, ok, err := entryTarget(dest, file.Name, strip)
		if err != nil {
			return count, err
		}

		if !ok {
			continue
		}

		mode := file.Mode()

		switch {
		case mode.IsDir():
			err = os.MkdirAll(target, dirMode)
		case mode&fs.ModeSymlink != 0:
			err = writeZipSymlink(file, dest, target)
		default:
			err = writeZipFile(file, target, mode.Perm())
		}

		if err != nil {
			return count, err
		}

		count++
	}

	return count, nil
}

// writeZipFile copies one zip entry to target.
func writeZipFile(file *zip.File, target string, mode fs.FileMode) error {
	source, err := file.Open()
	if err != nil {
		return fmt.Errorf("open zip entry %s: %w", file.Name, err)
	}

	defer func() {
		_ = source.Close()
	}()

	return writeFile(source, target, mode)
}

// writeZipSymlink recreates a symlink stored in a zip entry.
func writeZipSymlink(file *zip.File, root, target string) error {
	source, err := file.Open()
	if err != nil {
		return fmt.Errorf("open zip entry %s: %w", file.Name, err)
	}

	defer func() {
		_ = source.Close()
	}()

	linkTarget, err := io.ReadAll(source)
	if err != nil {
		return err
	}

	return writeSymlink(root, string(linkTarget), target)
}

// extractTarGz unpacks a gzip-compressed tar archive.
func extractTarGz(ctx context.Context, archivePath, dest string, strip int) (int, error) {
	file, err := os.Open(filepath.Clean(archivePath))
	if err != nil {
		return 0, err
	}

	defer func() {
		_ = file.Close()
	}()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return 0, fmt.Errorf("gzip reader: %w", err)
	}

	defer func() {
		_ = gz.Close()
	}()

	tr := tar.NewReader(gz)
	count := 0

	for {
		if err = ctx.Err(); err != nil {
			return count, err
		}

		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return count, nil
		}

		if err != nil {
			return count, fmt.Errorf("read tar header: %w", err)
		}

		target, ok, err := entryTarget(dest, header.Name, strip)
		if err != nil {
			return count, err
		}

		if !ok {
			continue
		}

		switch header.Typeflag {
		case tar.TypeDir:
			err = os.MkdirAll(target, dirMode)
		case tar.TypeReg:
			err = writeFile(tr, target, fs.FileMode(header.Mode).Perm()) //nolint:gosec // Mode comes from a tar header.
		case tar.TypeSymlink:
			err = writeSymlink(dest, header.Linkname, target)
		default:
			// Hard links, devices and FIFOs are not part of tool releases.
			continue
		}

		if err != nil {
			return count, err
		}

		count++
	}
}

// entryTarget maps an archive entry name to its destination path after
// stripping. ok is false for entries consumed entirely by stripping.
func entryTarget(dest, name string, strip int) (string, bool, error) {
	normalized := strings.ReplaceAll(name, `\`, "/")
	for _, part := range strings.Split(normalized, "/") {
		if part == ".." {
			return "", false, fmt.Errorf("%w: %s", ErrUnsafePath, name)
		}
	}

	cleaned := strings.TrimPrefix(path.Clean("/"+normalized), "/")

	if cleaned == "" || cleaned == "." {
		return "", false, nil
	}

	parts := strings.Split(cleaned, "/")
	if len(parts) <= strip {
		return "", false, nil
	}

	rel := filepath.FromSlash(strings.Join(parts[strip:], "/"))
	root := filepath.Clean(dest)
	target := filepath.Join(root, rel)

	if !within(root, target) {
		return "", false, fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}

	return target, true, nil
}

// within reports whether target is root or lies below it.
func within(root, target string) bool {
	return target == root || strings.HasPrefix(target, root+string(os.PathSeparator))
}

// writeFile streams contents into target with mode.
func writeFile(contents io.Reader, target string, mode fs.FileMode) error {
	if mode == 0 {
		mode = fallbackFileMode
	}

	if err := os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
		return err
	}

	out, err := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}

	if _, err = io.Copy(out, contents); err != nil { //nolint:gosec // Release archives are trusted to be bounded.
		_ = out.Close()

		return fmt.Errorf("write file %s: %w", target, err)
	}

	return out.Close()
}

// writeSymlink creates target as a symlink to linkTarget, replacing any existing
// entry. Links must stay inside root so later entries cannot be written through them.
func writeSymlink(root, linkTarget, target string) error {
	resolved := linkTarget
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(target), resolved)
	}

	if !within(filepath.Clean(root), filepath.Clean(resolved)) {
		return fmt.Errorf("%w: link %s -> %s", ErrUnsafePath, target, linkTarget)
	}

	if err := os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
		return err
	}

	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return os.Symlink(linkTarget, target)
}
