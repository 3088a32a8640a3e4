package store

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// maxSymlinkHops bounds symlink resolution like the kernel's ELOOP limit.
const maxSymlinkHops = 40

// nodeKind distinguishes the objects held by Memory.
type nodeKind int

const (
	kindDir nodeKind = iota
	kindFile
	kindSymlink
)

// memNode is one filesystem object in Memory.
type memNode struct {
	kind    nodeKind
	data    []byte
	target  string
	modTime time.Time
}

// Memory is an in-memory Store. Creating or removing a child updates the
// parent directory's modification time, as on POSIX filesystems.
type Memory struct {
	// nodes maps cleaned absolute paths to objects; the root is implicit.
	nodes map[string]*memNode
	// now provides modification times.
	now func() time.Time
	// mu serialises access to nodes.
	mu sync.Mutex
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock sets the time source used for modification times.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory returns an empty in-memory Store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		nodes: make(map[string]*memNode),
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// SetModTime overrides the modification time of path (following symlinks).
func (m *Memory) SetModTime(path string, modTime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	full, err := m.resolve(path, true, 0)
	if err != nil {
		return err
	}

	node, ok := m.nodes[full]
	if !ok {
		return notExist("chtimes", path)
	}

	node.modTime = modTime

	return nil
}

// MkdirAll creates path and every missing parent.
func (m *Memory) MkdirAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mkdirAll(filepath.Clean(path))
}

// Move renames src to dst, replacing whatever dst held.
func (m *Memory) Move(src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	srcFull, err := m.resolve(src, false, 0)
	if err != nil {
		return err
	}

	if _, ok := m.nodes[srcFull]; !ok {
		return notExist("rename", src)
	}

	if err = m.mkdirAll(filepath.Dir(filepath.Clean(dst))); err != nil {
		return err
	}

	dstFull, err := m.resolve(dst, false, 0)
	if err != nil {
		return err
	}

	if srcFull == dstFull {
		return nil
	}

	if strings.HasPrefix(dstFull, srcFull+string(filepath.Separator)) {
		return &fs.PathError{Op: "rename", Path: dst, Err: fs.ErrInvalid}
	}

	m.deleteTree(dstFull)

	moved := make(map[string]*memNode)

	for p, node := range m.nodes {
		if p == srcFull || strings.HasPrefix(p, srcFull+string(filepath.Separator)) {
			moved[dstFull+strings.TrimPrefix(p, srcFull)] = node
			delete(m.nodes, p)
		}
	}

	for p, node := range moved {
		m.nodes[p] = node
	}

	m.touch(filepath.Dir(srcFull))
	m.touch(filepath.Dir(dstFull))

	return nil
}

// Symlink creates link pointing at target, replacing an existing non-directory link.
func (m *Memory) Symlink(target, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	full, err := m.resolve(link, false, 0)
	if err != nil {
		return err
	}

	if err = m.requireDir(filepath.Dir(full), link); err != nil {
		return err
	}

	if existing, ok := m.nodes[full]; ok && existing.kind == kindDir {
		return &fs.PathError{Op: "symlink", Path: link, Err: errIsDir}
	}

	m.add(full, &memNode{kind: kindSymlink, target: target})

	return nil
}

// Remove deletes a file, a symlink or an empty directory; a missing path is not an error.
func (m *Memory) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	full, err := m.resolve(path, false, 0)
	if err != nil {
		return err
	}

	node, ok := m.nodes[full]
	if !ok {
		return nil
	}

	if node.kind == kindDir && len(m.children(full)) > 0 {
		return &fs.PathError{Op: "remove", Path: path, Err: errDirNotEmpty}
	}

	m.deleteTree(full)

	return nil
}

// RemoveAll deletes path recursively.
func (m *Memory) RemoveAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	full, err := m.resolve(path, false, 0)
	if err != nil {
		return err
	}

	m.deleteTree(full)

	return nil
}

// List returns the entries of dir sorted by name; a missing dir yields no entries.
func (m *Memory) List(dir string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	full, err := m.resolve(dir, true, 0)
	if err != nil {
		return nil, err
	}

	if !isRoot(full) {
		node, ok := m.nodes[full]
		if !ok {
			return nil, nil
		}

		if node.kind != kindDir {
			return nil, &fs.PathError{Op: "readdir", Path: dir, Err: errNotDir}
		}
	}

	names := m.children(full)
	entries := make([]Entry, 0, len(names))

	for _, name := range names {
		entries = append(entries, m.describe(filepath.Join(filepath.Clean(dir), name), filepath.Join(full, name)))
	}

	return entries, nil
}

// Stat describes path, following symlinks.
func (m *Memory) Stat(path string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	linkFull, err := m.resolve(path, false, 0)
	if err != nil {
		return Entry{}, err
	}

	full, err := m.resolve(path, true, 0)
	if err != nil {
		return Entry{}, err
	}

	if isRoot(full) {
		return Entry{Name: filepath.Base(full), Path: path, IsDir: true}, nil
	}

	node, ok := m.nodes[full]
	if !ok {
		return Entry{}, notExist("stat", path)
	}

	entry := entryFromNode(filepath.Clean(path), node)
	if link, ok := m.nodes[linkFull]; ok && link.kind == kindSymlink {
		entry.IsSymlink = true
	}

	return entry, nil
}

// Readlink returns the target of the symlink at path.
func (m *Memory) Readlink(path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	full, err := m.resolve(path, false, 0)
	if err != nil {
		return "", err
	}

	node, ok := m.nodes[full]
	if !ok {
		return "", notExist("readlink", path)
	}

	if node.kind != kindSymlink {
		return "", &fs.PathError{Op: "readlink", Path: path, Err: errNotSymlink}
	}

	return node.target, nil
}

// WriteFile writes data to path, creating parent directories.
func (m *Memory) WriteFile(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.mkdirAll(filepath.Dir(filepath.Clean(path))); err != nil {
		return err
	}

	full, err := m.resolve(path, true, 0)
	if err != nil {
		return err
	}

	contents := append([]byte(nil), data...)

	if existing, ok := m.nodes[full]; ok {
		if existing.kind == kindDir {
			return &fs.PathError{Op: "open", Path: path, Err: errIsDir}
		}

		existing.kind, existing.data, existing.modTime = kindFile, contents, m.now()

		return nil
	}

	m.add(full, &memNode{kind: kindFile, data: contents})

	return nil
}

// ReadFile returns the contents of path.
func (m *Memory) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	full, err := m.resolve(path, true, 0)
	if err != nil {
		return nil, err
	}

	node, ok := m.nodes[full]
	if !ok {
		return nil, notExist("open", path)
	}

	if node.kind == kindDir {
		return nil, &fs.PathError{Op: "read", Path: path, Err: errIsDir}
	}

	return append([]byte(nil), node.data...), nil
}

// resolve returns the physical key for path, following symlinks in every
// parent component and, when followLast is set, in the last one.
func (m *Memory) resolve(path string, followLast bool, hops int) (string, error) {
	if hops > maxSymlinkHops {
		return "", &fs.PathError{Op: "resolve", Path: path, Err: errTooManyLinks}
	}

	path = filepath.Clean(path)
	if isRoot(path) {
		return path, nil
	}

	parent, err := m.resolve(filepath.Dir(path), true, hops)
	if err != nil {
		return "", err
	}

	full := filepath.Join(parent, filepath.Base(path))

	node, ok := m.nodes[full]
	if !ok || node.kind != kindSymlink || !followLast {
		return full, nil
	}

	target := node.target
	if !filepath.IsAbs(target) {
		target = filepath.Join(parent, target)
	}

	return m.resolve(target, true, hops+1)
}

// mkdirAll creates path and its parents; the caller holds the lock.
func (m *Memory) mkdirAll(path string) error {
	if isRoot(path) {
		return nil
	}

	if err := m.mkdirAll(filepath.Dir(path)); err != nil {
		return err
	}

	full, err := m.resolve(path, true, 0)
	if err != nil {
		return err
	}

	if node, ok := m.nodes[full]; ok {
		if node.kind == kindDir {
			return nil
		}

		return &fs.PathError{Op: "mkdir", Path: path, Err: errNotDir}
	}

	if err = m.requireDir(filepath.Dir(full), path); err != nil {
		return err
	}

	m.add(full, &memNode{kind: kindDir})

	return nil
}

// requireDir checks that the physical path dir exists and is a directory.
func (m *Memory) requireDir(dir, path string) error {
	if isRoot(dir) {
		return nil
	}

	node, ok := m.nodes[dir]
	if !ok {
		return notExist("open", path)
	}

	if node.kind != kindDir {
		return &fs.PathError{Op: "open", Path: path, Err: errNotDir}
	}

	return nil
}

// add stores node at full and updates the parent's modification time.
func (m *Memory) add(full string, node *memNode) {
	node.modTime = m.now()
	m.nodes[full] = node
	m.touch(filepath.Dir(full))
}

// deleteTree removes full and its descendants.
func (m *Memory) deleteTree(full string) {
	if _, ok := m.nodes[full]; !ok {
		return
	}

	for p := range m.nodes {
		if p == full || strings.HasPrefix(p, full+string(filepath.Separator)) {
			delete(m.nodes, p)
		}
	}

	m.touch(filepath.Dir(full))
}

// touch updates the modification time of a directory.
func (m *Memory) touch(dir string) {
	if node, ok := m.nodes[dir]; ok {
		node.modTime = m.now()
	}
}

// children returns the sorted base names directly under the physical dir.
func (m *Memory) children(dir string) []string {
	var names []string

	for p := range m.nodes {
		if filepath.Dir(p) == dir && p != dir {
			names = append(names, filepath.Base(p))
		}
	}

	sort.Strings(names)

	return names
}

// describe builds an Entry for a child, following a symlink if it resolves.
func (m *Memory) describe(path, full string) Entry {
	node := m.nodes[full]
	if node.kind != kindSymlink {
		return entryFromNode(path, node)
	}

	entry := entryFromNode(path, node)
	entry.IsSymlink = true

	if resolved, err := m.resolve(full, true, 0); err == nil {
		if target, ok := m.nodes[resolved]; ok {
			entry.IsDir = target.kind == kindDir
			entry.ModTime = target.modTime
			entry.Size = int64(len(target.data))
		}
	}

	return entry
}

// entryFromNode converts a node into an Entry.
func entryFromNode(path string, node *memNode) Entry {
	return Entry{
		Name:      filepath.Base(path),
		Path:      path,
		IsDir:     node.kind == kindDir,
		IsSymlink: node.kind == kindSymlink,
		ModTime:   node.modTime,
		Size:      int64(len(node.data)),
	}
}

// isRoot reports whether path is the filesystem root.
func isRoot(path string) bool {
	return path == filepath.Dir(path)
}

// notExist builds an fs.ErrNotExist path error.
func notExist(op, path string) error {
	return &fs.PathError{Op: op, Path: path, Err: fs.ErrNotExist}
}
