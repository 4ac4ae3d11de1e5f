package tree

import (
	"sync"
	"sync/atomic"

	"github.com/mutagen-io/memfs/pkg/memfs/errs"
	"github.com/mutagen-io/memfs/pkg/memfs/pathtype"
)

// FileTree is the multi-root graph of Files reachable from zero or more
// named roots (one per Windows drive/UNC root, or a single unnamed root
// for Unix/OSX), per spec.md §3.
type FileTree struct {
	mu sync.RWMutex

	roots map[string]*File // keyed by the root name's canonical form, "" for the unnamed Unix/OSX root

	nextID uint64 // accessed atomically
}

// NewFileTree creates an empty FileTree with no roots installed.
func NewFileTree() *FileTree {
	return &FileTree{roots: make(map[string]*File)}
}

// NewID allocates a fresh, stable File identity, unique within this tree.
func (t *FileTree) NewID() uint64 {
	return atomic.AddUint64(&t.nextID, 1)
}

// NewDirectory allocates a new, unlinked directory file with a fresh ID.
func (t *FileTree) NewDirectory() *File {
	return newDirectory(t.NewID())
}

// SetRoot installs file (which must be a directory) as the root identified
// by key (the empty string for an unnamed root, or a root name's canonical
// form for a Windows drive/UNC root). The directory's ".." entry is made
// self-referential. SetRoot fails if a root already exists under key.
func (t *FileTree) SetRoot(key string, dir *File) error {
	if !dir.IsDirectory() {
		return errs.New(errs.InvalidArgument, "root must be a directory")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.roots[key]; exists {
		return errs.Newf(errs.AlreadyExists, "root already exists: %q", key)
	}
	t.roots[key] = dir
	dir.Directory().installSelfParent()
	return nil
}

// Root returns the directory installed under key, or nil if none exists.
func (t *FileTree) Root(key string) *File {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.roots[key]
}

// RootKeys returns the canonical keys of every installed root.
func (t *FileTree) RootKeys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]string, 0, len(t.roots))
	for k := range t.roots {
		keys = append(keys, k)
	}
	return keys
}

// RootKeyForName computes the FileTree root-table key for a root Name: the
// empty string if name is nil (unnamed Unix/OSX root), else its canonical
// form.
func RootKeyForName(name *pathtype.Name) string {
	if name == nil {
		return ""
	}
	return name.Canonical()
}

// Evict drops every installed root, releasing the tree's references to
// every File reachable from them. Called once by FileSystem.Close per
// spec.md §2's "closing the filesystem... evicts all files" data-flow
// sentence; a File already held open by a caller is unaffected since that
// caller holds its own reference independent of the tree.
func (t *FileTree) Evict() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roots = make(map[string]*File)
}
