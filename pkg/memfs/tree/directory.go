package tree

import (
	"sort"
	"sync"

	"github.com/mutagen-io/memfs/pkg/memfs/errs"
	"github.com/mutagen-io/memfs/pkg/memfs/pathtype"
)

// DirectoryEntry is a single (containing directory, name, target file)
// triple, per spec.md's Directory entry definition.
type DirectoryEntry struct {
	Parent *Directory
	Name   pathtype.Name
	File   *File
}

// Exists reports whether this entry refers to a concrete file, as opposed
// to a "parent only" result produced when a lookup's final component is
// missing.
func (e *DirectoryEntry) Exists() bool {
	return e != nil && e.File != nil
}

// Directory is an open-addressed (via Go's built-in map) table of
// DirectoryEntry values, always including the reserved "." entry and,
// once linked under a parent (or installed as a self-referential root),
// the reserved ".." entry.
type Directory struct {
	mu sync.Mutex

	owner   *File // the File this directory is the payload of
	entries map[string]*DirectoryEntry

	// entryInParent caches this directory's one "real" entry in some other
	// directory's table, letting ".." resolution avoid a reverse search. It
	// is nil for a directory that is not yet linked under any parent (or is
	// a root).
	entryInParent *DirectoryEntry
}

// newDirectory allocates a Directory and its owning File, with only the
// "." self-entry installed; the caller is responsible for linking the
// directory under a parent (which installs "..") or for installing a
// self-referential ".." via installSelfParent for a tree root.
func newDirectory(id uint64) *File {
	file := newFile(id, KindDirectory)
	dir := &Directory{owner: file, entries: make(map[string]*DirectoryEntry)}
	file.directory = dir

	selfEntry := &DirectoryEntry{Parent: dir, Name: pathtype.Self, File: file}
	dir.entries[nameKey(pathtype.Self)] = selfEntry
	file.incrementLinkCount()

	return file
}

// installSelfParent makes this directory's ".." entry point to itself,
// used exactly once when a FileTree installs a root.
func (d *Directory) installSelfParent() {
	d.mu.Lock()
	defer d.mu.Unlock()
	parentEntry := &DirectoryEntry{Parent: d, Name: pathtype.Parent, File: d.owner}
	d.entries[nameKey(pathtype.Parent)] = parentEntry
	d.owner.incrementLinkCount()
}

// Owner returns the File this directory is the payload of.
func (d *Directory) Owner() *File {
	return d.owner
}

// EntryInParent returns the directory's cached "real" entry in its
// parent's table, or nil if it has none (unlinked, or a root).
func (d *Directory) EntryInParent() *DirectoryEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.entryInParent
}

// Get looks up a name in this directory's entry table under canonical
// equality, per spec.md §4.2 step 2.
func (d *Directory) Get(name pathtype.Name) (*DirectoryEntry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	entry, ok := d.entries[nameKey(name)]
	return entry, ok
}

// Link creates a new entry for name pointing at file. It fails if name is
// "." or ".." or if an entry for name already exists. If file is a
// directory, Link also installs that directory's ".." entry pointing back
// at d's owner, and caches the new entry as the child's entryInParent.
func (d *Directory) Link(name pathtype.Name, file *File) error {
	if name.IsDotOrDotDot() {
		return errs.Newf(errs.InvalidArgument, "cannot link reserved name %q", name.Display())
	}

	d.mu.Lock()
	key := nameKey(name)
	if _, exists := d.entries[key]; exists {
		d.mu.Unlock()
		return errs.Newf(errs.AlreadyExists, "entry already exists: %s", name.Display())
	}

	entry := &DirectoryEntry{Parent: d, Name: name, File: file}
	d.entries[key] = entry
	d.mu.Unlock()

	file.incrementLinkCount()

	if file.IsDirectory() {
		childDir := file.Directory()
		childDir.mu.Lock()
		childDir.entryInParent = entry
		parentEntry := &DirectoryEntry{Parent: childDir, Name: pathtype.Parent, File: d.owner}
		childDir.entries[nameKey(pathtype.Parent)] = parentEntry
		childDir.mu.Unlock()
		d.owner.incrementLinkCount()
	}

	return nil
}

// Unlink removes the entry for name, decrementing the target file's link
// count (and, for directories, removing the child's ".." entry and
// decrementing d's owner's link count in turn). It fails if no entry for
// name exists.
func (d *Directory) Unlink(name pathtype.Name) (*DirectoryEntry, error) {
	if name.IsDotOrDotDot() {
		return nil, errs.Newf(errs.InvalidArgument, "cannot unlink reserved name %q", name.Display())
	}

	d.mu.Lock()
	key := nameKey(name)
	entry, exists := d.entries[key]
	if !exists {
		d.mu.Unlock()
		return nil, errs.Newf(errs.NotFound, "no such entry: %s", name.Display())
	}
	delete(d.entries, key)
	d.mu.Unlock()

	entry.File.decrementLinkCount()

	if entry.File.IsDirectory() {
		childDir := entry.File.Directory()
		childDir.mu.Lock()
		delete(childDir.entries, nameKey(pathtype.Parent))
		childDir.entryInParent = nil
		childDir.mu.Unlock()
		d.owner.decrementLinkCount()
	}

	return entry, nil
}

// Snapshot returns the directory's entries, excluding "." and "..",
// sorted by display name per spec.md §3.
func (d *Directory) Snapshot() []pathtype.Name {
	d.mu.Lock()
	defer d.mu.Unlock()

	names := make([]pathtype.Name, 0, len(d.entries))
	for _, entry := range d.entries {
		if entry.Name.IsDotOrDotDot() {
			continue
		}
		names = append(names, entry.Name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Display() < names[j].Display() })
	return names
}

// SnapshotEntries returns the directory's non-reserved entries, sorted by
// display name.
func (d *Directory) SnapshotEntries() []*DirectoryEntry {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries := make([]*DirectoryEntry, 0, len(d.entries))
	for _, entry := range d.entries {
		if entry.Name.IsDotOrDotDot() {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name.Display() < entries[j].Name.Display() })
	return entries
}

// IsEmpty reports whether the directory has no entries besides "." and
// "..".
func (d *Directory) IsEmpty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, entry := range d.entries {
		if !entry.Name.IsDotOrDotDot() {
			return false
		}
	}
	return true
}

// Parent returns the directory reached by following "..": the directory
// itself if this is a root (installSelfParent makes "..": self) or the
// containing directory of the cached entryInParent.
func (d *Directory) Parent() *Directory {
	d.mu.Lock()
	defer d.mu.Unlock()
	parentEntry, ok := d.entries[nameKey(pathtype.Parent)]
	if !ok || parentEntry.File == d.owner {
		return d
	}
	return parentEntry.File.Directory()
}
