// Package lookup implements the path resolution algorithm described in
// spec.md §4.2: walking a FileTree from a root or working directory,
// following "." and ".." entries, and transparently following symbolic
// links up to a fixed traversal limit.
package lookup

import (
	"github.com/mutagen-io/memfs/pkg/memfs/errs"
	"github.com/mutagen-io/memfs/pkg/memfs/jimfspath"
	"github.com/mutagen-io/memfs/pkg/memfs/pathtype"
	"github.com/mutagen-io/memfs/pkg/memfs/tree"
)

// maxSymbolicLinkTraversals bounds the number of symbolic links a single
// lookup may follow before it is treated as a loop, per spec.md §4.2.
const maxSymbolicLinkTraversals = 10

// LinkOptions controls how a lookup treats a symbolic link at the final
// path component.
type LinkOptions struct {
	// NoFollowLinks, when set, leaves a symbolic link unresolved if it is
	// the final component of the path. It has no effect on symbolic links
	// encountered as intermediate components, which are always followed.
	NoFollowLinks bool
}

// Follow is the LinkOptions value that resolves a trailing symbolic link.
var Follow = LinkOptions{}

// NoFollow is the LinkOptions value that leaves a trailing symbolic link
// unresolved.
var NoFollow = LinkOptions{NoFollowLinks: true}

// state carries the mutable bookkeeping threaded through a lookup's
// recursive symbolic-link resolution.
type state struct {
	tree       *tree.FileTree
	pathType   *pathtype.PathType
	traversals *int
}

// Lookup resolves path starting from workDir (used when path is relative)
// against t, returning either a concrete DirectoryEntry (Exists() == true)
// or a "parent only" entry when only the final component is missing. Any
// other resolution failure returns a *errs.Error naming the exact failing
// path.
func Lookup(t *tree.FileTree, workDir *tree.DirectoryEntry, path *jimfspath.Path, opts LinkOptions) (*tree.DirectoryEntry, error) {
	traversals := 0
	s := &state{tree: t, pathType: path.PathType(), traversals: &traversals}
	return s.resolve(workDir, path, opts)
}

func (s *state) resolve(workDir *tree.DirectoryEntry, path *jimfspath.Path, opts LinkOptions) (*tree.DirectoryEntry, error) {
	var currentDir *tree.Directory

	if path.IsAbsolute() {
		rootKey := tree.RootKeyForName(path.Root())
		rootFile := s.tree.Root(rootKey)
		if rootFile == nil {
			return nil, errs.Newf(errs.NotFound, "no such root").WithPath(path.String())
		}
		currentDir = rootFile.Directory()
	} else {
		if workDir == nil || !workDir.Exists() || !workDir.File.IsDirectory() {
			return nil, errs.New(errs.NotDirectory, "working directory is not a directory")
		}
		currentDir = workDir.File.Directory()
	}

	names := path.Names()
	if len(names) == 0 {
		// The empty path (or a bare root) resolves to the starting
		// directory itself, represented via its own "." entry.
		entry, _ := currentDir.Get(pathtype.Self)
		return entry, nil
	}

	for i, name := range names {
		isLast := i == len(names)-1

		switch {
		case name.IsSelf():
			continue
		case name.IsParent():
			currentDir = currentDir.Parent()
			continue
		}

		entry, ok := currentDir.Get(name)
		if !ok {
			if isLast {
				return &tree.DirectoryEntry{Parent: currentDir, Name: name}, nil
			}
			return nil, errs.New(errs.NotFound, "no such file or directory").WithPath(path.String())
		}

		if entry.File.IsSymbolicLink() && (!isLast || !opts.NoFollowLinks) {
			resolved, err := s.followSymlink(entry, path)
			if err != nil {
				return nil, err
			}
			if isLast {
				return resolved, nil
			}
			if !resolved.Exists() || !resolved.File.IsDirectory() {
				return nil, errs.New(errs.NotDirectory, "not a directory").WithPath(path.String())
			}
			currentDir = resolved.File.Directory()
			continue
		}

		if !isLast {
			if !entry.File.IsDirectory() {
				return nil, errs.New(errs.NotDirectory, "not a directory").WithPath(path.String())
			}
			currentDir = entry.File.Directory()
			continue
		}

		return entry, nil
	}

	// Reached when the path's final component was "." or "..": both are
	// handled by the loop's continue cases rather than its terminal
	// return, so the resolved position is reported via currentDir's own
	// "." entry.
	entry, _ := currentDir.Get(pathtype.Self)
	return entry, nil
}

// followSymlink resolves the target of a symbolic link entry, relative to
// its containing directory, incrementing and checking the shared
// traversal counter.
func (s *state) followSymlink(entry *tree.DirectoryEntry, originalPath *jimfspath.Path) (*tree.DirectoryEntry, error) {
	*s.traversals++
	if *s.traversals > maxSymbolicLinkTraversals {
		return nil, errs.New(errs.Loop, "too many levels of symbolic link").WithPath(originalPath.String())
	}

	targetPath, err := jimfspath.Parse(s.pathType, entry.File.SymbolicLinkTarget())
	if err != nil {
		return nil, errs.Wrap(errs.Io, err, "invalid symbolic link target").WithPath(originalPath.String())
	}

	containingEntry, _ := entry.Parent.Get(pathtype.Self)
	return s.resolve(containingEntry, targetPath, Follow)
}
