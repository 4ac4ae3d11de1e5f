package lookup

import (
	"github.com/mutagen-io/memfs/pkg/memfs/errs"
	"github.com/mutagen-io/memfs/pkg/memfs/tree"
)

// CheckNotSubdirectory validates the "moving a directory into its own
// subtree" rule from spec.md §4.2: if candidate is source or any descendant
// of source (reached by following ".." from candidate up to a root),
// moving source to become an entry inside candidate is rejected.
func CheckNotSubdirectory(source, candidate *tree.Directory) error {
	for d := candidate; ; {
		if d.Owner().ID() == source.Owner().ID() {
			return errs.New(errs.InvalidArgument, "cannot move a directory into a sub-directory of itself")
		}
		parent := d.Parent()
		if parent == d {
			return nil
		}
		d = parent
	}
}
