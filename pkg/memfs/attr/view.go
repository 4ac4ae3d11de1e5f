package attr

import (
	"github.com/mutagen-io/memfs/pkg/memfs/tree"
)

// FileLookup re-resolves a file each time it is called, letting a View
// outlive any single path that once named its target. Callers typically
// bind this to a lookup-and-follow-symlinks closure over the owning
// filesystem.
type FileLookup func() (*tree.File, error)

// View is a late-binding handle onto one attribute view of a file,
// surviving renames of its target because it re-resolves lookup on every
// call rather than capturing a *tree.File directly, per spec.md §4.5's
// getFileAttributeView contract.
type View struct {
	service *Service
	view    string
	lookup  FileLookup
}

// GetFileAttributeView returns a View for the named view, or nil if view
// is not enabled in s (matching the Java original's "returns null if no
// provider supplies that view").
func (s *Service) GetFileAttributeView(lookup FileLookup, view string) *View {
	if _, ok := s.enabled[view]; !ok {
		return nil
	}
	return &View{service: s, view: view, lookup: lookup}
}

// Name returns the view's name.
func (v *View) Name() string {
	return v.view
}

// ReadAttributes re-resolves the view's target and reads every attribute
// visible through it, including inherited ones.
func (v *View) ReadAttributes() (map[string]any, error) {
	file, err := v.lookup()
	if err != nil {
		return nil, err
	}
	return v.service.readAllForView(file, v.view)
}

// SetAttribute re-resolves the view's target and sets a single attribute,
// addressed by bare name within this view.
func (v *View) SetAttribute(name string, value any) error {
	file, err := v.lookup()
	if err != nil {
		return err
	}
	return v.service.SetAttribute(file, v.view+":"+name, value)
}
